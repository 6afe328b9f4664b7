package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/persistence"
)

// memBackend is an in-memory Backend double; failNext simulates a broken
// primary for failover tests.
type memBackend struct {
	mu       sync.Mutex
	records  map[string]persistence.CacheRecord
	failNext bool
}

func newMemBackend() *memBackend {
	return &memBackend{records: make(map[string]persistence.CacheRecord)}
}

func (b *memBackend) fail() error {
	if b.failNext {
		return errors.New("backend unavailable")
	}
	return nil
}

func (b *memBackend) GetCacheRecord(_ context.Context, key string) (persistence.CacheRecord, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return persistence.CacheRecord{}, false, err
	}
	record, ok := b.records[key]
	return record, ok, nil
}

func (b *memBackend) PutQuick(_ context.Context, key string, profileID string, payload []byte, expiresAt time.Time, updatedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	record := b.records[key]
	record.Key = key
	record.ProfileID = profileID
	record.Quick = payload
	record.QuickExpiresAt = expiresAt
	record.UpdatedAt = updatedAt
	b.records[key] = record
	return nil
}

func (b *memBackend) PutDeep(_ context.Context, key string, profileID string, payload []byte, updatedAt time.Time) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	record := b.records[key]
	record.Key = key
	record.ProfileID = profileID
	record.Deep = payload
	record.UpdatedAt = updatedAt
	b.records[key] = record
	return nil
}

func (b *memBackend) CountCacheRecords(context.Context) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return 0, err
	}
	return len(b.records), nil
}

func (b *memBackend) DeleteOldestCacheRecords(_ context.Context, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.fail(); err != nil {
		return err
	}
	keys := make([]string, 0, len(b.records))
	for key := range b.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b2 := b.records[keys[i]], b.records[keys[j]]
		if !a.UpdatedAt.Equal(b2.UpdatedAt) {
			return a.UpdatedAt.Before(b2.UpdatedAt)
		}
		return keys[i] < keys[j]
	})
	for i := 0; i < n && i < len(keys); i++ {
		delete(b.records, keys[i])
	}
	return nil
}

func fixedPolicy(ttl time.Duration, maxEntries int) PolicyProvider {
	return func() Policy {
		return Policy{QuickTTL: ttl, MaxEntries: maxEntries}
	}
}

func TestStore_QuickRoundTrip(t *testing.T) {
	backend := newMemBackend()
	store := NewStore(backend, fixedPolicy(30*time.Minute, 100))

	payload := &explain.QuickPayload{RequestID: "r1", Literal: "lit", Context: "ctx"}
	require.NoError(t, store.WriteQuick(context.Background(), "default::hi", "default", payload))

	got, err := store.ReadQuick(context.Background(), "default::hi")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lit", got.Literal)
	assert.Positive(t, got.ExpiresAt)
}

func TestStore_QuickExpiryIsLazy(t *testing.T) {
	backend := newMemBackend()
	current := time.Now()
	store := NewStore(backend, fixedPolicy(30*time.Minute, 100),
		WithClock(func() time.Time { return current }))

	payload := &explain.QuickPayload{RequestID: "r1", Literal: "lit"}
	require.NoError(t, store.WriteQuick(context.Background(), "k", "default", payload))

	// one second before expiry: still a hit
	current = current.Add(30*time.Minute - time.Second)
	got, err := store.ReadQuick(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)

	// at expiry: a miss, but the record is not deleted
	current = current.Add(time.Second)
	got, err = store.ReadQuick(context.Background(), "k")
	require.NoError(t, err)
	assert.Nil(t, got)

	count, err := backend.CountCacheRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_WriteClampsRequestedExpiry(t *testing.T) {
	backend := newMemBackend()
	now := time.Now()
	store := NewStore(backend, fixedPolicy(10*time.Minute, 100),
		WithClock(func() time.Time { return now }))

	payload := &explain.QuickPayload{
		RequestID: "r1",
		Literal:   "lit",
		ExpiresAt: now.Add(5 * time.Hour).UnixMilli(),
	}
	require.NoError(t, store.WriteQuick(context.Background(), "k", "default", payload))

	got, err := store.ReadQuick(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.LessOrEqual(t, got.ExpiresAt, now.Add(10*time.Minute).UnixMilli())
}

func TestStore_EvictionKeepsMostRecentlyUpdated(t *testing.T) {
	backend := newMemBackend()
	current := time.Now()
	store := NewStore(backend, fixedPolicy(time.Hour, 50),
		WithClock(func() time.Time { return current }))

	for i := 0; i < 60; i++ {
		current = current.Add(time.Second)
		payload := &explain.QuickPayload{RequestID: "r", Literal: "lit"}
		require.NoError(t, store.WriteQuick(context.Background(), Key(string(rune('A'+i%26))+string(rune('a'+i/26)), "p"), "p", payload))
	}

	count, err := backend.CountCacheRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, count)
}

func TestStore_DeepDoesNotExpire(t *testing.T) {
	backend := newMemBackend()
	current := time.Now()
	store := NewStore(backend, fixedPolicy(time.Minute, 100),
		WithClock(func() time.Time { return current }))

	payload := &explain.DeepPayload{RequestID: "r1", Background: explain.Background{Summary: "s"}}
	require.NoError(t, store.WriteDeep(context.Background(), "k", "default", payload))

	current = current.Add(48 * time.Hour)
	got, err := store.ReadDeep(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "s", got.Background.Summary)
}

func TestStore_FailsOverToSecondary(t *testing.T) {
	primary := newMemBackend()
	secondary := newMemBackend()
	store := NewStore(primary, fixedPolicy(time.Hour, 100), WithSecondary(secondary))

	primary.failNext = true
	payload := &explain.QuickPayload{RequestID: "r1", Literal: "lit"}
	require.NoError(t, store.WriteQuick(context.Background(), "k", "default", payload))

	got, err := store.ReadQuick(context.Background(), "k")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "lit", got.Literal)
}

func TestStore_EvictionBoundsSecondaryDuringFailover(t *testing.T) {
	primary := newMemBackend()
	secondary := newMemBackend()
	current := time.Now()
	store := NewStore(primary, fixedPolicy(time.Hour, 2),
		WithSecondary(secondary),
		WithClock(func() time.Time { return current }))

	primary.failNext = true
	for _, key := range []string{"a", "b", "c", "d", "e"} {
		current = current.Add(time.Second)
		payload := &explain.QuickPayload{RequestID: "r", Literal: key}
		require.NoError(t, store.WriteQuick(context.Background(), key, "default", payload))
	}

	count, err := secondary.CountCacheRecords(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// the most recently written keys survive
	got, err := store.ReadQuick(context.Background(), "e")
	require.NoError(t, err)
	require.NotNil(t, got)
	got, err = store.ReadQuick(context.Background(), "a")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_NoSecondaryIsCacheUnavailable(t *testing.T) {
	primary := newMemBackend()
	store := NewStore(primary, fixedPolicy(time.Hour, 100))

	primary.failNext = true
	_, err := store.ReadQuick(context.Background(), "k")
	require.Error(t, err)
	assert.True(t, explain.IsKind(err, explain.FailCacheUnavailable))
}
