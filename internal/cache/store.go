// Package cache is the durable two-tier result cache. Quick and deep
// payloads share one record per key so a single eviction pass bounds total
// storage. TTL is enforced lazily at read time; eviction runs eagerly after
// writes.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/persistence"
	"github.com/lingualens/lingualens/pkg/log"
)

// Policy bounds the cache: quick-entry TTL and the record-count budget.
type Policy struct {
	QuickTTL   time.Duration
	MaxEntries int
}

// PolicyProvider yields the current policy; settings can change at runtime.
type PolicyProvider func() Policy

// Backend is the durable key→record store underneath the cache.
type Backend interface {
	GetCacheRecord(ctx context.Context, key string) (persistence.CacheRecord, bool, error)
	PutQuick(ctx context.Context, key string, profileID string, payload []byte, expiresAt time.Time, updatedAt time.Time) error
	PutDeep(ctx context.Context, key string, profileID string, payload []byte, updatedAt time.Time) error
	CountCacheRecords(ctx context.Context) (int, error)
	DeleteOldestCacheRecords(ctx context.Context, n int) error
}

// Store layers TTL, eviction, and primary/secondary failover over a Backend.
type Store struct {
	primary   Backend
	secondary Backend
	policy    PolicyProvider
	now       func() time.Time
}

type Option func(*Store)

// WithSecondary sets the fallback backend used transparently when the
// primary fails.
func WithSecondary(backend Backend) Option {
	return func(s *Store) {
		s.secondary = backend
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func NewStore(primary Backend, policy PolicyProvider, opts ...Option) *Store {
	s := &Store{
		primary: primary,
		policy:  policy,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReadQuick returns the cached quick payload, or nil on absence or expiry.
// Expired entries are treated as misses, not deleted.
func (s *Store) ReadQuick(ctx context.Context, key string) (*explain.QuickPayload, error) {
	record, ok, err := s.getRecord(ctx, key)
	if err != nil || !ok || len(record.Quick) == 0 {
		return nil, err
	}
	if !record.QuickExpiresAt.IsZero() && !record.QuickExpiresAt.After(s.now()) {
		return nil, nil
	}
	var payload explain.QuickPayload
	if err := json.Unmarshal(record.Quick, &payload); err != nil {
		log.Warn("Discarding undecodable quick cache entry %s: %v", key, err)
		return nil, nil
	}
	return &payload, nil
}

// WriteQuick stores a quick payload, clamping its expiry to the policy TTL
// even if the payload requested a longer one, then trims the store.
func (s *Store) WriteQuick(ctx context.Context, key string, profileID string, payload *explain.QuickPayload) error {
	policy := s.policy()
	now := s.now()

	maxExpiry := now.Add(policy.QuickTTL)
	expiresAt := maxExpiry
	if payload.ExpiresAt > 0 {
		requested := time.UnixMilli(payload.ExpiresAt)
		if requested.Before(maxExpiry) {
			expiresAt = requested
		}
	}
	clamped := *payload
	clamped.ExpiresAt = expiresAt.UnixMilli()

	data, err := json.Marshal(&clamped)
	if err != nil {
		return explain.WrapError(explain.FailCacheUnavailable, "encode quick payload", err)
	}
	backend, err := s.putQuick(ctx, key, profileID, data, expiresAt, now)
	if err != nil {
		return err
	}
	s.trim(ctx, backend, policy.MaxEntries)
	return nil
}

// ReadDeep returns the cached deep payload, or nil on absence. Deep entries
// do not expire on their own; only eviction removes them.
func (s *Store) ReadDeep(ctx context.Context, key string) (*explain.DeepPayload, error) {
	record, ok, err := s.getRecord(ctx, key)
	if err != nil || !ok || len(record.Deep) == 0 {
		return nil, err
	}
	var payload explain.DeepPayload
	if err := json.Unmarshal(record.Deep, &payload); err != nil {
		log.Warn("Discarding undecodable deep cache entry %s: %v", key, err)
		return nil, nil
	}
	return &payload, nil
}

func (s *Store) WriteDeep(ctx context.Context, key string, profileID string, payload *explain.DeepPayload) error {
	policy := s.policy()
	data, err := json.Marshal(payload)
	if err != nil {
		return explain.WrapError(explain.FailCacheUnavailable, "encode deep payload", err)
	}
	backend, err := s.putDeep(ctx, key, profileID, data, s.now())
	if err != nil {
		return err
	}
	s.trim(ctx, backend, policy.MaxEntries)
	return nil
}

func (s *Store) getRecord(ctx context.Context, key string) (persistence.CacheRecord, bool, error) {
	record, ok, err := s.primary.GetCacheRecord(ctx, key)
	if err == nil {
		return record, ok, nil
	}
	if s.secondary == nil {
		return persistence.CacheRecord{}, false, explain.WrapError(explain.FailCacheUnavailable, "cache read failed", err)
	}
	log.Warn("Primary cache read failed, using secondary: %v", err)
	record, ok, err = s.secondary.GetCacheRecord(ctx, key)
	if err != nil {
		return persistence.CacheRecord{}, false, explain.WrapError(explain.FailCacheUnavailable, "cache read failed", err)
	}
	return record, ok, nil
}

// putQuick writes to the primary, falling back to the secondary. It returns
// the backend that accepted the write so eviction runs against the same one.
func (s *Store) putQuick(ctx context.Context, key, profileID string, data []byte, expiresAt, now time.Time) (Backend, error) {
	err := s.primary.PutQuick(ctx, key, profileID, data, expiresAt, now)
	if err == nil {
		return s.primary, nil
	}
	if s.secondary == nil {
		return nil, explain.WrapError(explain.FailCacheUnavailable, "cache write failed", err)
	}
	log.Warn("Primary cache write failed, using secondary: %v", err)
	if err := s.secondary.PutQuick(ctx, key, profileID, data, expiresAt, now); err != nil {
		return nil, explain.WrapError(explain.FailCacheUnavailable, "cache write failed", err)
	}
	return s.secondary, nil
}

func (s *Store) putDeep(ctx context.Context, key, profileID string, data []byte, now time.Time) (Backend, error) {
	err := s.primary.PutDeep(ctx, key, profileID, data, now)
	if err == nil {
		return s.primary, nil
	}
	if s.secondary == nil {
		return nil, explain.WrapError(explain.FailCacheUnavailable, "cache write failed", err)
	}
	log.Warn("Primary cache write failed, using secondary: %v", err)
	if err := s.secondary.PutDeep(ctx, key, profileID, data, now); err != nil {
		return nil, explain.WrapError(explain.FailCacheUnavailable, "cache write failed", err)
	}
	return s.secondary, nil
}

// trim deletes least-recently-updated records on backend until the count
// fits the budget. Failures are logged, not surfaced; the next write retries.
func (s *Store) trim(ctx context.Context, backend Backend, maxEntries int) {
	if maxEntries <= 0 {
		return
	}
	count, err := backend.CountCacheRecords(ctx)
	if err != nil {
		log.Warn("Cache trim skipped, count failed: %v", err)
		return
	}
	if count <= maxEntries {
		return
	}
	if err := backend.DeleteOldestCacheRecords(ctx, count-maxEntries); err != nil {
		log.Warn("Cache trim failed: %v", err)
	}
}
