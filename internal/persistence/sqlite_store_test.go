package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_CacheRecordUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.PutQuick(ctx, "k1", "p1", []byte(`{"literal":"a"}`), now.Add(time.Hour), now))

	record, ok, err := store.GetCacheRecord(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "p1", record.ProfileID)
	assert.JSONEq(t, `{"literal":"a"}`, string(record.Quick))
	assert.Empty(t, record.Deep)

	// deep write lands in the same record without clobbering quick
	require.NoError(t, store.PutDeep(ctx, "k1", "p1", []byte(`{"summary":"b"}`), now.Add(time.Minute)))
	record, ok, err = store.GetCacheRecord(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"literal":"a"}`, string(record.Quick))
	assert.JSONEq(t, `{"summary":"b"}`, string(record.Deep))
}

func TestSQLiteStore_GetCacheRecordMissing(t *testing.T) {
	store := newTestStore(t)

	_, ok, err := store.GetCacheRecord(context.Background(), "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStore_DeleteOldestCacheRecords(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, key := range []string{"old", "mid", "new"} {
		require.NoError(t, store.PutQuick(ctx, key, "p", []byte(`{}`), base.Add(time.Hour), base.Add(time.Duration(i)*time.Minute)))
	}

	require.NoError(t, store.DeleteOldestCacheRecords(ctx, 2))

	count, err := store.CountCacheRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, ok, err := store.GetCacheRecord(ctx, "new")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteStore_ProfilesRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.UpsertProfile(ctx, ProfileRecord{
		ID: "p1", Payload: []byte(`{"name":"Teens"}`), CreatedAt: now, UpdatedAt: now,
	}))

	profiles, err := store.ListProfiles(ctx)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "p1", profiles[0].ID)

	require.NoError(t, store.DeleteProfile(ctx, "p1"))
	profiles, err = store.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestSQLiteStore_HistoryTrimKeepsNewest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i := 0; i < 5; i++ {
		require.NoError(t, store.UpsertHistory(ctx, HistoryRecord{
			ID:        string(rune('a' + i)),
			Payload:   []byte(`{}`),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	require.NoError(t, store.TrimHistory(ctx, 2))

	entries, err := store.ListHistory(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// newest first
	assert.Equal(t, "e", entries[0].ID)
	assert.Equal(t, "d", entries[1].ID)
}

func TestSQLiteStore_SettingsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.GetSettings(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveSettings(ctx, []byte(`{"quickTtlMinutes":45}`)))
	payload, ok, err := store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"quickTtlMinutes":45}`, string(payload))

	// overwrite, single row semantics
	require.NoError(t, store.SaveSettings(ctx, []byte(`{"quickTtlMinutes":60}`)))
	payload, ok, err = store.GetSettings(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"quickTtlMinutes":60}`, string(payload))
}

func TestSQLiteStore_KnowledgeDocuments(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, store.UpsertKnowledgeDocument(ctx, KnowledgeDocument{
		Collection: "slang", ID: "d1", Text: "no cap means no lie",
		Metadata: []byte(`{"title":"Glossary"}`), CreatedAt: now,
	}))
	require.NoError(t, store.UpsertKnowledgeDocument(ctx, KnowledgeDocument{
		Collection: "slang", ID: "d2", Text: "bet expresses agreement", CreatedAt: now.Add(time.Second),
	}))
	require.NoError(t, store.UpsertKnowledgeDocument(ctx, KnowledgeDocument{
		Collection: "idioms", ID: "d1", Text: "break a leg", CreatedAt: now,
	}))

	docs, err := store.ListKnowledgeDocuments(ctx, "slang")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "d1", docs[0].ID)
	assert.JSONEq(t, `{"title":"Glossary"}`, string(docs[0].Metadata))

	// same (collection, id) replaces the text
	require.NoError(t, store.UpsertKnowledgeDocument(ctx, KnowledgeDocument{
		Collection: "slang", ID: "d1", Text: "cap means a lie", CreatedAt: now,
	}))
	docs, err = store.ListKnowledgeDocuments(ctx, "slang")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "cap means a lie", docs[0].Text)

	docs, err = store.ListKnowledgeDocuments(ctx, "idioms")
	require.NoError(t, err)
	require.Len(t, docs, 1)
}
