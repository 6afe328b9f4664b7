package persistence

import "time"

// CacheRecord is one durable cache slot. A record may hold both the quick and
// the deep payload for the same key; UpdatedAt orders LRU eviction.
type CacheRecord struct {
	Key            string
	ProfileID      string
	Quick          []byte
	Deep           []byte
	QuickExpiresAt time.Time
	UpdatedAt      time.Time
}

// ProfileRecord is one saved profile row; the payload is the serialized
// explain.Profile.
type ProfileRecord struct {
	ID        string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryRecord is one saved history row.
type HistoryRecord struct {
	ID        string
	Payload   []byte
	CreatedAt time.Time
}

// KnowledgeDocument is one ingested reference document in a named
// collection; Metadata is a serialized string map.
type KnowledgeDocument struct {
	Collection string
	ID         string
	Text       string
	Metadata   []byte
	CreatedAt  time.Time
}
