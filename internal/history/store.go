// Package history records past deep explanations so they can be revisited
// and used to warm the cache.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/persistence"
)

// Limit caps how many history entries are retained; older ones are trimmed.
const Limit = 300

// Entry is one remembered deep explanation.
type Entry struct {
	ID            string               `json:"id"`
	Query         string               `json:"query"`
	ResultSummary string               `json:"resultSummary"`
	ProfileID     string               `json:"profileId,omitempty"`
	ProfileName   string               `json:"profileName,omitempty"`
	DeepResponse  *explain.DeepPayload `json:"deepResponse,omitempty"`
	CreatedAt     int64                `json:"createdAt"`
}

type backend interface {
	ListHistory(ctx context.Context) ([]persistence.HistoryRecord, error)
	UpsertHistory(ctx context.Context, record persistence.HistoryRecord) error
	DeleteHistory(ctx context.Context, id string) error
	ClearHistory(ctx context.Context) error
	TrimHistory(ctx context.Context, limit int) error
}

// Store is the durable history list.
type Store struct {
	backend backend
	now     func() time.Time
}

func NewStore(b backend) *Store {
	return &Store{backend: b, now: time.Now}
}

// List returns entries newest first, at most Limit of them.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	records, err := s.backend.ListHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	ret := make([]Entry, 0, len(records))
	for _, record := range records {
		if len(ret) >= Limit {
			break
		}
		var entry Entry
		if err := json.Unmarshal(record.Payload, &entry); err != nil {
			continue
		}
		if entry.ID == "" {
			entry.ID = record.ID
		}
		ret = append(ret, entry)
	}
	return ret, nil
}

// Save stores an entry and trims the list back to Limit.
func (s *Store) Save(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.Query) == "" {
		return Entry{}, fmt.Errorf("history query is required")
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt == 0 {
		entry.CreatedAt = s.now().UnixMilli()
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("encode history entry: %w", err)
	}
	record := persistence.HistoryRecord{
		ID:        entry.ID,
		Payload:   payload,
		CreatedAt: time.UnixMilli(entry.CreatedAt),
	}
	if err := s.backend.UpsertHistory(ctx, record); err != nil {
		return Entry{}, fmt.Errorf("save history entry: %w", err)
	}
	if err := s.backend.TrimHistory(ctx, Limit); err != nil {
		return Entry{}, fmt.Errorf("trim history: %w", err)
	}
	return entry, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.backend.DeleteHistory(ctx, id)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.backend.ClearHistory(ctx)
}
