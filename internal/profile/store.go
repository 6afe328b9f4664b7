// Package profile manages the saved demographic profiles used to
// personalize deep explanations.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/persistence"
)

// MaxProfiles caps how many profiles may exist at once.
const MaxProfiles = 3

type backend interface {
	ListProfiles(ctx context.Context) ([]persistence.ProfileRecord, error)
	UpsertProfile(ctx context.Context, record persistence.ProfileRecord) error
	DeleteProfile(ctx context.Context, id string) error
}

// Store holds the saved profiles in memory, backed by the durable store.
type Store struct {
	mu       sync.RWMutex
	backend  backend
	profiles map[string]explain.Profile
	now      func() time.Time
}

func NewStore(ctx context.Context, b backend) (*Store, error) {
	store := &Store{
		backend:  b,
		profiles: make(map[string]explain.Profile),
		now:      time.Now,
	}
	records, err := b.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load profiles: %w", err)
	}
	for _, record := range records {
		var p explain.Profile
		if err := json.Unmarshal(record.Payload, &p); err != nil {
			continue
		}
		if p.ID == "" {
			p.ID = record.ID
		}
		store.profiles[p.ID] = p
	}
	return store, nil
}

// List returns all profiles ordered by creation time, oldest first.
func (s *Store) List() []explain.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]explain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		ret = append(ret, p)
	}
	sort.Slice(ret, func(i, j int) bool {
		if ret[i].CreatedAt != ret[j].CreatedAt {
			return ret[i].CreatedAt < ret[j].CreatedAt
		}
		return ret[i].ID < ret[j].ID
	})
	return ret
}

func (s *Store) Get(id string) (explain.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[id]
	return p, ok
}

// Save creates or updates a profile. New profiles get a generated ID and
// are rejected once the cap is reached; updates to existing IDs always
// succeed.
func (s *Store) Save(ctx context.Context, p explain.Profile) (explain.Profile, error) {
	if strings.TrimSpace(p.Name) == "" {
		return explain.Profile{}, fmt.Errorf("profile name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UnixMilli()
	_, exists := s.profiles[p.ID]
	if !exists {
		if len(s.profiles) >= MaxProfiles {
			return explain.Profile{}, fmt.Errorf("profile limit reached (max %d)", MaxProfiles)
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.CreatedAt = now
	} else {
		p.CreatedAt = s.profiles[p.ID].CreatedAt
	}
	p.UpdatedAt = now

	payload, err := json.Marshal(p)
	if err != nil {
		return explain.Profile{}, fmt.Errorf("encode profile: %w", err)
	}
	record := persistence.ProfileRecord{
		ID:        p.ID,
		Payload:   payload,
		CreatedAt: time.UnixMilli(p.CreatedAt),
		UpdatedAt: time.UnixMilli(p.UpdatedAt),
	}
	if err := s.backend.UpsertProfile(ctx, record); err != nil {
		return explain.Profile{}, fmt.Errorf("save profile: %w", err)
	}
	s.profiles[p.ID] = p
	return p, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[id]; !ok {
		return fmt.Errorf("profile %s not found", id)
	}
	if err := s.backend.DeleteProfile(ctx, id); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	delete(s.profiles, id)
	return nil
}
