package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore is the secondary cache backend used when the SQLite primary is
// unavailable. It keeps the whole record map in one JSON file, written
// atomically via a temp file and rename.
type FileStore struct {
	path string

	mu      sync.Mutex
	records map[string]fileRecord
	loaded  bool
}

type fileRecord struct {
	Key            string    `json:"key"`
	ProfileID      string    `json:"profile_id,omitempty"`
	Quick          string    `json:"quick,omitempty"`
	Deep           string    `json:"deep,omitempty"`
	QuickExpiresAt time.Time `json:"quick_expires_at,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewFileStore(path string) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("file store path is required")
	}
	return &FileStore{path: path, records: make(map[string]fileRecord)}, nil
}

func (s *FileStore) GetCacheRecord(_ context.Context, key string) (CacheRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return CacheRecord{}, false, err
	}
	rec, ok := s.records[key]
	if !ok {
		return CacheRecord{}, false, nil
	}
	return rec.toCacheRecord(), true, nil
}

func (s *FileStore) PutQuick(_ context.Context, key string, profileID string, payload []byte, expiresAt time.Time, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	rec := s.records[key]
	rec.Key = key
	rec.ProfileID = profileID
	rec.Quick = string(payload)
	rec.QuickExpiresAt = expiresAt.UTC()
	rec.UpdatedAt = updatedAt.UTC()
	s.records[key] = rec
	return s.flushLocked()
}

func (s *FileStore) PutDeep(_ context.Context, key string, profileID string, payload []byte, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}
	rec := s.records[key]
	rec.Key = key
	rec.ProfileID = profileID
	rec.Deep = string(payload)
	rec.UpdatedAt = updatedAt.UTC()
	s.records[key] = rec
	return s.flushLocked()
}

func (s *FileStore) CountCacheRecords(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return 0, err
	}
	return len(s.records), nil
}

func (s *FileStore) DeleteOldestCacheRecords(_ context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.loadLocked(); err != nil {
		return err
	}

	keys := make([]string, 0, len(s.records))
	for key := range s.records {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := s.records[keys[i]], s.records[keys[j]]
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return keys[i] < keys[j]
	})
	if n > len(keys) {
		n = len(keys)
	}
	for _, key := range keys[:n] {
		delete(s.records, key)
	}
	return s.flushLocked()
}

func (s *FileStore) loadLocked() error {
	if s.loaded {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.loaded = true
			return nil
		}
		return err
	}
	records := make(map[string]fileRecord)
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("invalid cache file: %w", err)
	}
	s.records = records
	s.loaded = true
	return nil
}

func (s *FileStore) flushLocked() error {
	dir := filepath.Dir(s.path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	content, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return err
	}
	content = append(content, '\n')

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, content, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpPath, s.path)
}

func (r fileRecord) toCacheRecord() CacheRecord {
	ret := CacheRecord{
		Key:            r.Key,
		ProfileID:      r.ProfileID,
		QuickExpiresAt: r.QuickExpiresAt,
		UpdatedAt:      r.UpdatedAt,
	}
	if r.Quick != "" {
		ret.Quick = []byte(r.Quick)
	}
	if r.Deep != "" {
		ret.Deep = []byte(r.Deep)
	}
	return ret
}
