package config

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Bounds for the runtime-tunable cache policy.
const (
	MinQuickTTLMinutes = 5
	MaxQuickTTLMinutes = 180
	MinMaxEntries      = 50
	MaxMaxEntries      = 2000

	DefaultQuickTTLMinutes = 30
	DefaultMaxEntries      = 500
)

// RuntimeSettings is the settings record persisted in the store and mutable
// through the API while the service runs.
type RuntimeSettings struct {
	QuickTTLMinutes int `json:"quickTtlMinutes"`
	MaxEntries      int `json:"maxEntries"`
}

func DefaultRuntimeSettings() RuntimeSettings {
	return RuntimeSettings{
		QuickTTLMinutes: DefaultQuickTTLMinutes,
		MaxEntries:      DefaultMaxEntries,
	}
}

func (s RuntimeSettings) Validate() error {
	if s.QuickTTLMinutes < MinQuickTTLMinutes || s.QuickTTLMinutes > MaxQuickTTLMinutes {
		return fmt.Errorf("quickTtlMinutes must be between %d and %d", MinQuickTTLMinutes, MaxQuickTTLMinutes)
	}
	if s.MaxEntries < MinMaxEntries || s.MaxEntries > MaxMaxEntries {
		return fmt.Errorf("maxEntries must be between %d and %d", MinMaxEntries, MaxMaxEntries)
	}
	return nil
}

// Clamp forces the settings into their legal ranges, substituting defaults
// for unset fields.
func (s RuntimeSettings) Clamp() RuntimeSettings {
	ret := s
	if ret.QuickTTLMinutes == 0 {
		ret.QuickTTLMinutes = DefaultQuickTTLMinutes
	}
	if ret.MaxEntries == 0 {
		ret.MaxEntries = DefaultMaxEntries
	}
	if ret.QuickTTLMinutes < MinQuickTTLMinutes {
		ret.QuickTTLMinutes = MinQuickTTLMinutes
	}
	if ret.QuickTTLMinutes > MaxQuickTTLMinutes {
		ret.QuickTTLMinutes = MaxQuickTTLMinutes
	}
	if ret.MaxEntries < MinMaxEntries {
		ret.MaxEntries = MinMaxEntries
	}
	if ret.MaxEntries > MaxMaxEntries {
		ret.MaxEntries = MaxMaxEntries
	}
	return ret
}

func (s RuntimeSettings) QuickTTL() time.Duration {
	return time.Duration(s.QuickTTLMinutes) * time.Minute
}

// settingsBackend is the persisted settings record underneath the store.
type settingsBackend interface {
	GetSettings(ctx context.Context) ([]byte, bool, error)
	SaveSettings(ctx context.Context, payload []byte) error
}

// RuntimeSettingsStore caches the settings record in memory and writes
// through to the persistent store on update.
type RuntimeSettingsStore struct {
	backend settingsBackend

	mu      sync.RWMutex
	current RuntimeSettings
}

func NewRuntimeSettingsStore(ctx context.Context, backend settingsBackend) (*RuntimeSettingsStore, error) {
	store := &RuntimeSettingsStore{
		backend: backend,
		current: DefaultRuntimeSettings(),
	}
	if backend == nil {
		return store, nil
	}
	data, ok, err := backend.GetSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	if ok {
		var loaded RuntimeSettings
		if err := json.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("invalid settings record: %w", err)
		}
		store.current = loaded.Clamp()
	}
	return store, nil
}

func (s *RuntimeSettingsStore) GetRuntimeSettings() RuntimeSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

func (s *RuntimeSettingsStore) UpdateRuntimeSettings(ctx context.Context, next RuntimeSettings) (RuntimeSettings, error) {
	if err := next.Validate(); err != nil {
		return RuntimeSettings{}, err
	}
	if s.backend != nil {
		data, err := json.Marshal(next)
		if err != nil {
			return RuntimeSettings{}, err
		}
		if err := s.backend.SaveSettings(ctx, data); err != nil {
			return RuntimeSettings{}, err
		}
	}

	s.mu.Lock()
	s.current = next
	s.mu.Unlock()
	return next, nil
}
