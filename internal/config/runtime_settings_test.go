package config

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memSettingsBackend struct {
	mu      sync.Mutex
	payload []byte
}

func (b *memSettingsBackend) GetSettings(context.Context) ([]byte, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.payload == nil {
		return nil, false, nil
	}
	return b.payload, true, nil
}

func (b *memSettingsBackend) SaveSettings(_ context.Context, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.payload = payload
	return nil
}

func TestRuntimeSettings_Validate(t *testing.T) {
	assert.NoError(t, RuntimeSettings{QuickTTLMinutes: 30, MaxEntries: 500}.Validate())
	assert.Error(t, RuntimeSettings{QuickTTLMinutes: 4, MaxEntries: 500}.Validate())
	assert.Error(t, RuntimeSettings{QuickTTLMinutes: 181, MaxEntries: 500}.Validate())
	assert.Error(t, RuntimeSettings{QuickTTLMinutes: 30, MaxEntries: 49}.Validate())
	assert.Error(t, RuntimeSettings{QuickTTLMinutes: 30, MaxEntries: 2001}.Validate())
}

func TestRuntimeSettings_ClampBounds(t *testing.T) {
	clamped := RuntimeSettings{QuickTTLMinutes: 1, MaxEntries: 90000}.Clamp()
	assert.Equal(t, MinQuickTTLMinutes, clamped.QuickTTLMinutes)
	assert.Equal(t, MaxMaxEntries, clamped.MaxEntries)

	defaults := RuntimeSettings{}.Clamp()
	assert.Equal(t, DefaultQuickTTLMinutes, defaults.QuickTTLMinutes)
	assert.Equal(t, DefaultMaxEntries, defaults.MaxEntries)
}

func TestRuntimeSettings_QuickTTL(t *testing.T) {
	assert.Equal(t, 45*time.Minute, RuntimeSettings{QuickTTLMinutes: 45}.QuickTTL())
}

func TestRuntimeSettingsStore_LoadsAndWritesThrough(t *testing.T) {
	backend := &memSettingsBackend{}
	ctx := context.Background()

	store, err := NewRuntimeSettingsStore(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, DefaultRuntimeSettings(), store.GetRuntimeSettings())

	saved, err := store.UpdateRuntimeSettings(ctx, RuntimeSettings{QuickTTLMinutes: 60, MaxEntries: 100})
	require.NoError(t, err)
	assert.Equal(t, 60, saved.QuickTTLMinutes)

	// a fresh store sees the persisted record
	reloaded, err := NewRuntimeSettingsStore(ctx, backend)
	require.NoError(t, err)
	assert.Equal(t, saved, reloaded.GetRuntimeSettings())
}

func TestRuntimeSettingsStore_RejectsInvalidUpdate(t *testing.T) {
	store, err := NewRuntimeSettingsStore(context.Background(), &memSettingsBackend{})
	require.NoError(t, err)

	_, err = store.UpdateRuntimeSettings(context.Background(), RuntimeSettings{QuickTTLMinutes: 1, MaxEntries: 10})
	assert.Error(t, err)
	assert.Equal(t, DefaultRuntimeSettings(), store.GetRuntimeSettings())
}
