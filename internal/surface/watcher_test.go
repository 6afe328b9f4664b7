package surface

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_CoalescesBursts(t *testing.T) {
	var fires atomic.Int32
	w := NewWatcher(20*time.Millisecond, func() {
		fires.Add(1)
	})
	defer w.Stop()

	for i := 0; i < 20; i++ {
		w.Notify()
		time.Sleep(time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return fires.Load() == 1
	}, time.Second, 5*time.Millisecond)

	// quiet period, then a fresh burst fires again
	w.Notify()
	require.Eventually(t, func() bool {
		return fires.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestWatcher_StopSilencesNotify(t *testing.T) {
	var fires atomic.Int32
	w := NewWatcher(5*time.Millisecond, func() {
		fires.Add(1)
	})

	w.Notify()
	w.Stop()
	w.Notify()

	time.Sleep(30 * time.Millisecond)
	assert.Zero(t, fires.Load())
}
