package surface

import (
	"sync"
	"time"
)

// Watcher coalesces bursts of change notifications into single re-scan
// callbacks. Each Notify resets the debounce timer, so the callback fires
// once the surface has been quiet for the debounce window; scan passes are
// therefore strictly sequential.
type Watcher struct {
	delay time.Duration
	fn    func()

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	stopped bool
}

func NewWatcher(delay time.Duration, fn func()) *Watcher {
	if delay <= 0 {
		delay = 150 * time.Millisecond
	}
	return &Watcher{delay: delay, fn: fn}
}

// Notify records one structural mutation of the surface.
func (w *Watcher) Notify() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, w.fire)
}

func (w *Watcher) fire() {
	w.mu.Lock()
	if w.stopped || w.running {
		// a pass is still running; queue another once it finishes
		if !w.stopped && w.running {
			w.timer = time.AfterFunc(w.delay, w.fire)
		}
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.fn()

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Stop tears down the pending timer. After Stop, Notify is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
