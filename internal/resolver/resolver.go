// Package resolver decides, from a noisy mutating surface, what the current
// subtitle line is. A ranked fallback chain runs on every debounced change:
// structural scan, media-track cues, accessibility live regions, and finally
// optical recognition of a captured frame.
package resolver

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lingualens/lingualens/internal/ocr"
	"github.com/lingualens/lingualens/internal/surface"
	"github.com/lingualens/lingualens/pkg/log"
)

// Observation is one resolved "current subtitle line" event. Ephemeral: it
// is superseded whenever a new distinct text is emitted.
type Observation struct {
	Text        string
	Surrounding string
	Bounds      *surface.Rect
}

// Listener receives observations as the resolved line changes.
type Listener func(Observation)

type Resolver struct {
	cfg        Config
	surf       surface.Surface
	recognizer ocr.Recognizer
	watcher    *surface.Watcher

	mu          sync.Mutex
	listeners   []Listener
	lastText    string
	missCount   int
	opticalBusy bool
	cooldown    *time.Timer
	started     bool
}

func New(surf surface.Surface, recognizer ocr.Recognizer, cfg Config) *Resolver {
	return &Resolver{
		cfg:        cfg,
		surf:       surf,
		recognizer: recognizer,
	}
}

// Start begins observing. Change notifications arrive through Notify and are
// debounced into sequential scan passes.
func (r *Resolver) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	r.watcher = surface.NewWatcher(r.cfg.Debounce, r.scan)
}

// Notify reports one structural mutation of the surface.
func (r *Resolver) Notify() {
	r.mu.Lock()
	watcher := r.watcher
	r.mu.Unlock()
	if watcher != nil {
		watcher.Notify()
	}
}

// OnObservation registers a callback invoked whenever the resolved current
// line changes.
func (r *Resolver) OnObservation(fn Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Stop tears down observation and cooldown timers.
func (r *Resolver) Stop() {
	r.mu.Lock()
	watcher := r.watcher
	r.watcher = nil
	r.started = false
	if r.cooldown != nil {
		r.cooldown.Stop()
		r.cooldown = nil
	}
	// The cancelled cooldown would have cleared the optical gate; clear it
	// here so a later Start begins ungated.
	r.opticalBusy = false
	r.mu.Unlock()
	if watcher != nil {
		watcher.Stop()
	}
}

// scan runs one full resolution pass over the fallback chain.
func (r *Resolver) scan() {
	result := r.scanStructural()
	if result.found {
		r.mu.Lock()
		r.missCount = 0
		r.mu.Unlock()
		bounds := result.element.Bounds
		r.emit(result.element.Text, &bounds)
		return
	}

	r.mu.Lock()
	r.missCount++
	missCount := r.missCount
	r.mu.Unlock()

	if text := r.trackCues(); text != "" {
		r.emit(text, nil)
		return
	}
	if text := r.liveRegions(); text != "" {
		r.emit(text, nil)
		return
	}

	forced := missCount > r.cfg.MissThreshold
	if forced || r.hostPrefersOptical() || result.bestRejected > 0 {
		r.tryOptical(forced)
	}
}

// trackCues reads the active media-track cues at the current playback time.
func (r *Resolver) trackCues() string {
	media, ok := r.surf.PrimaryMedia()
	if !ok {
		return ""
	}
	parts := make([]string, 0, 2)
	for _, cue := range media.ActiveCues() {
		if cue = strings.TrimSpace(cue); cue != "" {
			parts = append(parts, cue)
		}
	}
	return strings.Join(parts, " ")
}

// liveRegions picks the longest accessibility announcement as the candidate.
func (r *Resolver) liveRegions() string {
	regions := r.surf.LiveRegions()
	if len(regions) == 0 {
		return ""
	}
	sort.SliceStable(regions, func(i, j int) bool {
		return len(regions[i]) > len(regions[j])
	})
	return strings.TrimSpace(regions[0])
}

func (r *Resolver) hostPrefersOptical() bool {
	host := r.surf.Host()
	for _, allowed := range r.cfg.OpticalHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}

// tryOptical runs the opaque recognition capability at most once per
// cooldown window. The gate is a boolean flag: an invocation requested
// during cooldown is dropped, not queued.
func (r *Resolver) tryOptical(forced bool) {
	media, ok := r.surf.PrimaryMedia()
	if !ok || r.recognizer == nil {
		return
	}

	r.mu.Lock()
	if r.opticalBusy {
		r.mu.Unlock()
		return
	}
	r.opticalBusy = true
	r.mu.Unlock()

	go func() {
		defer r.startCooldown(forced)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		frame, err := media.CaptureFrame(ctx)
		if err != nil {
			log.Debug("Frame capture failed: %v", err)
			return
		}
		result, err := r.recognizer.Recognize(ctx, frame)
		if err != nil {
			log.Debug("Optical recognition failed: %v", err)
			return
		}
		if result.Confidence < r.cfg.OpticalMinConfidence {
			log.Debug("Optical result below confidence floor: %.2f", result.Confidence)
			return
		}
		r.emit(result.Text, nil)
	}()
}

func (r *Resolver) startCooldown(forced bool) {
	duration := r.cfg.OpticalCooldown
	if forced {
		duration = r.cfg.OpticalForcedCooldown
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.started {
		r.opticalBusy = false
		return
	}
	r.cooldown = time.AfterFunc(duration, func() {
		r.mu.Lock()
		r.opticalBusy = false
		r.mu.Unlock()
	})
}

// emit delivers an observation unless it duplicates the last emitted line.
func (r *Resolver) emit(text string, bounds *surface.Rect) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return
	}

	r.mu.Lock()
	if trimmed == r.lastText {
		r.mu.Unlock()
		return
	}
	previous := r.lastText
	r.lastText = trimmed
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.Unlock()

	obs := Observation{
		Text:        trimmed,
		Surrounding: previous,
		Bounds:      bounds,
	}
	for _, fn := range listeners {
		fn(obs)
	}
}
