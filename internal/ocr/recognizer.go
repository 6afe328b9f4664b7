// Package ocr wraps the opaque optical-recognition capability: given an
// image region, return recognized text and a confidence score. The engine
// itself lives behind this interface and is constructed and injected by the
// host.
package ocr

import (
	"context"
	"sync"
)

// Result is one recognition outcome.
type Result struct {
	Text       string
	Confidence float64
}

// Recognizer recognizes text in a captured frame.
type Recognizer interface {
	Recognize(ctx context.Context, frame []byte) (Result, error)
}

// StubRecognizer returns canned results; used in tests and as the default
// when no engine is wired.
type StubRecognizer struct {
	Result Result
	Err    error

	mu    sync.Mutex
	calls int
}

func (r *StubRecognizer) Recognize(context.Context, []byte) (Result, error) {
	r.mu.Lock()
	r.calls++
	r.mu.Unlock()
	if r.Err != nil {
		return Result{}, r.Err
	}
	return r.Result, nil
}

// Calls reports how many times Recognize ran; useful for asserting cooldown
// gating.
func (r *StubRecognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
