package surface

import (
	"context"
	"sync"
)

// StubSurface is an in-memory Surface for tests and for hosts that feed
// element snapshots from elsewhere. All mutators are safe for concurrent use.
type StubSurface struct {
	mu          sync.RWMutex
	host        string
	title       string
	viewport    Rect
	elements    map[string][]Element
	liveRegions []string
	media       *StubMedia
}

func NewStubSurface(host string, viewport Rect) *StubSurface {
	return &StubSurface{
		host:     host,
		viewport: viewport,
		elements: make(map[string][]Element),
	}
}

func (s *StubSurface) Host() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.host
}

func (s *StubSurface) Title() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.title
}

func (s *StubSurface) SetTitle(title string) {
	s.mu.Lock()
	s.title = title
	s.mu.Unlock()
}

func (s *StubSurface) Viewport() Rect {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewport
}

func (s *StubSurface) Query(sel Selector) []Element {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.elements[sel.Query]
	ret := make([]Element, len(matches))
	copy(ret, matches)
	return ret
}

// SetElements replaces the visible matches for one selector query.
func (s *StubSurface) SetElements(query string, elements ...Element) {
	s.mu.Lock()
	s.elements[query] = elements
	s.mu.Unlock()
}

func (s *StubSurface) LiveRegions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ret := make([]string, len(s.liveRegions))
	copy(ret, s.liveRegions)
	return ret
}

func (s *StubSurface) SetLiveRegions(texts ...string) {
	s.mu.Lock()
	s.liveRegions = texts
	s.mu.Unlock()
}

func (s *StubSurface) PrimaryMedia() (Media, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.media == nil {
		return nil, false
	}
	return s.media, true
}

func (s *StubSurface) SetMedia(media *StubMedia) {
	s.mu.Lock()
	s.media = media
	s.mu.Unlock()
}

// StubMedia is an in-memory Media implementation.
type StubMedia struct {
	mu       sync.RWMutex
	bounds   Rect
	cues     []string
	frame    []byte
	frameErr error
}

func NewStubMedia(bounds Rect) *StubMedia {
	return &StubMedia{bounds: bounds}
}

func (m *StubMedia) Bounds() Rect {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

func (m *StubMedia) ActiveCues() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ret := make([]string, len(m.cues))
	copy(ret, m.cues)
	return ret
}

func (m *StubMedia) SetActiveCues(cues ...string) {
	m.mu.Lock()
	m.cues = cues
	m.mu.Unlock()
}

func (m *StubMedia) CaptureFrame(context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.frameErr != nil {
		return nil, m.frameErr
	}
	return m.frame, nil
}

func (m *StubMedia) SetFrame(frame []byte, err error) {
	m.mu.Lock()
	m.frame = frame
	m.frameErr = err
	m.mu.Unlock()
}
