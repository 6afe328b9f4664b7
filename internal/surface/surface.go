// Package surface abstracts the bounded visual surface the resolver watches.
// The resolver never touches a concrete document API; it only needs to
// enumerate visible text elements matching weighted selectors, read bounding
// boxes, and reach the primary media region.
package surface

import "context"

// Rect is an axis-aligned bounding box in surface coordinates.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func (r Rect) CenterX() float64 { return r.X + r.W/2 }
func (r Rect) CenterY() float64 { return r.Y + r.H/2 }
func (r Rect) Area() float64    { return r.W * r.H }

// Intersect returns the overlapping region of two rects; a zero-area Rect
// when they are disjoint.
func (r Rect) Intersect(o Rect) Rect {
	x1 := max(r.X, o.X)
	y1 := max(r.Y, o.Y)
	x2 := min(r.X+r.W, o.X+o.W)
	y2 := min(r.Y+r.H, o.Y+o.H)
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{X: x1, Y: y1, W: x2 - x1, H: y2 - y1}
}

// Region classifies where on the surface an element lives. Navigation and
// banner regions are page chrome, never subtitles.
type Region int

const (
	RegionContent Region = iota
	RegionNavigation
	RegionBanner
)

// Element is one visible text node candidate.
type Element struct {
	Text   string
	Bounds Rect
	Region Region
}

// Selector pairs a structural query with its rank weight. Host-specific
// selectors outrank generic structural ones.
type Selector struct {
	Query  string
	Weight float64
}

// Surface is a bounded document/viewport the resolver scans.
type Surface interface {
	// Host identifies the site the surface belongs to.
	Host() string
	// Title is the document title, used to reject page-chrome candidates.
	Title() string
	Viewport() Rect
	// Query returns the currently visible elements matching a selector.
	Query(sel Selector) []Element
	// LiveRegions returns the text of accessibility live-announcement
	// regions, unordered.
	LiveRegions() []string
	// PrimaryMedia locates the main playing media region, if any.
	PrimaryMedia() (Media, bool)
}

// Media is the primary playback region of a surface.
type Media interface {
	Bounds() Rect
	// ActiveCues returns subtitle-track cue texts at the current playback
	// time. Implementations switch disabled tracks to a hidden-but-queryable
	// mode before reading.
	ActiveCues() []string
	// CaptureFrame grabs the current frame for optical recognition.
	CaptureFrame(ctx context.Context) ([]byte, error)
}
