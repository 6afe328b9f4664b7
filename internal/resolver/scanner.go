package resolver

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/lingualens/lingualens/internal/surface"
)

// scanResult is the outcome of one structural scan pass. bestRejected keeps
// the highest score among candidates that failed the emission threshold; a
// nonzero value is one of the signals that unlocks the optical fallback.
type scanResult struct {
	element      surface.Element
	score        float64
	found        bool
	bestRejected float64
}

// scanStructural enumerates visible candidates from the selector registry,
// scores each, and picks the winner if it clears the threshold.
func (r *Resolver) scanStructural() scanResult {
	viewport := r.surf.Viewport()
	title := strings.TrimSpace(r.surf.Title())

	var mediaBounds *surface.Rect
	if media, ok := r.surf.PrimaryMedia(); ok {
		bounds := media.Bounds()
		mediaBounds = &bounds
	}

	ret := scanResult{}
	for _, sel := range r.cfg.Selectors {
		for _, el := range r.surf.Query(sel) {
			text := strings.TrimSpace(el.Text)
			if text == "" {
				continue
			}
			// page chrome is never a subtitle
			if el.Region != surface.RegionContent || text == title {
				continue
			}
			score := r.scoreElement(el, sel.Weight, viewport, mediaBounds)
			if score >= r.cfg.MinScore {
				if !ret.found || score > ret.score {
					ret.element = el
					ret.score = score
					ret.found = true
				}
			} else if score > ret.bestRejected {
				ret.bestRejected = score
			}
		}
	}
	return ret
}

func (r *Resolver) scoreElement(el surface.Element, weight float64, viewport surface.Rect, mediaBounds *surface.Rect) float64 {
	score := weight

	// near the horizontal center is where subtitles live
	if viewport.W > 0 {
		offset := math.Abs(el.Bounds.CenterX()-viewport.CenterX()) / (viewport.W / 2)
		score += 1 - clamp01(offset)
	}

	// lower in the viewport is better
	if viewport.H > 0 {
		score += clamp01(el.Bounds.CenterY() / viewport.H)
	}

	// long blocks are unlikely to be a single subtitle line
	if n := utf8.RuneCountInString(el.Text); n > r.cfg.MaxLineLength {
		score -= float64(n-r.cfg.MaxLineLength) / float64(r.cfg.MaxLineLength)
	}

	// tall elements are likely panels, not captions
	if viewport.H > 0 && el.Bounds.H > r.cfg.MaxHeightRatio*viewport.H {
		score -= 1.5
	}

	if mediaBounds != nil {
		affinity := videoAffinity(el.Bounds, *mediaBounds, viewport)
		if affinity < r.cfg.AffinityFloor {
			score -= 2
		} else {
			score += affinity
		}
	}
	return score
}

// videoAffinity combines bounding-box overlap with normalized
// center-to-center distance against the primary media region.
func videoAffinity(el surface.Rect, media surface.Rect, viewport surface.Rect) float64 {
	overlap := 0.0
	if el.Area() > 0 {
		overlap = el.Intersect(media).Area() / el.Area()
	}

	diagonal := math.Hypot(viewport.W, viewport.H)
	proximity := 0.0
	if diagonal > 0 {
		dist := math.Hypot(el.CenterX()-media.CenterX(), el.CenterY()-media.CenterY())
		proximity = 1 - clamp01(dist/diagonal)
	}
	return 0.6*overlap + 0.4*proximity
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
