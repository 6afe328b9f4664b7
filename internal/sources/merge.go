package sources

import (
	"sort"
	"strings"

	"github.com/lingualens/lingualens/internal/explain"
)

var credibilityWeight = map[string]int{
	"high":   3,
	"medium": 2,
	"low":    1,
}

// Merge combines source groups into one list, dropping duplicates. Two
// entries are duplicates when they share a URL, or a title when neither
// has a URL.
func Merge(groups ...[]explain.SourceReference) []explain.SourceReference {
	seen := make(map[string]struct{})
	out := make([]explain.SourceReference, 0)
	for _, group := range groups {
		for _, src := range group {
			key := strings.ToLower(src.URL)
			if key == "" {
				key = "title::" + strings.ToLower(src.Title)
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, src)
		}
	}
	return out
}

// Rank orders sources by credibility, most trustworthy first, with title
// as the tie breaker. The input slice is not modified.
func Rank(list []explain.SourceReference) []explain.SourceReference {
	ranked := make([]explain.SourceReference, len(list))
	copy(ranked, list)
	sort.SliceStable(ranked, func(i, j int) bool {
		wi := credibilityWeight[strings.ToLower(ranked[i].Credibility)]
		wj := credibilityWeight[strings.ToLower(ranked[j].Credibility)]
		if wi != wj {
			return wi > wj
		}
		return ranked[i].Title < ranked[j].Title
	})
	return ranked
}
