package sources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingualens/lingualens/internal/explain"
)

func TestMerge_DeduplicatesByURL(t *testing.T) {
	a := []explain.SourceReference{
		{Title: "Wiki", URL: "https://example.org/a", Credibility: "high"},
	}
	b := []explain.SourceReference{
		{Title: "Wiki mirror", URL: "https://example.org/A", Credibility: "low"},
		{Title: "Urban", URL: "https://example.org/b", Credibility: "medium"},
	}

	merged := Merge(a, b)
	require.Len(t, merged, 2)
	assert.Equal(t, "Wiki", merged[0].Title)
}

func TestMerge_DeduplicatesByTitleWhenNoURL(t *testing.T) {
	a := []explain.SourceReference{{Title: "Knowledge Base", Credibility: "low"}}
	b := []explain.SourceReference{{Title: "knowledge base", Credibility: "low"}}

	merged := Merge(a, b)
	assert.Len(t, merged, 1)
}

func TestRank_OrdersByCredibilityThenTitle(t *testing.T) {
	list := []explain.SourceReference{
		{Title: "B low", Credibility: "low"},
		{Title: "Z medium", Credibility: "medium"},
		{Title: "A medium", Credibility: "medium"},
		{Title: "C high", Credibility: "high"},
	}

	ranked := Rank(list)
	require.Len(t, ranked, 4)
	assert.Equal(t, "C high", ranked[0].Title)
	assert.Equal(t, "A medium", ranked[1].Title)
	assert.Equal(t, "Z medium", ranked[2].Title)
	assert.Equal(t, "B low", ranked[3].Title)

	// input order untouched
	assert.Equal(t, "B low", list[0].Title)
}
