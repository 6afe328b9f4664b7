package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect_MergesUrbanAndWikipedia(t *testing.T) {
	var wikiPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/define", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "no cap", r.URL.Query().Get("term"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"list": [
			{"word": "no cap", "permalink": "https://ud.example/no-cap", "definition": "for real"},
			{"word": "no cap 2", "permalink": "https://ud.example/no-cap-2", "definition": "again"},
			{"word": "no cap 3", "permalink": "https://ud.example/no-cap-3", "definition": "ignored"}
		]}`))
	})
	mux.HandleFunc("/summary/", func(w http.ResponseWriter, r *http.Request) {
		wikiPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "Cap (slang)",
			"extract": "A slang term.",
			"content_urls": {"desktop": {"page": "https://wiki.example/Cap"}}
		}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	finder := NewFinder(server.URL+"/define", server.URL+"/summary/", true)
	refs := finder.Collect(context.Background(), "no cap")

	// spaces become underscores in the summary path
	assert.Equal(t, "/summary/no_cap", wikiPath)

	require.Len(t, refs, 3)
	// wikipedia outranks urban dictionary
	assert.Equal(t, "Cap (slang)", refs[0].Title)
	assert.Equal(t, "high", refs[0].Credibility)
	assert.Equal(t, "medium", refs[1].Credibility)
	assert.Equal(t, "medium", refs[2].Credibility)
}

func TestCollect_DegradesToPlaceholderWhenLookupsFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	finder := NewFinder(server.URL+"/define", server.URL+"/summary/", true)
	refs := finder.Collect(context.Background(), "anything")

	require.Len(t, refs, 1)
	assert.Equal(t, "low", refs[0].Credibility)
}

func TestCollect_DisabledSkipsNetwork(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	finder := NewFinder(server.URL+"/define", server.URL+"/summary/", false)
	refs := finder.Collect(context.Background(), "anything")

	assert.False(t, called)
	require.Len(t, refs, 1)
	assert.Equal(t, "LinguaLens Knowledge Base", refs[0].Title)
}
