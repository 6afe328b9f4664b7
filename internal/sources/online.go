// Package sources gathers and ranks citation candidates for deep
// explanations from public reference endpoints.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/pkg/log"
)

const (
	defaultUrbanURL = "https://api.urbandictionary.com/v0/define"
	defaultWikiURL  = "https://en.wikipedia.org/api/rest_v1/page/summary/"
)

// localRetriever matches a query against the local knowledge collection.
type localRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]RetrievedDocument, error)
}

// Finder looks up a subtitle line in the local knowledge collection and in
// online references. Lookups are best-effort: failures degrade to fewer
// sources, never to an error.
type Finder struct {
	urbanURL   string
	wikiURL    string
	enabled    bool
	retriever  localRetriever
	httpClient *http.Client
}

type FinderOption func(*Finder)

// WithRetriever adds local knowledge retrieval ahead of online lookups.
func WithRetriever(r localRetriever) FinderOption {
	return func(f *Finder) {
		f.retriever = r
	}
}

func NewFinder(urbanURL string, wikiURL string, enabled bool, opts ...FinderOption) *Finder {
	if urbanURL == "" {
		urbanURL = defaultUrbanURL
	}
	if wikiURL == "" {
		wikiURL = defaultWikiURL
	}
	f := &Finder{
		urbanURL: urbanURL,
		wikiURL:  wikiURL,
		enabled:  enabled,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Collect fetches, merges, and ranks sources for a query. Always returns at
// least one entry so deep payloads carry a citation section.
func (f *Finder) Collect(ctx context.Context, query string) []explain.SourceReference {
	groups := make([][]explain.SourceReference, 0, 3)
	if f.retriever != nil {
		if docs, err := f.retriever.Retrieve(ctx, query, 5); err != nil {
			log.Debug("Knowledge retrieval failed: %v", err)
		} else if len(docs) > 0 {
			groups = append(groups, DocumentsToSources(docs))
		}
	}
	if f.enabled {
		if urban, err := f.fetchUrbanDictionary(ctx, query); err != nil {
			log.Debug("Urban Dictionary lookup failed: %v", err)
		} else {
			groups = append(groups, urban)
		}
		if wiki, err := f.fetchWikipediaSummary(ctx, query); err != nil {
			log.Debug("Wikipedia lookup failed: %v", err)
		} else {
			groups = append(groups, wiki)
		}
	}

	merged := Rank(Merge(groups...))
	if len(merged) == 0 {
		merged = append(merged, explain.SourceReference{
			Title:       "LinguaLens Knowledge Base",
			URL:         "",
			Credibility: "low",
			Excerpt:     "No external sources retrieved.",
		})
	}
	return merged
}

type urbanResponse struct {
	List []struct {
		Word       string `json:"word"`
		Permalink  string `json:"permalink"`
		Definition string `json:"definition"`
	} `json:"list"`
}

func (f *Finder) fetchUrbanDictionary(ctx context.Context, query string) ([]explain.SourceReference, error) {
	endpoint := f.urbanURL + "?term=" + url.QueryEscape(query)
	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var decoded urbanResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}

	ret := make([]explain.SourceReference, 0, 2)
	for i, entry := range decoded.List {
		if i >= 2 {
			break
		}
		ret = append(ret, explain.SourceReference{
			Title:       "Urban Dictionary: " + entry.Word,
			URL:         entry.Permalink,
			Credibility: "medium",
			Excerpt:     entry.Definition,
		})
	}
	return ret, nil
}

type wikiResponse struct {
	Title       string `json:"title"`
	Extract     string `json:"extract"`
	ContentURLs struct {
		Desktop struct {
			Page string `json:"page"`
		} `json:"desktop"`
	} `json:"content_urls"`
}

func (f *Finder) fetchWikipediaSummary(ctx context.Context, query string) ([]explain.SourceReference, error) {
	endpoint := f.wikiURL + url.PathEscape(strings.ReplaceAll(query, " ", "_"))
	body, err := f.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	var decoded wikiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, err
	}
	title := decoded.Title
	if title == "" {
		title = query
	}
	return []explain.SourceReference{{
		Title:       title,
		URL:         decoded.ContentURLs.Desktop.Page,
		Credibility: "high",
		Excerpt:     decoded.Extract,
	}}, nil
}

func (f *Finder) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("lookup failed with status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
