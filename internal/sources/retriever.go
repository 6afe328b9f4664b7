package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lingualens/lingualens/internal/explain"
	"github.com/lingualens/lingualens/internal/persistence"
)

// DefaultCollection is the knowledge collection deep explains retrieve from.
const DefaultCollection = "lingualens"

// excerptLimit caps how much of a retrieved document lands in a citation.
const excerptLimit = 240

// Document is one reference document submitted for ingestion.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// RetrievedDocument is one scored match from the knowledge collection.
type RetrievedDocument struct {
	Text     string
	Metadata map[string]string
	Score    float64
}

type knowledgeBackend interface {
	UpsertKnowledgeDocument(ctx context.Context, doc persistence.KnowledgeDocument) error
	ListKnowledgeDocuments(ctx context.Context, collection string) ([]persistence.KnowledgeDocument, error)
}

// Retriever matches a subtitle line against locally ingested reference
// documents. Matching is lexical: documents are scored by the share of query
// terms they contain.
type Retriever struct {
	backend    knowledgeBackend
	collection string
}

func NewRetriever(backend knowledgeBackend, collection string) *Retriever {
	if collection == "" {
		collection = DefaultCollection
	}
	return &Retriever{
		backend:    backend,
		collection: collection,
	}
}

// Ingest upserts documents into the named collection and returns how many
// were stored.
func (r *Retriever) Ingest(ctx context.Context, collection string, docs []Document) (int, error) {
	if collection == "" {
		collection = r.collection
	}
	now := time.Now()
	stored := 0
	for _, doc := range docs {
		if doc.ID == "" || strings.TrimSpace(doc.Text) == "" {
			continue
		}
		metadata, err := json.Marshal(doc.Metadata)
		if err != nil {
			return stored, fmt.Errorf("encode document %s metadata: %w", doc.ID, err)
		}
		record := persistence.KnowledgeDocument{
			Collection: collection,
			ID:         doc.ID,
			Text:       doc.Text,
			Metadata:   metadata,
			CreatedAt:  now,
		}
		if err := r.backend.UpsertKnowledgeDocument(ctx, record); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// Retrieve returns the top-k documents matching the query, highest score
// first. Documents sharing no term with the query are skipped.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]RetrievedDocument, error) {
	if topK <= 0 {
		topK = 5
	}
	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	records, err := r.backend.ListKnowledgeDocuments(ctx, r.collection)
	if err != nil {
		return nil, err
	}

	matches := make([]RetrievedDocument, 0, len(records))
	for _, record := range records {
		score := overlapScore(terms, record.Text)
		if score == 0 {
			continue
		}
		doc := RetrievedDocument{Text: record.Text, Score: score}
		if len(record.Metadata) > 0 {
			if err := json.Unmarshal(record.Metadata, &doc.Metadata); err != nil {
				doc.Metadata = nil
			}
		}
		matches = append(matches, doc)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// DocumentsToSources converts retrieved documents into citation entries,
// reading title, url, and credibility from the document metadata.
func DocumentsToSources(docs []RetrievedDocument) []explain.SourceReference {
	ret := make([]explain.SourceReference, 0, len(docs))
	for _, doc := range docs {
		source := explain.SourceReference{
			Title:       metadataOr(doc.Metadata, "title", "Knowledge Base Note"),
			URL:         doc.Metadata["url"],
			Credibility: metadataOr(doc.Metadata, "credibility", "medium"),
			Excerpt:     doc.Text,
		}
		if len(source.Excerpt) > excerptLimit {
			source.Excerpt = source.Excerpt[:excerptLimit]
		}
		ret = append(ret, source)
	}
	return ret
}

// overlapScore is the share of query terms present in the document text.
func overlapScore(terms []string, text string) float64 {
	lowered := strings.ToLower(text)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lowered, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	for _, field := range fields {
		field = strings.Trim(field, ".,!?\"'()")
		if len(field) >= 2 {
			terms = append(terms, field)
		}
	}
	return terms
}

func metadataOr(metadata map[string]string, key string, fallback string) string {
	if value := metadata[key]; value != "" {
		return value
	}
	return fallback
}
