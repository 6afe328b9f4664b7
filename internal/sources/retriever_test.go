package sources

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingualens/lingualens/internal/persistence"
)

type memKnowledgeBackend struct {
	docs map[string]map[string]persistence.KnowledgeDocument
}

func newMemKnowledgeBackend() *memKnowledgeBackend {
	return &memKnowledgeBackend{docs: make(map[string]map[string]persistence.KnowledgeDocument)}
}

func (b *memKnowledgeBackend) UpsertKnowledgeDocument(_ context.Context, doc persistence.KnowledgeDocument) error {
	collection, ok := b.docs[doc.Collection]
	if !ok {
		collection = make(map[string]persistence.KnowledgeDocument)
		b.docs[doc.Collection] = collection
	}
	collection[doc.ID] = doc
	return nil
}

func (b *memKnowledgeBackend) ListKnowledgeDocuments(_ context.Context, collection string) ([]persistence.KnowledgeDocument, error) {
	ret := make([]persistence.KnowledgeDocument, 0)
	for _, doc := range b.docs[collection] {
		ret = append(ret, doc)
	}
	return ret, nil
}

func TestRetriever_IngestSkipsInvalidDocuments(t *testing.T) {
	backend := newMemKnowledgeBackend()
	retriever := NewRetriever(backend, "")

	count, err := retriever.Ingest(context.Background(), "slang", []Document{
		{ID: "d1", Text: "cap means a lie"},
		{ID: "", Text: "no id"},
		{ID: "d3", Text: "   "},
		{ID: "d4", Text: "bet expresses agreement"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, backend.docs["slang"], 2)
}

func TestRetriever_RetrieveRanksByTermOverlap(t *testing.T) {
	backend := newMemKnowledgeBackend()
	retriever := NewRetriever(backend, "")

	_, err := retriever.Ingest(context.Background(), DefaultCollection, []Document{
		{ID: "d1", Text: "cap means a lie or exaggeration in slang"},
		{ID: "d2", Text: "no cap means no lie, the speaker is sincere"},
		{ID: "d3", Text: "completely unrelated cooking instructions"},
	})
	require.NoError(t, err)

	docs, err := retriever.Retrieve(context.Background(), "no cap", 5)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Text, "no cap means no lie")
	assert.Greater(t, docs[0].Score, docs[1].Score)
}

func TestRetriever_RetrieveHonorsTopK(t *testing.T) {
	backend := newMemKnowledgeBackend()
	retriever := NewRetriever(backend, "")

	ingest := make([]Document, 0, 4)
	for _, id := range []string{"d1", "d2", "d3", "d4"} {
		ingest = append(ingest, Document{ID: id, Text: "slang phrase " + id})
	}
	_, err := retriever.Ingest(context.Background(), DefaultCollection, ingest)
	require.NoError(t, err)

	docs, err := retriever.Retrieve(context.Background(), "slang phrase", 2)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestRetriever_RetrieveEmptyQuery(t *testing.T) {
	retriever := NewRetriever(newMemKnowledgeBackend(), "")

	docs, err := retriever.Retrieve(context.Background(), "  ?!  ", 5)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestDocumentsToSources(t *testing.T) {
	docs := []RetrievedDocument{
		{
			Text: "cap means a lie",
			Metadata: map[string]string{
				"title":       "Slang Glossary",
				"url":         "https://glossary.example/cap",
				"credibility": "high",
			},
		},
		{Text: strings.Repeat("x", 300)},
	}

	refs := DocumentsToSources(docs)
	require.Len(t, refs, 2)
	assert.Equal(t, "Slang Glossary", refs[0].Title)
	assert.Equal(t, "https://glossary.example/cap", refs[0].URL)
	assert.Equal(t, "high", refs[0].Credibility)

	assert.Equal(t, "Knowledge Base Note", refs[1].Title)
	assert.Equal(t, "medium", refs[1].Credibility)
	assert.Len(t, refs[1].Excerpt, 240)
}

func TestFinder_CollectIncludesRetrievedKnowledge(t *testing.T) {
	backend := newMemKnowledgeBackend()
	retriever := NewRetriever(backend, "")
	_, err := retriever.Ingest(context.Background(), DefaultCollection, []Document{
		{ID: "d1", Text: "no cap means no lie", Metadata: map[string]string{
			"title": "Slang Glossary", "credibility": "high",
		}},
	})
	require.NoError(t, err)

	finder := NewFinder("", "", false, WithRetriever(retriever))
	refs := finder.Collect(context.Background(), "no cap")

	require.Len(t, refs, 1)
	assert.Equal(t, "Slang Glossary", refs[0].Title)
	assert.Equal(t, "no cap means no lie", refs[0].Excerpt)
}
