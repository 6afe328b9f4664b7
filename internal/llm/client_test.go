package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lingualens/lingualens/internal/explain"
)

func testConfig(baseURL string) *Config {
	return &Config{
		APIKey:      "test-key",
		BaseURL:     baseURL,
		QuickModel:  "quick-model",
		DeepModel:   "deep-model",
		Temperature: 0.3,
		Timeout:     5,
	}
}

func TestQuickExplain_ParsesJSONGloss(t *testing.T) {
	var gotAuth string
	var gotReq completionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"output_text": `{"literal": "no lie", "context": "slang emphasizing honesty"}`,
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	literal, contextGloss, err := client.QuickExplain(context.Background(), explain.Request{
		RequestID:    "r1",
		SubtitleText: "no cap",
		Languages:    explain.LanguagePair{Primary: "en"},
	})
	require.NoError(t, err)
	assert.Equal(t, "no lie", literal)
	assert.Equal(t, "slang emphasizing honesty", contextGloss)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "quick-model", gotReq.Model)
	assert.Contains(t, gotReq.Input, "no cap")
}

func TestQuickExplain_RefusalIsDistinctFromParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"refusal": "content policy",
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, _, err = client.QuickExplain(context.Background(), explain.Request{SubtitleText: "x"})
	require.Error(t, err)
	assert.True(t, explain.IsKind(err, explain.FailRefusal))
}

func TestQuickExplain_UnknownShapeIsParseFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "resp", "status": "completed"})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, _, err = client.QuickExplain(context.Background(), explain.Request{SubtitleText: "x"})
	require.Error(t, err)
	assert.True(t, explain.IsKind(err, explain.FailParse))
}

func TestDeepExplainStream_Non2xxIsNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.DeepExplainStream(context.Background(), explain.Request{SubtitleText: "x"}, nil, nil)
	require.Error(t, err)
	assert.True(t, explain.IsKind(err, explain.FailNetwork))
	assert.Contains(t, err.Error(), "503")
}

func TestSource_MissingCredential(t *testing.T) {
	source := NewSource(Config{
		BaseURL:    "http://localhost",
		QuickModel: "q",
		DeepModel:  "d",
		Timeout:    5,
	})

	assert.False(t, source.Configured())
	_, err := source.Client()
	require.Error(t, err)
	assert.True(t, explain.IsKind(err, explain.FailMissingCredential))

	source.StoreCredentials("  a-key  ", "")
	assert.True(t, source.Configured())
	client, err := source.Client()
	require.NoError(t, err)
	assert.NotNil(t, client)
}
