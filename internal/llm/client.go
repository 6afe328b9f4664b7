// Package llm is the client for the external explanation service: a direct
// completion call for quick glosses and a chunked streaming call for deep
// explanations. Prompt construction and model invocation live behind the
// service's network boundary; this package only shapes requests and
// extracts text from the handful of response shapes providers produce.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lingualens/lingualens/internal/explain"
)

// Client talks to the explanation service. Thread-safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
	// streaming calls may far outlive the request timeout; they are bounded
	// by the caller's context instead
	streamClient *http.Client
	baseURL      string
}

// NewClient creates a new explanation client with the given configuration.
func NewClient(config *Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &Client{
		config:  config,
		baseURL: config.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(config.Timeout) * time.Second,
		},
		streamClient: &http.Client{},
	}, nil
}

type completionRequest struct {
	Model           string  `json:"model"`
	Input           string  `json:"input"`
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"max_output_tokens"`
}

// QuickExplain requests the low-latency literal/context gloss for one
// subtitle line.
func (c *Client) QuickExplain(ctx context.Context, req explain.Request) (literal string, contextGloss string, err error) {
	payload := completionRequest{
		Model:           c.config.QuickModel,
		Input:           buildQuickPrompt(req),
		Temperature:     0.3,
		MaxOutputTokens: 360,
	}

	body, err := c.postJSON(ctx, "/responses", payload)
	if err != nil {
		return "", "", err
	}

	text, err := c.extractOutput(body)
	if err != nil {
		return "", "", err
	}
	literal, contextGloss = explain.SplitQuickOutput(text)
	return literal, contextGloss, nil
}

type deepStreamRequest struct {
	explain.Request
	Variants []explain.Profile         `json:"variants,omitempty"`
	Sources  []explain.SourceReference `json:"sources,omitempty"`
}

// DeepExplainStream opens the streaming deep-explanation call. The body
// mirrors the explain request plus the optional profile variants and
// pre-fetched sources; the returned stream is decoded by the caller.
func (c *Client) DeepExplainStream(ctx context.Context, req explain.Request, variants []explain.Profile, sources []explain.SourceReference) (io.ReadCloser, error) {
	payload := deepStreamRequest{
		Request:  req,
		Variants: variants,
		Sources:  sources,
	}
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, explain.WrapError(explain.FailParse, "encode deep request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/explain/deep", bytes.NewReader(jsonData))
	if err != nil {
		return nil, explain.WrapError(explain.FailNetwork, "create request", err)
	}
	for key, value := range c.config.GetHeaders() {
		httpReq.Header.Set(key, value)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		return nil, explain.WrapError(explain.FailNetwork, "deep explain call failed", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		_ = resp.Body.Close()
		return nil, explain.NewError(explain.FailNetwork,
			fmt.Sprintf("deep explain call failed with status %d: %s", resp.StatusCode, string(detail)))
	}
	return resp.Body, nil
}

func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, explain.WrapError(explain.FailParse, "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, explain.WrapError(explain.FailNetwork, "create request", err)
	}
	for key, value := range c.config.GetHeaders() {
		req.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, explain.WrapError(explain.FailNetwork, "request failed", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, explain.WrapError(explain.FailNetwork, "read response", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, explain.NewError(explain.FailNetwork,
			fmt.Sprintf("request failed with status %d: %s", resp.StatusCode, truncate(string(body), 300)))
	}
	return body, nil
}

// extractOutput decodes a completion body and pulls out the generated text,
// distinguishing provider refusals from malformed responses.
func (c *Client) extractOutput(body []byte) (string, error) {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", explain.WrapError(explain.FailParse, "response is not valid JSON", err)
	}

	if reason := refusalReason(decoded); reason != "" {
		return "", explain.NewError(explain.FailRefusal, reason)
	}

	text, ok := explain.OutputText(decoded)
	if !ok {
		return "", explain.NewError(explain.FailParse, "response did not contain model output in a known shape")
	}
	return text, nil
}

// refusalReason detects a well-formed response signaling the provider
// declined to answer.
func refusalReason(decoded map[string]any) string {
	if errObj, ok := decoded["error"].(map[string]any); ok {
		if msg, ok := errObj["message"].(string); ok && msg != "" {
			return msg
		}
		return "provider reported an error"
	}
	if refusal, ok := decoded["refusal"].(string); ok && refusal != "" {
		return refusal
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
