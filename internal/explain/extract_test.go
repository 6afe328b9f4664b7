package explain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePayload(t *testing.T, raw string) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))
	return payload
}

func TestOutputText_StringField(t *testing.T) {
	payload := decodePayload(t, `{"output_text": "a gloss"}`)

	text, ok := OutputText(payload)
	require.True(t, ok)
	assert.Equal(t, "a gloss", text)
}

func TestOutputText_ListField(t *testing.T) {
	payload := decodePayload(t, `{"output_text": ["first", "second"]}`)

	text, ok := OutputText(payload)
	require.True(t, ok)
	assert.Equal(t, "first\nsecond", text)
}

func TestOutputText_ResponsesBlocks(t *testing.T) {
	payload := decodePayload(t, `{
		"output": [
			{"content": [{"type": "output_text", "text": "block one"}]},
			{"content": [{"type": "output_text", "text": "block two"}]}
		]
	}`)

	text, ok := OutputText(payload)
	require.True(t, ok)
	assert.Equal(t, "block one\nblock two", text)
}

func TestOutputText_ChatChoices(t *testing.T) {
	payload := decodePayload(t, `{
		"choices": [{"message": {"role": "assistant", "content": "from chat"}}]
	}`)

	text, ok := OutputText(payload)
	require.True(t, ok)
	assert.Equal(t, "from chat", text)
}

func TestOutputText_UnknownShape(t *testing.T) {
	payload := decodePayload(t, `{"id": "resp_123", "status": "completed"}`)

	_, ok := OutputText(payload)
	assert.False(t, ok)
}

func TestSplitQuickOutput_PrefersJSON(t *testing.T) {
	literal, contextGloss := SplitQuickOutput(`{"literal": "no cap", "context": "slang for honestly"}`)

	assert.Equal(t, "no cap", literal)
	assert.Equal(t, "slang for honestly", contextGloss)
}

func TestSplitQuickOutput_PlainTextFallsBackToLines(t *testing.T) {
	literal, contextGloss := SplitQuickOutput("word for word\nused when someone is being sincere")

	assert.Equal(t, "word for word", literal)
	assert.Equal(t, "used when someone is being sincere", contextGloss)
}

func TestParseDeepOutput_FullShape(t *testing.T) {
	fields := ParseDeepOutput(`{
		"background": {"summary": "a summary", "detail": "the detail", "highlights": ["one", "two"]},
		"crossCulture": [
			{"profileId": "p1", "profileName": "Teens", "analogy": "like X", "confidence": "high"},
			{"profile": "Elders", "explanation": "similar to Y", "nextSteps": "read more"}
		],
		"confidence": "high",
		"reasoningNotes": "short chain"
	}`)

	assert.Equal(t, "a summary", fields.Background.Summary)
	assert.Equal(t, "the detail", fields.Background.Detail)
	assert.Equal(t, []string{"one", "two"}, fields.Background.Highlights)
	assert.Equal(t, "high", fields.Confidence.Level)
	assert.Equal(t, "short chain", fields.ReasoningNotes)

	require.Len(t, fields.CrossCulture, 2)
	assert.Equal(t, "p1", fields.CrossCulture[0].ProfileID)
	assert.Equal(t, "like X", fields.CrossCulture[0].Analogy)
	assert.Equal(t, "high", fields.CrossCulture[0].Confidence)
	assert.Equal(t, "Elders", fields.CrossCulture[1].ProfileID)
	assert.Equal(t, "similar to Y", fields.CrossCulture[1].Analogy)
	assert.Equal(t, "medium", fields.CrossCulture[1].Confidence)
	assert.Equal(t, "read more", fields.CrossCulture[1].Notes)
}

func TestParseDeepOutput_BackgroundAsString(t *testing.T) {
	fields := ParseDeepOutput(`{"background": "just a sentence"}`)

	assert.Equal(t, "just a sentence", fields.Background.Summary)
	assert.Equal(t, "medium", fields.Confidence.Level)
}

func TestParseDeepOutput_NonJSONDegradesToSummary(t *testing.T) {
	fields := ParseDeepOutput("the model ignored the format")

	assert.Equal(t, "the model ignored the format", fields.Background.Summary)
	assert.Equal(t, "medium", fields.Confidence.Level)
	assert.Empty(t, fields.CrossCulture)
}

func TestDeepPatch_ApplyToMergesOnlyPresentFields(t *testing.T) {
	dst := DeepPayload{
		RequestID:  "req-1",
		Background: Background{Summary: "old"},
		Confidence: Confidence{Level: "low"},
	}

	summary := Background{Summary: "new"}
	patch := DeepPatch{Background: &summary}
	patch.ApplyTo(&dst)

	assert.Equal(t, "new", dst.Background.Summary)
	assert.Equal(t, "req-1", dst.RequestID)
	assert.Equal(t, "low", dst.Confidence.Level)
}
