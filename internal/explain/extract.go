package explain

import (
	"encoding/json"
	"strings"
)

// The completion endpoint is loose about where the generated text lives.
// Each strategy knows one response shape and returns (text, ok); they are
// tried in declaration order and the first hit wins.
type outputStrategy struct {
	name    string
	extract func(payload map[string]any) (string, bool)
}

var outputStrategies = []outputStrategy{
	{name: "output_text_string", extract: outputTextString},
	{name: "output_text_list", extract: outputTextList},
	{name: "responses_output_blocks", extract: responsesOutputBlocks},
	{name: "chat_choices", extract: chatChoices},
}

// OutputText extracts the generated text from a decoded completion response.
// Returns ("", false) when no known shape matches.
func OutputText(payload map[string]any) (string, bool) {
	for _, strategy := range outputStrategies {
		if text, ok := strategy.extract(payload); ok {
			return text, true
		}
	}
	return "", false
}

func outputTextString(payload map[string]any) (string, bool) {
	text, ok := payload["output_text"].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

func outputTextList(payload map[string]any) (string, bool) {
	list, ok := payload["output_text"].([]any)
	if !ok || len(list) == 0 {
		return "", false
	}
	parts := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// responses-API shape: output[].content[].text
func responsesOutputBlocks(payload map[string]any) (string, bool) {
	output, ok := payload["output"].([]any)
	if !ok {
		return "", false
	}
	parts := make([]string, 0)
	for _, block := range output {
		m, ok := block.(map[string]any)
		if !ok {
			continue
		}
		content, ok := m["content"].([]any)
		if !ok {
			continue
		}
		for _, piece := range content {
			pm, ok := piece.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := pm["text"].(string); ok && text != "" {
				parts = append(parts, text)
			}
		}
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, "\n"), true
}

// chat-completions shape: choices[0].message.content
func chatChoices(payload map[string]any) (string, bool) {
	choices, ok := payload["choices"].([]any)
	if !ok || len(choices) == 0 {
		return "", false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return "", false
	}
	message, ok := first["message"].(map[string]any)
	if !ok {
		return "", false
	}
	text, ok := message["content"].(string)
	if !ok || text == "" {
		return "", false
	}
	return text, true
}

// SplitQuickOutput turns model output into the (literal, context) pair.
// JSON with literal/context fields is preferred; otherwise the first line is
// the literal gloss and the remainder the context.
func SplitQuickOutput(text string) (string, string) {
	var value struct {
		Literal string `json:"literal"`
		Context string `json:"context"`
	}
	if err := json.Unmarshal([]byte(text), &value); err == nil {
		if value.Literal != "" || value.Context != "" {
			return value.Literal, value.Context
		}
	}
	lines := strings.Split(text, "\n")
	if len(lines) == 0 {
		return "", ""
	}
	return lines[0], strings.TrimSpace(strings.Join(lines[1:], "\n"))
}

// DeepFields is the parsed body of a deep explanation before assembly into a
// DeepPayload.
type DeepFields struct {
	Background      Background
	CrossCulture    []CrossCultureInsight
	Confidence      Confidence
	ConfidenceNotes string
	ReasoningNotes  string
}

// ParseDeepOutput parses model output for a deep explanation, tolerating the
// field aliases models drift into. Non-JSON text degrades to a background
// summary with medium confidence.
func ParseDeepOutput(text string) DeepFields {
	fallback := DeepFields{
		Background: Background{Summary: text},
		Confidence: Confidence{Level: "medium"},
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return fallback
	}

	ret := DeepFields{
		Background: parseBackground(raw["background"]),
		Confidence: Confidence{Level: stringOr(raw["confidence"], "medium")},
	}
	ret.ConfidenceNotes = stringOr(raw["confidenceNotes"], "")
	ret.ReasoningNotes = stringOr(raw["reasoningNotes"], "")
	ret.Confidence.Notes = ret.ConfidenceNotes

	entries, _ := raw["crossCulture"].([]any)
	for _, item := range entries {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		profileID := firstString(entry, "profileId", "id", "profile", "profileName")
		if profileID == "" {
			profileID = "profile"
		}
		name := firstString(entry, "profileName", "profile")
		if name == "" {
			name = profileID
		}
		ret.CrossCulture = append(ret.CrossCulture, CrossCultureInsight{
			ProfileID:   profileID,
			ProfileName: name,
			Analogy:     firstString(entry, "analogy", "explanation"),
			Confidence:  stringOr(entry["confidence"], "medium"),
			Notes:       firstString(entry, "notes", "nextSteps"),
		})
	}
	return ret
}

// background arrives either as an object or as bare text
func parseBackground(value any) Background {
	switch v := value.(type) {
	case string:
		return Background{Summary: v}
	case map[string]any:
		ret := Background{
			Summary: stringOr(v["summary"], ""),
			Detail:  stringOr(v["detail"], ""),
		}
		if highlights, ok := v["highlights"].([]any); ok {
			for _, h := range highlights {
				if s, ok := h.(string); ok {
					ret.Highlights = append(ret.Highlights, s)
				}
			}
		}
		return ret
	default:
		return Background{}
	}
}

func stringOr(value any, fallback string) string {
	if s, ok := value.(string); ok && s != "" {
		return s
	}
	return fallback
}

func firstString(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := m[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
