package llm

import (
	"fmt"
	"strings"

	"github.com/lingualens/lingualens/internal/explain"
)

// buildQuickPrompt assembles the quick-explain instruction. The profile
// section is included only when the request carries one.
func buildQuickPrompt(req explain.Request) string {
	secondary := "Secondary language: none"
	if req.Languages.Secondary != "" {
		secondary = "Secondary language: " + req.Languages.Secondary
	}

	surrounding := req.Surrounding
	if surrounding == "" {
		surrounding = "n/a"
	}

	lines := []string{
		"You are LinguaLens Quick Explain.",
		"Primary language: " + req.Languages.Primary,
		secondary,
		"Subtitle: " + req.SubtitleText,
		"Context: " + surrounding,
		"Return JSON with literal and context fields.",
	}
	if req.Profile != nil {
		lines = append(lines, profileLines(*req.Profile)...)
	}
	return strings.Join(lines, "\n")
}

func profileLines(p explain.Profile) []string {
	cultures := strings.Join(p.Cultures, ", ")
	if cultures == "" {
		cultures = "none"
	}
	gender := p.Demographics.Gender
	if gender == "" {
		gender = "unspecified"
	}
	goals := p.Goals
	if goals == "" {
		goals = "none specified"
	}
	return []string{
		fmt.Sprintf("User profile: %s (id: %s)", p.Name, p.ID),
		"Primary language preference: " + p.PrimaryLanguage,
		"Cultural focus: " + cultures,
		fmt.Sprintf("Demographics: age_range=%s, region=%s, occupation=%s, gender=%s",
			p.Demographics.AgeRange, p.Demographics.Region, p.Demographics.Occupation, gender),
		"Tone preference: " + p.Tone,
		"Learning goals: " + goals,
		"Description: " + p.Description,
		"Adjust literal/context to resonate with the profile while staying accurate and concise.",
	}
}
