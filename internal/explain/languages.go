package explain

import (
	"strings"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
)

// NormalizeLanguages canonicalizes the language codes of a pair and, when the
// primary is missing, detects it from the subtitle line itself.
func NormalizeLanguages(pair LanguagePair, subtitleText string) LanguagePair {
	ret := LanguagePair{
		Primary:   normalizeLanguageCode(pair.Primary),
		Secondary: normalizeLanguageCode(pair.Secondary),
	}
	if ret.Primary == "" {
		ret.Primary = DetectLanguage(subtitleText)
	}
	if ret.Primary == "" {
		ret.Primary = "en"
	}
	return ret
}

// DetectLanguage guesses the ISO 639-1 code of a text line. Returns "" when
// the text is too short to say anything useful.
func DetectLanguage(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < 3 {
		return ""
	}
	info := whatlanggo.Detect(trimmed)
	if !info.IsReliable() {
		return ""
	}
	return info.Lang.Iso6391()
}

func normalizeLanguageCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}
	tag, err := language.Parse(trimmed)
	if err != nil {
		return ""
	}
	base, _ := tag.Base()
	return base.String()
}
