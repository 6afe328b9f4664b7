package explain

// Mode selects the explanation depth for a request.
type Mode string

const (
	ModeQuick Mode = "quick"
	ModeDeep  Mode = "deep"
)

// LanguagePair carries the viewer's primary language and an optional fallback.
type LanguagePair struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary,omitempty"`
}

// Demographics describes the audience a profile represents.
type Demographics struct {
	AgeRange   string `json:"ageRange"`
	Region     string `json:"region"`
	Occupation string `json:"occupation"`
	Gender     string `json:"gender,omitempty"`
}

// Profile is a saved demographic/tone template used to personalize deep
// explanations. Owned by the profile store; consumed read-only elsewhere.
type Profile struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	PrimaryLanguage    string       `json:"primaryLanguage"`
	Cultures           []string     `json:"cultures"`
	Demographics       Demographics `json:"demographics"`
	PersonalPreference string       `json:"personalPreference,omitempty"`
	Tone               string       `json:"tone"`
	Goals              string       `json:"goals,omitempty"`
	CreatedAt          int64        `json:"createdAt"`
	UpdatedAt          int64        `json:"updatedAt"`
}

// Request is one user-triggered explain action. RequestID correlates every
// later asynchronous event (cache hit, network completion, stream progress).
type Request struct {
	RequestID    string       `json:"requestId"`
	Mode         Mode         `json:"mode"`
	SubtitleText string       `json:"subtitleText"`
	Surrounding  string       `json:"surrounding,omitempty"`
	Timestamp    int64        `json:"timestamp"`
	ProfileID    string       `json:"profileId,omitempty"`
	Profile      *Profile     `json:"profile,omitempty"`
	Profiles     []Profile    `json:"profiles,omitempty"`
	Languages    LanguagePair `json:"languages"`
}

// SourceReference is one cited source attached to a deep explanation.
type SourceReference struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Credibility string `json:"credibility"` // high, medium, low
	Excerpt     string `json:"excerpt,omitempty"`
}

// Background is the narrative part of a deep explanation.
type Background struct {
	Summary    string   `json:"summary"`
	Detail     string   `json:"detail,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

// Confidence grades how much to trust a deep explanation.
type Confidence struct {
	Level string `json:"level"` // high, medium, low
	Notes string `json:"notes,omitempty"`
}

// CrossCultureInsight adapts the explanation to one profile.
type CrossCultureInsight struct {
	ProfileID   string `json:"profileId"`
	ProfileName string `json:"profileName"`
	Analogy     string `json:"analogy"`
	Confidence  string `json:"confidence"`
	Notes       string `json:"notes,omitempty"`
	Headline    string `json:"headline,omitempty"`
	Context     string `json:"context,omitempty"`
}

// QuickPayload is the low-latency literal+context gloss of one subtitle line.
type QuickPayload struct {
	RequestID  string       `json:"requestId"`
	Literal    string       `json:"literal"`
	Context    string       `json:"context"`
	Languages  LanguagePair `json:"languages"`
	DetectedAt int64        `json:"detectedAt"`
	ExpiresAt  int64        `json:"expiresAt"`
}

// DeepPayload is the richer streamed explanation with cited sources.
type DeepPayload struct {
	RequestID      string                `json:"requestId"`
	Background     Background            `json:"background"`
	CrossCulture   []CrossCultureInsight `json:"crossCulture"`
	Sources        []SourceReference     `json:"sources"`
	Confidence     Confidence            `json:"confidence"`
	ReasoningNotes string                `json:"reasoningNotes,omitempty"`
	ProfileID      string                `json:"profileId,omitempty"`
	GeneratedAt    int64                 `json:"generatedAt"`
	Language       string                `json:"language,omitempty"`
}

// DeepPatch is a partial DeepPayload as carried by one stream progress event.
// Pointer fields distinguish "absent" from "present but zero".
type DeepPatch struct {
	RequestID      *string               `json:"requestId,omitempty"`
	Background     *Background           `json:"background,omitempty"`
	CrossCulture   []CrossCultureInsight `json:"crossCulture,omitempty"`
	Sources        []SourceReference     `json:"sources,omitempty"`
	Confidence     *Confidence           `json:"confidence,omitempty"`
	ReasoningNotes *string               `json:"reasoningNotes,omitempty"`
	ProfileID      *string               `json:"profileId,omitempty"`
	GeneratedAt    *int64                `json:"generatedAt,omitempty"`
	Language       *string               `json:"language,omitempty"`
}

// ApplyTo shallow-merges the patch into dst, field by field.
func (p DeepPatch) ApplyTo(dst *DeepPayload) {
	if dst == nil {
		return
	}
	if p.RequestID != nil {
		dst.RequestID = *p.RequestID
	}
	if p.Background != nil {
		dst.Background = *p.Background
	}
	if p.CrossCulture != nil {
		dst.CrossCulture = p.CrossCulture
	}
	if p.Sources != nil {
		dst.Sources = p.Sources
	}
	if p.Confidence != nil {
		dst.Confidence = *p.Confidence
	}
	if p.ReasoningNotes != nil {
		dst.ReasoningNotes = *p.ReasoningNotes
	}
	if p.ProfileID != nil {
		dst.ProfileID = *p.ProfileID
	}
	if p.GeneratedAt != nil {
		dst.GeneratedAt = *p.GeneratedAt
	}
	if p.Language != nil {
		dst.Language = *p.Language
	}
}
