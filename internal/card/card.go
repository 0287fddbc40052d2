package card

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
)

// Label is the thermal sensation class
type Label string

const (
	LabelHot     Label = "hot"
	LabelCold    Label = "cold"
	LabelNeutral Label = "neutral"
)

// Labels lists every permitted label in schema order
var Labels = []Label{LabelHot, LabelCold, LabelNeutral}

// Valid reports whether l is one of the closed label set
func (l Label) Valid() bool {
	switch l {
	case LabelHot, LabelCold, LabelNeutral:
		return true
	}
	return false
}

// Degree bounds. -1.0 is the most intense cold, +1.0 the most intense hot.
const (
	MinDegree = -1.0
	MaxDegree = 1.0
)

// Analysis is the validated structured output of the analysis stage
type Analysis struct {
	Label         Label   `json:"label"`
	Degree        float64 `json:"degree"`
	UserUtterance string  `json:"userUtteranceJa"`
	Summary       string  `json:"summaryJa"`
	ImagePrompt   string  `json:"promptForImage"`
	SpeechPrompt  string  `json:"promptForTts"`
}

// Validate checks every field against the analysis schema
func (a Analysis) Validate() error {
	var problems []string

	if !a.Label.Valid() {
		problems = append(problems, fmt.Sprintf("label must be one of [hot, cold, neutral], got %q", a.Label))
	}

	if math.IsNaN(a.Degree) || a.Degree < MinDegree || a.Degree > MaxDegree {
		problems = append(problems, fmt.Sprintf("degree must be between -1.0 and 1.0, got %v", a.Degree))
	}

	required := []struct {
		name  string
		value string
	}{
		{"userUtteranceJa", a.UserUtterance},
		{"summaryJa", a.Summary},
		{"promptForImage", a.ImagePrompt},
		{"promptForTts", a.SpeechPrompt},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, field.name+" is required")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidAnalysis, strings.Join(problems, "; "))
	}
	return nil
}

// rawAnalysis mirrors Analysis with pointer fields so absent keys can be told
// apart from zero values
type rawAnalysis struct {
	Label         *string  `json:"label"`
	Degree        *float64 `json:"degree"`
	UserUtterance *string  `json:"userUtteranceJa"`
	Summary       *string  `json:"summaryJa"`
	ImagePrompt   *string  `json:"promptForImage"`
	SpeechPrompt  *string  `json:"promptForTts"`
}

// ParseAnalysis decodes a model response body and validates it. Missing keys,
// wrong types, out-of-range degrees and unknown labels are all rejected.
func ParseAnalysis(data []byte) (Analysis, error) {
	var raw rawAnalysis
	if err := json.Unmarshal(data, &raw); err != nil {
		return Analysis{}, fmt.Errorf("%w: response is not a JSON object: %v", ErrInvalidAnalysis, err)
	}

	var missing []string
	if raw.Label == nil {
		missing = append(missing, "label")
	}
	if raw.Degree == nil {
		missing = append(missing, "degree")
	}
	if raw.UserUtterance == nil {
		missing = append(missing, "userUtteranceJa")
	}
	if raw.Summary == nil {
		missing = append(missing, "summaryJa")
	}
	if raw.ImagePrompt == nil {
		missing = append(missing, "promptForImage")
	}
	if raw.SpeechPrompt == nil {
		missing = append(missing, "promptForTts")
	}
	if len(missing) > 0 {
		return Analysis{}, fmt.Errorf("%w: missing fields %s", ErrInvalidAnalysis, strings.Join(missing, ", "))
	}

	analysis := Analysis{
		Label:         Label(*raw.Label),
		Degree:        *raw.Degree,
		UserUtterance: *raw.UserUtterance,
		Summary:       *raw.Summary,
		ImagePrompt:   *raw.ImagePrompt,
		SpeechPrompt:  *raw.SpeechPrompt,
	}
	if err := analysis.Validate(); err != nil {
		return Analysis{}, err
	}
	return analysis, nil
}

// Card is the persisted feeling card. It is assembled once after every stage
// succeeded and never mutated afterwards.
type Card struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ImageRef  string    `json:"imageUrl"`
	AudioRef  string    `json:"audioUrl"`
	Analysis
}

// New assembles a card from its parts. CreatedAt is normalized to UTC and
// truncated to whole microseconds, the resolution every index orders by.
func New(id string, createdAt time.Time, analysis Analysis, imageRef, audioRef string) Card {
	return Card{
		ID:        id,
		CreatedAt: createdAt.UTC().Truncate(time.Microsecond),
		ImageRef:  imageRef,
		AudioRef:  audioRef,
		Analysis:  analysis,
	}
}

// Artifact is a generated binary asset with its content type
type Artifact struct {
	Data        []byte
	ContentType string
	Ext         string // including the leading dot
}

// Filename names the artifact after the card it belongs to
func (a Artifact) Filename(id string) string {
	return id + a.Ext
}
