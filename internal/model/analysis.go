package model

import (
	"bytes"
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/skypro1111/feelcard-service/internal/card"
)

const analysisInstruction = `From the user's short spoken utterance, estimate how hot or cold they feel.
Return a JSON object with these fields:
- label: "hot" (they feel hot), "cold" (they feel cold) or "neutral" (neither).
- degree: a number from -1.0 to 1.0. -1.0 is extremely cold, 0 is neutral, 1.0 is extremely hot.
- userUtteranceJa: your best transcription of what the user said, in Japanese.
- summaryJa: a short natural-language summary of how the user feels, in Japanese.
- promptForImage: an English image-generation prompt that expresses the feeling visually.
- promptForTts: a short line in Japanese to be read back to the user. Keep the tone empathetic and gentle.`

// AnalysisSchema is the response schema requested from the model
func AnalysisSchema() *genai.Schema {
	labels := make([]string, 0, len(card.Labels))
	for _, l := range card.Labels {
		labels = append(labels, string(l))
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"label": {
				Type:        genai.TypeString,
				Enum:        labels,
				Description: "Thermal sensation: hot, cold or neutral",
			},
			"degree": {
				Type:        genai.TypeNumber,
				Minimum:     genai.Ptr(card.MinDegree),
				Maximum:     genai.Ptr(card.MaxDegree),
				Description: "Intensity: -1.0 (extremely cold) to 0 (neutral) to 1.0 (extremely hot)",
			},
			"userUtteranceJa": {Type: genai.TypeString, Description: "Estimated user utterance (Japanese)"},
			"summaryJa":       {Type: genai.TypeString, Description: "Natural-language summary (Japanese)"},
			"promptForImage":  {Type: genai.TypeString, Description: "Image generation prompt (English)"},
			"promptForTts":    {Type: genai.TypeString, Description: "Short line for speech synthesis (Japanese)"},
		},
		Required:         []string{"label", "degree", "userUtteranceJa", "summaryJa", "promptForImage", "promptForTts"},
		PropertyOrdering: []string{"label", "degree", "userUtteranceJa", "summaryJa", "promptForImage", "promptForTts"},
	}
}

// Analyzer turns a captured utterance into a validated analysis
type Analyzer struct {
	base
}

// NewAnalyzer creates an analyzer. A nil svc makes every call fail with a
// configuration error.
func NewAnalyzer(svc Service, config Config, logger *logrus.Entry) *Analyzer {
	return &Analyzer{base{svc: svc, config: config, logger: logger}}
}

// Analyze uploads the captured audio and asks the analysis model for a
// schema-constrained result. A single attempt is made.
func (a *Analyzer) Analyze(ctx context.Context, captured []byte) (card.Analysis, error) {
	const op = "analyze utterance"

	if err := a.ensureService(op); err != nil {
		return card.Analysis{}, err
	}

	mimeType := a.config.CaptureMIME
	file, err := a.svc.Upload(ctx, bytes.NewReader(captured), mimeType, displayName(mimeType))
	if err != nil {
		return card.Analysis{}, card.Fail(card.KindTransport, op+": upload", err)
	}
	if file == nil || file.URI == "" {
		return card.Analysis{}, card.Fail(card.KindContract, op+": upload", errors.New("upload returned no file reference"))
	}
	if file.MIMEType != "" {
		mimeType = file.MIMEType
	}

	a.logger.WithFields(logrus.Fields{
		"file_uri":  file.URI,
		"mime_type": mimeType,
		"bytes":     len(captured),
	}).Debug("Utterance uploaded")

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromURI(file.URI, mimeType),
			genai.NewPartFromText(analysisInstruction),
		}, genai.RoleUser),
	}

	resp, err := a.svc.GenerateContent(ctx, a.config.AnalysisModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   AnalysisSchema(),
	})
	if err != nil {
		return card.Analysis{}, card.Fail(card.KindTransport, op, err)
	}

	analysis, err := card.ParseAnalysis([]byte(responseText(resp)))
	if err != nil {
		return card.Analysis{}, card.Fail(card.KindContract, op, err)
	}

	return analysis, nil
}

// displayName names the uploaded file after the container subtype, e.g. input.webm
func displayName(mimeType string) string {
	subtype := mimeType
	if i := strings.Index(subtype, "/"); i >= 0 {
		subtype = subtype[i+1:]
	}
	if i := strings.Index(subtype, ";"); i >= 0 {
		subtype = subtype[:i]
	}
	subtype = strings.TrimSpace(subtype)
	if subtype == "" {
		return "input"
	}
	return "input." + subtype
}
