package model

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/genai"

	"github.com/skypro1111/feelcard-service/internal/audio"
	"github.com/skypro1111/feelcard-service/internal/card"
)

// Service is the subset of the Gemini API the clients use
type Service interface {
	Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*genai.File, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiService struct {
	client *genai.Client
}

// NewGeminiService connects to the Gemini API. It returns a nil Service and no
// error when apiKey is empty, so that runs fail with a configuration error
// instead of the process failing to start.
func NewGeminiService(ctx context.Context, apiKey string) (Service, error) {
	if apiKey == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &geminiService{client: client}, nil
}

func (s *geminiService) Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*genai.File, error) {
	return s.client.Files.Upload(ctx, r, &genai.UploadFileConfig{
		MIMEType:    mimeType,
		DisplayName: displayName,
	})
}

func (s *geminiService) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return s.client.Models.GenerateContent(ctx, model, contents, config)
}

// Config contains model names and synthesis parameters
type Config struct {
	AnalysisModel string
	ImageModel    string
	SpeechModel   string
	Voice         string
	CaptureMIME   string
	Speech        audio.Format // format of the raw PCM returned by speech synthesis
}

// base holds what every client shares
type base struct {
	svc    Service
	config Config
	logger *logrus.Entry
}

// ensureService fails with a configuration error when no credential was configured
func (b *base) ensureService(op string) error {
	if b.svc == nil {
		return card.Fail(card.KindConfig, op, card.ErrMissingCredential)
	}
	return nil
}

// responseText concatenates the non-thought text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought || part.Text == "" {
			continue
		}
		b.WriteString(part.Text)
	}
	return b.String()
}

// inlineData returns the first inline blob of the first candidate whose MIME
// type starts with prefix
func inlineData(resp *genai.GenerateContentResponse, prefix string) *genai.Blob {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		mimeType := strings.ToLower(part.InlineData.MIMEType)
		if mimeType == "" || strings.HasPrefix(mimeType, prefix) {
			return part.InlineData
		}
	}
	return nil
}
