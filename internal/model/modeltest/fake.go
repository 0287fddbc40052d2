// Package modeltest provides an in-memory stand-in for the Gemini API.
package modeltest

import (
	"context"
	"errors"
	"io"
	"sync"

	"google.golang.org/genai"
)

// Service is a scripted model.Service. Responses and errors are keyed by model name.
type Service struct {
	mu sync.Mutex

	UploadErr  error
	UploadFile *genai.File
	Responses  map[string]*genai.GenerateContentResponse
	Errors     map[string]error

	uploads  [][]byte
	calls    map[string]int
	requests map[string][]Request
}

// Request records one GenerateContent call
type Request struct {
	Contents []*genai.Content
	Config   *genai.GenerateContentConfig
}

// New returns an empty scripted service
func New() *Service {
	return &Service{
		UploadFile: &genai.File{URI: "https://files.example/utterance", MIMEType: "audio/webm"},
		Responses:  map[string]*genai.GenerateContentResponse{},
		Errors:     map[string]error{},
		calls:      map[string]int{},
		requests:   map[string][]Request{},
	}
}

func (s *Service) Upload(ctx context.Context, r io.Reader, mimeType, displayName string) (*genai.File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads = append(s.uploads, data)

	if s.UploadErr != nil {
		return nil, s.UploadErr
	}
	return s.UploadFile, nil
}

func (s *Service) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[model]++
	s.requests[model] = append(s.requests[model], Request{Contents: contents, Config: config})

	if err := s.Errors[model]; err != nil {
		return nil, err
	}
	resp, ok := s.Responses[model]
	if !ok {
		return nil, errors.New("modeltest: no response scripted for " + model)
	}
	return resp, nil
}

// Calls returns how many GenerateContent calls targeted model
func (s *Service) Calls(model string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[model]
}

// Requests returns the recorded GenerateContent calls for model
func (s *Service) Requests(model string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests[model]...)
}

// Uploads returns the payloads passed to Upload
func (s *Service) Uploads() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]byte(nil), s.uploads...)
}

// TextResponse wraps text in a single-candidate response
func TextResponse(text string) *genai.GenerateContentResponse {
	return partsResponse(&genai.Part{Text: text})
}

// InlineResponse wraps an inline blob in a single-candidate response
func InlineResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return partsResponse(&genai.Part{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}})
}

// EmptyResponse has a candidate without any parts
func EmptyResponse() *genai.GenerateContentResponse {
	return partsResponse()
}

func partsResponse(parts ...*genai.Part) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: parts}},
		},
	}
}
