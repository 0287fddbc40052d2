package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/skypro1111/feelcard-service/internal/card"
)

const blobAPIVersion = "7"

// BlobConfig contains Vercel Blob client configuration
type BlobConfig struct {
	Endpoint string
	Token    string
	Prefix   string
	Timeout  time.Duration
}

// BlobStore uploads artifacts to Vercel Blob with public access
type BlobStore struct {
	config     BlobConfig
	httpClient *http.Client
}

// blobResponse is the subset of the put response we use
type blobResponse struct {
	URL         string `json:"url"`
	Pathname    string `json:"pathname"`
	ContentType string `json:"contentType"`
}

// NewBlobStore creates a new blob client
func NewBlobStore(config BlobConfig) (*BlobStore, error) {
	if config.Endpoint == "" {
		return nil, fmt.Errorf("blob endpoint cannot be empty")
	}

	if config.Token == "" {
		return nil, fmt.Errorf("blob token cannot be empty")
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.Prefix == "" {
		config.Prefix = "generated"
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &BlobStore{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// Store uploads data to <prefix>/<name> in a single attempt and returns the
// public URL reported by the service
func (s *BlobStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	const op = "store artifact"

	target := strings.TrimRight(s.config.Endpoint, "/") + "/" + s.config.Prefix + "/" + name
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("failed to create HTTP request: %w", err))
	}

	httpReq.Header.Set("Authorization", "Bearer "+s.config.Token)
	httpReq.Header.Set("X-Api-Version", blobAPIVersion)
	httpReq.Header.Set("X-Content-Type", contentType)
	httpReq.Header.Set("X-Add-Random-Suffix", "0")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "Feelcard-Service/1.0")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("HTTP request failed: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("failed to read response body: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(respBody)))
	}

	var blobResp blobResponse
	if err := json.Unmarshal(respBody, &blobResp); err != nil {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("failed to parse response JSON: %w", err))
	}
	if blobResp.URL == "" {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("response carried no url"))
	}

	return blobResp.URL, nil
}

func (s *BlobStore) Kind() string { return "blob" }
