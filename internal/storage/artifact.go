package storage

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/skypro1111/feelcard-service/internal/config"
)

// ArtifactStore persists a named binary asset and returns a reference that a
// browser can fetch
type ArtifactStore interface {
	Store(ctx context.Context, name string, data []byte, contentType string) (string, error)
	Kind() string
}

// NewArtifactStore selects the blob store when a token is configured and the
// local store otherwise
func NewArtifactStore(cfg config.StorageConfig, logger *logrus.Entry) (ArtifactStore, error) {
	if cfg.HasBlob() {
		store, err := NewBlobStore(BlobConfig{
			Endpoint: cfg.BlobEndpoint,
			Token:    cfg.BlobToken,
			Prefix:   cfg.Prefix,
		})
		if err != nil {
			return nil, err
		}
		logger.WithField("endpoint", cfg.BlobEndpoint).Info("Using blob artifact storage")
		return store, nil
	}

	logger.WithField("public_dir", cfg.PublicDir).Info("Using local artifact storage")
	return NewLocalStore(cfg.PublicDir, cfg.Prefix), nil
}
