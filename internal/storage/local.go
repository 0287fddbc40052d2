package storage

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/skypro1111/feelcard-service/internal/card"
)

// LocalStore writes artifacts under <publicDir>/<prefix> and returns
// root-relative paths served by the HTTP layer
type LocalStore struct {
	publicDir string
	prefix    string
}

// NewLocalStore creates a local artifact store
func NewLocalStore(publicDir, prefix string) *LocalStore {
	if prefix == "" {
		prefix = "generated"
	}
	return &LocalStore{publicDir: publicDir, prefix: prefix}
}

// Dir is the directory artifacts are written to
func (s *LocalStore) Dir() string {
	return filepath.Join(s.publicDir, s.prefix)
}

// Store writes data to disk. The returned reference has the form /generated/<name>.
func (s *LocalStore) Store(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	const op = "store artifact"

	if name == "" || name != filepath.Base(name) {
		return "", card.Fail(card.KindStorage, op, fmt.Errorf("invalid artifact name %q", name))
	}

	if err := os.MkdirAll(s.Dir(), 0755); err != nil {
		return "", card.Fail(card.KindStorage, op, err)
	}

	if err := os.WriteFile(filepath.Join(s.Dir(), name), data, 0644); err != nil {
		return "", card.Fail(card.KindStorage, op, err)
	}

	return path.Join("/", s.prefix, name), nil
}

func (s *LocalStore) Kind() string { return "local" }
