package storage

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/skypro1111/feelcard-service/internal/card"
	"github.com/skypro1111/feelcard-service/internal/config"
)

// ItemIndex stores cards and lists them newest first
type ItemIndex interface {
	Save(ctx context.Context, c card.Card) error
	// List returns at most limit cards ordered by CreatedAt descending. An
	// empty index yields an empty, non-nil slice.
	List(ctx context.Context, limit int) ([]card.Card, error)
	Kind() string
	Close() error
}

// pinger is implemented by indexes backed by a remote service
type pinger interface {
	Ping(ctx context.Context) error
}

// OpenIndex selects and opens the configured index backend. Remote backends
// are probed with exponential backoff until the probe timeout elapses.
func OpenIndex(ctx context.Context, cfg config.IndexConfig, logger *logrus.Entry) (ItemIndex, error) {
	var (
		index ItemIndex
		err   error
	)

	switch cfg.Backend() {
	case "redis":
		index, err = NewRedisIndexFromURL(cfg.RedisURL)
	case "sqlite":
		index, err = NewSQLIndex(cfg.SQLitePath)
	default:
		index = NewMemoryIndex()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index: %w", cfg.Backend(), err)
	}

	if p, ok := index.(pinger); ok {
		bo := backoff.NewExponentialBackOff()
		bo.MaxElapsedTime = cfg.GetProbeTimeout()
		probe := func() error {
			err := p.Ping(ctx)
			if err != nil {
				logger.WithError(err).Warn("Index backend not reachable yet")
			}
			return err
		}
		if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
			index.Close()
			return nil, fmt.Errorf("%s index unreachable: %w", cfg.Backend(), err)
		}
	}

	logger.WithField("backend", index.Kind()).Info("Item index ready")
	return index, nil
}

// normalizeLimit keeps negative limits from reaching the backends
func normalizeLimit(limit int) int {
	if limit < 0 {
		return 0
	}
	return limit
}
