package storage

import (
	"context"
	"fmt"

	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/log"
)

// IndexOpener opens the content index used by the mediated strategy.
type IndexOpener func(ctx context.Context) (ContentIndex, error)

// Select picks the backend for cfg once at startup. With strategy "auto"
// the mediated backend is used when the content index opens and answers a
// ping, otherwise it falls back to direct filesystem access.
func Select(ctx context.Context, cfg config.StorageConfig, open IndexOpener, logger log.LoggerService) (Backend, error) {
	if logger == nil {
		logger = log.NewNopLogger()
	}

	switch cfg.Strategy {
	case config.StrategyDirect:
		return NewDirectBackend(cfg.Root, cfg.ChunkSize, logger)

	case config.StrategyMediated:
		index, err := probe(ctx, open)
		if err != nil {
			return nil, fmt.Errorf("content index unavailable: %w", err)
		}
		return mediated(index, cfg, logger)

	case config.StrategyAuto, "":
		index, err := probe(ctx, open)
		if err != nil {
			logger.Info("Content index unavailable, using direct storage: %v", err)
			return NewDirectBackend(cfg.Root, cfg.ChunkSize, logger)
		}
		return mediated(index, cfg, logger)

	default:
		return nil, fmt.Errorf("unknown storage strategy '%s'", cfg.Strategy)
	}
}

func probe(ctx context.Context, open IndexOpener) (ContentIndex, error) {
	if open == nil {
		return nil, fmt.Errorf("no content index configured")
	}

	index, err := open(ctx)
	if err != nil {
		return nil, err
	}

	if err := index.Ping(ctx); err != nil {
		index.Close()
		return nil, err
	}
	return index, nil
}

func mediated(index ContentIndex, cfg config.StorageConfig, logger log.LoggerService) (Backend, error) {
	backend, err := NewMediatedBackend(index, cfg.Index.Collection, cfg.ChunkSize, logger)
	if err != nil {
		index.Close()
		return nil, err
	}
	return backend, nil
}
