package backend

import (
	"context"
	"errors"
	"fmt"

	"caja/internal/amqp"
	"caja/internal/legacy"
	clog "caja/internal/log"
	"caja/internal/storage"
	"caja/internal/store/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *clog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *clog.Logger) Factory {
	if logger == nil {
		logger = clog.New(clog.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(clog.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	res := &BackendResult{Legacy: legacy.Empty{}}
	var closers []func() error

	switch config.Type {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		res.Store, res.SQLite = repo, repo
		f.logger.InfoContext(ctx, "Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	case MemoryBackend:
		res.Store = memory.New()
		f.logger.InfoContext(ctx, "Initialized memory backend")
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
	closers = append(closers, res.Store.Close)

	if config.LegacyDBPath != "" {
		cache, err := legacy.Open(config.LegacyDBPath)
		if err != nil {
			_ = res.Store.Close()
			return nil, fmt.Errorf("open legacy cache: %w", err)
		}
		res.Legacy = cache
		closers = append(closers, cache.Close)
		f.logger.InfoContext(ctx, "Opened legacy cache", "path", config.LegacyDBPath)
	}

	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change notifications",
				clog.FieldError, err)
		} else {
			res.Publisher = client
			closers = append(closers, client.Close)
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	res.Cleanup = func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
	return res, nil
}
