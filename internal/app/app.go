// Package app assembles the question pipeline from configuration. Every
// binary builds its collaborators through Build.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askdb/askdb/internal/config"
	"github.com/askdb/askdb/internal/metadata"
	"github.com/askdb/askdb/internal/nl2sql"
	"github.com/askdb/askdb/internal/pipeline"
	"github.com/askdb/askdb/internal/query"
	duckdbexec "github.com/askdb/askdb/internal/query/duckdb"
	"github.com/askdb/askdb/internal/query/sqldb"
	"github.com/askdb/askdb/internal/storage"
	s3store "github.com/askdb/askdb/internal/storage/s3"
)

type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type App struct {
	Config      config.Config
	Logger      *slog.Logger
	Metadata    *metadata.Store
	ObjectStore storage.ObjectStore
	Executor    query.Executor
	Pipeline    *pipeline.Pipeline
	checks      []func(ctx context.Context) error
}

// BuildFunc matches Build so front ends can swap in a test double.
type BuildFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error)

func Build(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{Config: cfg, Logger: logger}

	if cfg.Metadata.Source == config.MetadataSourceS3 {
		if err := a.openObjectStore(ctx); err != nil {
			return nil, err
		}
	}

	tables, err := LoadMetadata(ctx, cfg.Metadata, a.ObjectStore, logger)
	if err != nil {
		return nil, err
	}
	a.Metadata = tables
	logger.Info("table metadata loaded",
		slog.String("location", tables.Location()),
		slog.Int("tables", tables.Len()),
	)

	if a.ObjectStore == nil && cfg.Database.Driver == config.DriverDuckDB && len(duckdbexec.SourcesFromMetadata(tables.Tables())) > 0 {
		if err := a.openObjectStore(ctx); err != nil {
			return nil, err
		}
	}

	executor, err := NewExecutor(cfg.Database, tables, a.ObjectStore)
	if err != nil {
		return nil, fmt.Errorf("initialize query executor: %w", err)
	}
	a.Executor = executor
	if checker, ok := executor.(HealthChecker); ok {
		a.checks = append(a.checks, checker.HealthCheck)
	}

	backend, err := nl2sql.NewBackend(ctx, cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", cfg.AI.Provider, err)
	}
	synthesizer, err := nl2sql.NewSynthesizer(backend)
	if err != nil {
		return nil, err
	}

	a.Pipeline, err = pipeline.New(pipeline.Options{
		Dialect:    cfg.Database.Dialect,
		TableLimit: cfg.Selector.TableLimit,
	}, pipeline.Dependencies{
		Metadata:    tables,
		Synthesizer: synthesizer,
		Executor:    executor,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// Ready runs every dependency health check in order.
func (a *App) Ready(ctx context.Context) error {
	for _, check := range a.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func LoadMetadata(ctx context.Context, cfg config.MetadataConfig, store storage.ObjectStore, logger *slog.Logger) (*metadata.Store, error) {
	switch cfg.Source {
	case config.MetadataSourceS3:
		return metadata.LoadObject(ctx, store, cfg.Path, logger)
	default:
		return metadata.LoadFile(cfg.Path, logger)
	}
}

func NewExecutor(cfg config.DatabaseConfig, tables *metadata.Store, store storage.ObjectStore) (query.Executor, error) {
	if cfg.Driver == config.DriverDuckDB {
		return duckdbexec.New(duckdbexec.Config{
			Path:         cfg.DSN,
			Sources:      duckdbexec.SourcesFromMetadata(tables.Tables()),
			QueryTimeout: cfg.QueryTimeout,
		}, store)
	}
	return sqldb.New(sqldb.Config{
		Driver:       cfg.Driver,
		DSN:          cfg.ConnString(),
		QueryTimeout: cfg.QueryTimeout,
	})
}

func (a *App) openObjectStore(ctx context.Context) error {
	cfg := a.Config.ObjectStore
	store, err := s3store.New(ctx, s3store.Config{
		Endpoint:        cfg.Endpoint,
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		UseSSL:          cfg.UseSSL,
		Prefix:          cfg.Prefix,
	})
	if err != nil {
		return fmt.Errorf("initialize object store: %w", err)
	}
	a.ObjectStore = store
	a.checks = append(a.checks, store.HealthCheck)
	return nil
}
