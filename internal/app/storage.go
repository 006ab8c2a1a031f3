package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"
	"doc-converter/internal/repository/document/cloud/gcs"
	minio_repo "doc-converter/internal/repository/document/cloud/minio"
	s3_repo "doc-converter/internal/repository/document/cloud/s3"
	"doc-converter/internal/repository/document/local"
	postgres_repo "doc-converter/internal/repository/document/db/postgres"
	"doc-converter/internal/usecase/converter"
	"doc-converter/internal/usecase/pipeline"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// ObjectStore is the method set shared by every storage driver.
type ObjectStore interface {
	Bucket() string
	List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
	Exists(ctx context.Context, key string) (bool, error)
	Download(ctx context.Context, key, localPath string) error
	Upload(ctx context.Context, localPath, key, contentType string) error
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// NewObjectStore builds the driver named by cfg.Storage.Driver. The returned
// func releases driver resources.
func NewObjectStore(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (ObjectStore, func(), error) {
	retries := cfg.DefaultRetryStrategy()
	noop := func() {}

	switch cfg.Storage.Driver {
	case "minio":
		store, err := minio_repo.NewMinIORepository(cfg, retries, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create minio repository: %w", err)
		}
		return store, noop, nil
	case "s3":
		store, err := s3_repo.NewS3Repository(ctx, cfg, retries, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create s3 repository: %w", err)
		}
		return store, noop, nil
	case "gcs":
		store, err := gcs.NewGCSRepository(ctx, cfg, retries, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create gcs repository: %w", err)
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Error().Err(err).Msg("Failed to close gcs client")
			}
		}, nil
	case "local":
		store, err := local.NewLocalRepository(cfg.Storage.LocalRoot, cfg.Storage.Bucket)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to create local repository: %w", err)
		}
		return store, noop, nil
	default:
		return nil, noop, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Storage.Driver)
	}
}

// OpenLedger connects to Postgres when the ledger is enabled. Both results are
// nil otherwise.
func OpenLedger(cfg *config.Config) (*dbpg.DB, *postgres_repo.ConversionsRepository, error) {
	if !cfg.DB.Enabled {
		return nil, nil, nil
	}

	dbOpts := &dbpg.Options{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	}

	db, err := dbpg.New(cfg.DBDSN(), []string{}, dbOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, postgres_repo.NewConversionsRepository(db, cfg.DefaultRetryStrategy()), nil
}

func CloseDB(db *dbpg.DB) {
	if db != nil && db.Master != nil {
		db.Master.Close()
	}
}

// NewPipeline wires the converter set for store into a pipeline.
func NewPipeline(cfg *config.Config, store ObjectStore, logger *zlog.Zerolog) (*pipeline.Pipeline, *converter.Set, error) {
	set, err := converter.NewSet(cfg, store, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build converters: %w", err)
	}

	p := pipeline.NewPipeline(store, set, pipeline.Options{
		Scheme:            cfg.Scheme(),
		SourcePrefix:      cfg.Pipeline.SourcePrefix,
		DestinationPrefix: cfg.Pipeline.DestinationPrefix,
		StageConcurrency:  cfg.Pipeline.StageConcurrency,
		UploadConcurrency: cfg.Pipeline.UploadConcurrency,
	}, logger)
	return p, set, nil
}
