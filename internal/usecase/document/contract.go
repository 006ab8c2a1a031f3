package document

import (
	"context"
	"io"
	"time"

	"doc-converter/internal/domain"
)

type objectStore interface {
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

type taskProducer interface {
	PublishTask(ctx context.Context, task domain.ConversionTask) error
}

type batchRunner interface {
	RunWithID(ctx context.Context, runID string) (domain.RunSummary, error)
}

type conversionLedger interface {
	List(ctx context.Context, limit, offset int) ([]domain.ConversionRecord, error)
	Count(ctx context.Context) (int, error)
}
