package document

import (
	"context"
	"io"
	"time"

	"doc-converter/internal/domain"
	document_uc "doc-converter/internal/usecase/document"
)

type documentUsecase interface {
	Upload(ctx context.Context, filename string, data io.Reader, size int64, contentType string) (*document_uc.Uploaded, error)
	TriggerRun(ctx context.Context) (string, error)
	SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error)
	ListConversions(ctx context.Context, limit, offset int) ([]domain.ConversionRecord, int, error)
}
