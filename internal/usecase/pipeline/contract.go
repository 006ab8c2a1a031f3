package pipeline

import (
	"context"

	"doc-converter/internal/domain"
)

type objectStore interface {
	List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
	Upload(ctx context.Context, localPath, key, contentType string) error
	Bucket() string
}

type converterSet interface {
	Convert(ctx context.Context, class domain.FormatClass, ref domain.SourceFileRef) domain.Outcome
}

type conversionLedger interface {
	Save(ctx context.Context, rec *domain.ConversionRecord) error
}

type eventPublisher interface {
	PublishConverted(ctx context.Context, ev domain.ConvertedEvent) error
}
