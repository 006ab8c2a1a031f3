package worker

import (
	"context"

	"doc-converter/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

type keyProcessor interface {
	ProcessKey(ctx context.Context, key string) (domain.Outcome, error)
}

type taskSource interface {
	StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg kafka.Message) error
}
