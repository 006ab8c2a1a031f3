package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"doc-converter/internal/broker"
	"doc-converter/internal/config"
	"doc-converter/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type fakeSource struct {
	messages []kafka.Message

	mu        sync.Mutex
	committed []int64
	done      chan struct{}
}

func (f *fakeSource) StartConsuming(ctx context.Context, out chan<- kafka.Message, _ retry.Strategy) {
	for _, m := range f.messages {
		select {
		case out <- m:
		case <-ctx.Done():
			return
		}
	}
}

func (f *fakeSource) Commit(_ context.Context, msg kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg.Offset)
	if f.done != nil && len(f.committed) == len(f.messages) {
		close(f.done)
	}
	return nil
}

type fakeProcessor struct {
	mu   sync.Mutex
	keys []string
}

func (f *fakeProcessor) ProcessKey(ctx context.Context, key string) (domain.Outcome, error) {
	f.mu.Lock()
	f.keys = append(f.keys, key)
	f.mu.Unlock()

	switch key {
	case "Arquivos Docx/":
		return domain.Outcome{}, errors.New("invalid key")
	case "Arquivos Docx/broken.docx":
		return domain.Failed(domain.ReasonToolExit, errors.New("exit status 1")), nil
	case "Arquivos Docx/slow.docx":
		<-ctx.Done()
		return domain.Failed(domain.ReasonToolTimeout, ctx.Err()), ctx.Err()
	}
	return domain.Succeeded(domain.ConversionResult{SourceKey: key, OutputName: "x.pdf"}), nil
}

func taskMessage(t *testing.T, offset int64, key string) kafka.Message {
	t.Helper()
	k, v, err := broker.EncodeTask(domain.ConversionTask{ID: key, SourceKey: key, RequestedAt: time.Now()})
	require.NoError(t, err)
	return kafka.Message{Key: k, Value: v, Offset: offset}
}

func newTestWorker(source taskSource, processor keyProcessor) *Worker {
	zlog.Init()
	cfg := &config.Config{
		Kafka:  config.KafkaConfig{TasksTopic: "document-conversion"},
		Worker: config.WorkerConfig{Concurrency: 2},
		Retry:  config.RetryConfig{Attempts: 1, Delay: time.Millisecond, Backoff: 1},
	}
	return &Worker{cfg: cfg, logger: &zlog.Logger, source: source, processor: processor}
}

func TestProcessMessage_CommitsEveryOutcome(t *testing.T) {
	source := &fakeSource{}
	processor := &fakeProcessor{}
	w := newTestWorker(source, processor)
	ctx := context.Background()

	w.processMessage(ctx, 0, taskMessage(t, 1, "Arquivos Docx/a.docx"))
	w.processMessage(ctx, 0, taskMessage(t, 2, "Arquivos Docx/broken.docx"))
	w.processMessage(ctx, 0, taskMessage(t, 3, "Arquivos Docx/"))
	w.processMessage(ctx, 0, kafka.Message{Value: []byte("not json"), Offset: 4})

	assert.Equal(t, []int64{1, 2, 3, 4}, source.committed)
	assert.Equal(t, []string{"Arquivos Docx/a.docx", "Arquivos Docx/broken.docx", "Arquivos Docx/"}, processor.keys)
}

func TestProcessMessage_CancelledLeavesOffset(t *testing.T) {
	source := &fakeSource{}
	w := newTestWorker(source, &fakeProcessor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w.processMessage(ctx, 0, taskMessage(t, 7, "Arquivos Docx/slow.docx"))
	assert.Empty(t, source.committed)
}

func TestConsume(t *testing.T) {
	source := &fakeSource{done: make(chan struct{})}
	for i, key := range []string{"Arquivos Docx/a.docx", "Arquivos Docx/b.jpg", "Arquivos Docx/c.xlsx"} {
		source.messages = append(source.messages, taskMessage(t, int64(i), key))
	}
	processor := &fakeProcessor{}
	w := newTestWorker(source, processor)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		w.Consume(ctx)
		close(stopped)
	}()

	select {
	case <-source.done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages were not committed")
	}
	cancel()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop")
	}
	assert.ElementsMatch(t, []int64{0, 1, 2}, source.committed)
	assert.Len(t, processor.keys, 3)
}
