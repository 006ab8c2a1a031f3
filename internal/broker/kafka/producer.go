package kafka

import (
	"context"
	"fmt"

	"doc-converter/internal/broker"
	"doc-converter/internal/domain"

	wbkafka "github.com/wb-go/wbf/kafka"
	"github.com/wb-go/wbf/retry"
)

type ProducerClient struct {
	producer *wbkafka.Producer
	retries  retry.Strategy
}

func NewProducerClient(brokers []string, topic string, retries retry.Strategy) *ProducerClient {
	return &ProducerClient{
		producer: wbkafka.NewProducer(brokers, topic),
		retries:  retries,
	}
}

func (p *ProducerClient) Send(ctx context.Context, key, value []byte) error {
	return p.producer.SendWithRetry(ctx, p.retries, key, value)
}

// PublishTask enqueues a single-document conversion.
func (p *ProducerClient) PublishTask(ctx context.Context, task domain.ConversionTask) error {
	key, value, err := broker.EncodeTask(task)
	if err != nil {
		return err
	}
	if err := p.Send(ctx, key, value); err != nil {
		return fmt.Errorf("failed to send task %s: %w", task.ID, err)
	}
	return nil
}

// PublishConverted announces an uploaded PDF.
func (p *ProducerClient) PublishConverted(ctx context.Context, ev domain.ConvertedEvent) error {
	key, value, err := broker.EncodeEvent(ev)
	if err != nil {
		return err
	}
	if err := p.Send(ctx, key, value); err != nil {
		return fmt.Errorf("failed to send event for %s: %w", ev.DestinationKey, err)
	}
	return nil
}

func (p *ProducerClient) Close() error {
	return p.producer.Close()
}
