package kafka

import (
	"context"
	"errors"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/retry"
)

// KafkaClient pairs the task consumer with the converted-event producer used by the worker.
type KafkaClient struct {
	producer *ProducerClient
	consumer *ConsumerClient
}

func NewKafkaClient(cfg *config.Config) *KafkaClient {
	return &KafkaClient{
		producer: NewProducerClient(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.DefaultRetryStrategy()),
		consumer: NewConsumerClient(cfg.Kafka.Brokers, cfg.Kafka.TasksTopic, cfg.Kafka.GroupID),
	}
}

func (k *KafkaClient) Producer() *ProducerClient {
	return k.producer
}

func (k *KafkaClient) PublishConverted(ctx context.Context, ev domain.ConvertedEvent) error {
	return k.producer.PublishConverted(ctx, ev)
}

func (k *KafkaClient) Commit(ctx context.Context, msg kafka.Message) error {
	return k.consumer.Commit(ctx, msg)
}

func (k *KafkaClient) StartConsuming(ctx context.Context, out chan<- kafka.Message, strategy retry.Strategy) {
	k.consumer.StartConsuming(ctx, out, strategy)
}

func (k *KafkaClient) Close() error {
	var errs []error

	if k.producer != nil {
		if err := k.producer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	if k.consumer != nil {
		if err := k.consumer.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
