package worker

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"doc-converter/internal/app"
	"doc-converter/internal/broker"
	kafka_impl "doc-converter/internal/broker/kafka"
	"doc-converter/internal/config"
	"doc-converter/internal/metrics"

	"github.com/segmentio/kafka-go"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

// Worker converts single objects named by ConversionTask messages.
type Worker struct {
	cfg       *config.Config
	logger    *zlog.Zerolog
	db        *dbpg.DB
	broker    *kafka_impl.KafkaClient
	source    taskSource
	processor keyProcessor
	closeFS   func()
}

func NewWorker(ctx context.Context, cfg *config.Config, logger *zlog.Zerolog) (*Worker, error) {
	if !cfg.Kafka.Enabled {
		return nil, errors.New("worker requires kafka to be enabled")
	}

	store, closeFS, err := app.NewObjectStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	db, ledger, err := app.OpenLedger(cfg)
	if err != nil {
		closeFS()
		return nil, err
	}

	p, _, err := app.NewPipeline(cfg, store, logger)
	if err != nil {
		closeFS()
		app.CloseDB(db)
		return nil, err
	}

	brokerClient := kafka_impl.NewKafkaClient(cfg)
	p.WithEvents(brokerClient)
	if ledger != nil {
		p.WithLedger(ledger)
	}

	return &Worker{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		broker:    brokerClient,
		source:    brokerClient,
		processor: p,
		closeFS:   closeFS,
	}, nil
}

func (w *Worker) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigChan:
			w.logger.Info().Str("signal", sig.String()).Msg("Received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	w.Consume(ctx)
	w.close()
	return nil
}

// Consume runs the fetch loop and the processing goroutines until ctx ends.
func (w *Worker) Consume(ctx context.Context) {
	messages := make(chan kafka.Message, w.cfg.Worker.Concurrency)
	go w.source.StartConsuming(ctx, messages, w.cfg.DefaultRetryStrategy())

	var wg sync.WaitGroup
	for i := 0; i < w.cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w.worker(ctx, id, messages)
		}(i)
	}

	w.logger.Info().
		Int("concurrency", w.cfg.Worker.Concurrency).
		Str("topic", w.cfg.Kafka.TasksTopic).
		Msg("Worker started")

	wg.Wait()
}

func (w *Worker) worker(ctx context.Context, id int, messages <-chan kafka.Message) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Int("worker_id", id).Msg("Worker stopped")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			w.processMessage(ctx, id, msg)
		}
	}
}

// processMessage converts the task's object and commits the offset. Tasks are
// attempted once; a failed conversion is committed like a successful one.
// Only a cancelled context leaves the offset uncommitted.
func (w *Worker) processMessage(ctx context.Context, workerID int, msg kafka.Message) {
	task, err := broker.DecodeTask(msg.Value)
	if err != nil {
		w.logger.Error().Err(err).Int("worker_id", workerID).Int64("offset", msg.Offset).Msg("Failed to decode task")
		metrics.Tasks.WithLabelValues("invalid").Inc()
		w.commit(ctx, msg, "")
		return
	}

	log := w.logger.With().
		Int("worker_id", workerID).
		Str("task_id", task.ID).
		Str("key", task.SourceKey).
		Logger()
	log.Info().Msg("Processing task")

	outcome, err := w.processor.ProcessKey(ctx, task.SourceKey)
	if err != nil {
		if ctx.Err() != nil {
			log.Warn().Err(err).Msg("Task interrupted")
			return
		}
		log.Error().Err(err).Msg("Task rejected")
		metrics.Tasks.WithLabelValues("invalid").Inc()
		w.commit(ctx, msg, task.ID)
		return
	}

	if outcome.OK() {
		metrics.Tasks.WithLabelValues("ok").Inc()
		log.Info().Str("output", outcome.Result.OutputName).Msg("Task completed")
	} else {
		metrics.Tasks.WithLabelValues("failed").Inc()
		log.Warn().
			Str("reason", string(outcome.Failure.Reason)).
			Err(outcome.Failure.Err).
			Msg("Task failed")
	}

	w.commit(ctx, msg, task.ID)
}

func (w *Worker) commit(ctx context.Context, msg kafka.Message, taskID string) {
	if err := w.source.Commit(ctx, msg); err != nil {
		w.logger.Error().Err(err).Str("task_id", taskID).Msg("Failed to commit message")
	}
}

func (w *Worker) close() {
	if w.broker != nil {
		if err := w.broker.Close(); err != nil {
			w.logger.Error().Err(err).Msg("Failed to close kafka client")
		}
	}
	app.CloseDB(w.db)
	if w.closeFS != nil {
		w.closeFS()
	}
}
