package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	kafka_impl "doc-converter/internal/broker/kafka"
	"doc-converter/internal/config"
	document_h "doc-converter/internal/http-server/handler/document"
	"doc-converter/internal/http-server/router"
	document_uc "doc-converter/internal/usecase/document"

	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg       *config.Config
	server    *http.Server
	logger    *zlog.Zerolog
	db        *dbpg.DB
	tasks     *kafka_impl.ProducerClient
	events    *kafka_impl.ProducerClient
	documents *document_uc.DocumentUsecase
	closeFS   func()

	ctx    context.Context
	cancel context.CancelFunc
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{cfg: cfg, logger: logger, ctx: ctx, cancel: cancel, closeFS: func() {}}

	if err := a.init(); err != nil {
		a.close()
		cancel()
		return nil, err
	}
	return a, nil
}

func (a *App) init() error {
	store, closeFS, err := NewObjectStore(a.ctx, a.cfg, a.logger)
	if err != nil {
		return err
	}
	a.closeFS = closeFS

	db, ledger, err := OpenLedger(a.cfg)
	if err != nil {
		return err
	}
	a.db = db

	p, _, err := NewPipeline(a.cfg, store, a.logger)
	if err != nil {
		return err
	}
	if ledger != nil {
		p.WithLedger(ledger)
	}

	documents := document_uc.NewDocumentUsecase(a.ctx, store, p, document_uc.Options{
		SourcePrefix:      a.cfg.Pipeline.SourcePrefix,
		DestinationPrefix: a.cfg.Pipeline.DestinationPrefix,
	}, a.logger)
	if ledger != nil {
		documents.WithLedger(ledger)
	}

	if a.cfg.Kafka.Enabled {
		retries := a.cfg.DefaultRetryStrategy()
		a.tasks = kafka_impl.NewProducerClient(a.cfg.Kafka.Brokers, a.cfg.Kafka.TasksTopic, retries)
		a.events = kafka_impl.NewProducerClient(a.cfg.Kafka.Brokers, a.cfg.Kafka.EventsTopic, retries)
		documents.WithProducer(a.tasks)
		p.WithEvents(a.events)
	}
	a.documents = documents

	h := &router.Handler{
		DocumentHandler: document_h.NewDocumentHandler(documents, a.logger),
	}

	a.server = &http.Server{
		Addr:         ":" + a.cfg.Server.Addr,
		Handler:      router.SetupRouter(h),
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
	}
	return nil
}

func (a *App) Run() error {
	a.logger.Info().
		Str("addr", a.cfg.Server.Addr).
		Str("driver", a.cfg.Storage.Driver).
		Str("bucket", a.cfg.Storage.Bucket).
		Bool("kafka", a.cfg.Kafka.Enabled).
		Bool("ledger", a.cfg.DB.Enabled).
		Msg("Starting server")

	defer a.cancel()
	go a.handleSignals(a.cancel)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		a.cancel()
		a.documents.Wait()
		a.close()
		return fmt.Errorf("server failed: %w", err)
	case <-a.ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		a.documents.Wait()
		a.close()

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

func (a *App) close() {
	CloseDB(a.db)

	for _, p := range []*kafka_impl.ProducerClient{a.tasks, a.events} {
		if p == nil {
			continue
		}
		if err := p.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close producer")
		}
	}

	a.closeFS()
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
		cancel()
	case <-a.ctx.Done():
	}
}
