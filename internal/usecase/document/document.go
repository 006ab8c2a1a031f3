package document

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"doc-converter/internal/domain"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
)

type Options struct {
	SourcePrefix      string
	DestinationPrefix string
	MaxUploadSize     int64
}

// Uploaded describes a document accepted into the source prefix.
type Uploaded struct {
	Key    string
	Name   string
	TaskID string
}

type DocumentUsecase struct {
	store    objectStore
	runner   batchRunner
	producer taskProducer
	ledger   conversionLedger
	opts     Options
	logger   *zlog.Zerolog

	// runCtx outlives the request that triggered a run.
	runCtx  context.Context
	running atomic.Bool
	runs    sync.WaitGroup
}

func NewDocumentUsecase(runCtx context.Context, store objectStore, runner batchRunner, opts Options, logger *zlog.Zerolog) *DocumentUsecase {
	if opts.MaxUploadSize <= 0 {
		opts.MaxUploadSize = domain.DefaultMaxUploadSize
	}
	return &DocumentUsecase{
		store:  store,
		runner: runner,
		opts:   opts,
		logger: logger,
		runCtx: runCtx,
	}
}

// WithProducer enqueues a ConversionTask for every upload.
func (d *DocumentUsecase) WithProducer(p taskProducer) *DocumentUsecase {
	d.producer = p
	return d
}

func (d *DocumentUsecase) WithLedger(l conversionLedger) *DocumentUsecase {
	d.ledger = l
	return d
}

func (d *DocumentUsecase) Upload(ctx context.Context, filename string, data io.Reader, size int64, contentType string) (*Uploaded, error) {
	name := domain.NormalizeFileName(path.Base(strings.ReplaceAll(filename, "\\", "/")))
	ext := path.Ext(name)
	if strings.TrimSuffix(name, ext) == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFileName, filename)
	}
	if _, ok := domain.ClassOf(ext); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if size > d.opts.MaxUploadSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, size)
	}

	key := path.Join(d.opts.SourcePrefix, name)
	if err := d.store.Put(ctx, key, data, size, contentType); err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("Failed to store uploaded document")
		return nil, fmt.Errorf("%w: %w", ErrStorageError, err)
	}

	up := &Uploaded{Key: key, Name: name}
	if d.producer == nil {
		d.logger.Info().Str("key", key).Msg("Document uploaded")
		return up, nil
	}

	task := domain.ConversionTask{
		ID:          uuid.New().String(),
		SourceKey:   key,
		RequestedAt: time.Now(),
	}
	if err := d.producer.PublishTask(ctx, task); err != nil {
		d.logger.Error().Err(err).Str("key", key).Msg("Failed to enqueue conversion task")
		if delErr := d.store.Delete(context.WithoutCancel(ctx), key); delErr != nil {
			d.logger.Error().Err(delErr).Str("key", key).Msg("Failed to remove orphaned upload")
		}
		return nil, fmt.Errorf("%w: %w", ErrMessageQueueError, err)
	}

	up.TaskID = task.ID
	d.logger.Info().Str("key", key).Str("task_id", task.ID).Msg("Document uploaded and queued for conversion")
	return up, nil
}

// TriggerRun starts a batch run in the background and returns its id. Only
// one triggered run is active at a time.
func (d *DocumentUsecase) TriggerRun(_ context.Context) (string, error) {
	if !d.running.CompareAndSwap(false, true) {
		return "", ErrRunInProgress
	}

	runID := uuid.New().String()
	d.runs.Add(1)
	go func() {
		defer d.runs.Done()
		defer d.running.Store(false)

		summary, err := d.runner.RunWithID(d.runCtx, runID)
		if err != nil {
			d.logger.Error().Err(err).Str("run_id", runID).Msg("Triggered run failed")
			return
		}
		d.logger.Info().
			Str("run_id", runID).
			Int("uploaded", summary.Uploaded).
			Int("failed", summary.Failed).
			Msg("Triggered run completed")
	}()

	return runID, nil
}

// Wait blocks until background runs return.
func (d *DocumentUsecase) Wait() {
	d.runs.Wait()
}

// SignedURL links to the PDF converted from the source file called name.
func (d *DocumentUsecase) SignedURL(ctx context.Context, name string, expiry time.Duration) (string, error) {
	base := path.Base(name)
	stem := strings.TrimSuffix(base, path.Ext(base))
	if stem == "" || stem == "." || stem == "/" {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	if expiry <= 0 {
		expiry = domain.DefaultSignedURLExpiry
	}

	key := domain.DestinationKey(d.opts.DestinationPrefix, stem+domain.PDFExt)
	exists, err := d.store.Exists(ctx, key)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageError, err)
	}
	if !exists {
		return "", fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
	}

	url, err := d.store.PresignedURL(ctx, key, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s: %w", key, err)
	}
	return url, nil
}

func (d *DocumentUsecase) ListConversions(ctx context.Context, limit, offset int) ([]domain.ConversionRecord, int, error) {
	if d.ledger == nil {
		return nil, 0, ErrLedgerDisabled
	}

	records, err := d.ledger.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list conversions: %w", err)
	}
	total, err := d.ledger.Count(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count conversions: %w", err)
	}
	return records, total, nil
}
