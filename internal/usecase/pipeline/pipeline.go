package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"doc-converter/internal/domain"
	"doc-converter/internal/metrics"
	"doc-converter/internal/usecase/converter"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/errgroup"
)

type Options struct {
	Scheme            string
	SourcePrefix      string
	DestinationPrefix string
	StageConcurrency  int
	UploadConcurrency int
}

// Pipeline lists the source prefix, converts every item through its class
// stage and uploads the PDFs to the destination prefix.
type Pipeline struct {
	store      objectStore
	converters converterSet
	ledger     conversionLedger
	events     eventPublisher
	opts       Options
	logger     *zlog.Zerolog
}

func NewPipeline(store objectStore, converters converterSet, opts Options, logger *zlog.Zerolog) *Pipeline {
	if opts.StageConcurrency < 1 {
		opts.StageConcurrency = 1
	}
	if opts.UploadConcurrency < 1 {
		opts.UploadConcurrency = 1
	}
	return &Pipeline{
		store:      store,
		converters: converters,
		opts:       opts,
		logger:     logger,
	}
}

// WithLedger records every item outcome.
func (p *Pipeline) WithLedger(l conversionLedger) *Pipeline {
	p.ledger = l
	return p
}

// WithEvents publishes a ConvertedEvent after each successful upload.
func (p *Pipeline) WithEvents(e eventPublisher) *Pipeline {
	p.events = e
	return p
}

type converted struct {
	ref    domain.SourceFileRef
	class  domain.FormatClass
	result domain.ConversionResult
}

type tally struct {
	mu sync.Mutex
	s  domain.RunSummary
}

func (t *tally) outcome(o domain.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch o.Status() {
	case domain.StatusConverted:
		t.s.Converted++
	case domain.StatusSkipped:
		t.s.Skipped++
	case domain.StatusUnsupported:
		t.s.Unsupported++
	default:
		t.s.Failed++
	}
}

// upload settles a converted item. A failed upload moves it from Converted
// to Failed so every dispatched item is counted once.
func (t *tally) upload(ok bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if ok {
		t.s.Uploaded++
	} else {
		t.s.Converted--
		t.s.Failed++
	}
}

// Run executes one batch. The returned error covers orchestration only;
// per-item failures are counted in the summary.
func (p *Pipeline) Run(ctx context.Context) (domain.RunSummary, error) {
	return p.RunWithID(ctx, uuid.New().String())
}

func (p *Pipeline) RunWithID(ctx context.Context, runID string) (domain.RunSummary, error) {
	t := &tally{s: domain.RunSummary{RunID: runID, StartedAt: time.Now()}}
	log := p.logger.With().Str("run_id", runID).Logger()

	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()
	defer func() {
		metrics.RunDuration.Observe(time.Since(t.s.StartedAt).Seconds())
	}()

	objects, err := p.store.List(ctx, p.opts.SourcePrefix)
	if err != nil {
		return t.s, fmt.Errorf("%w: %w", ErrListSource, err)
	}

	var refs []domain.SourceFileRef
	for _, obj := range objects {
		if ref, ok := domain.NewSourceFileRef(p.opts.Scheme, p.store.Bucket(), obj.Key); ok {
			refs = append(refs, ref)
		}
	}
	t.s.Discovered = len(refs)

	if len(refs) == 0 {
		log.Info().Str("prefix", p.opts.SourcePrefix).Msg("No files found")
		t.s.FinishedAt = time.Now()
		return t.s, nil
	}

	parts, dropped := converter.Partition(refs)
	for _, ref := range dropped {
		log.Debug().Str("file", ref.Name).Str("ext", ref.Ext).Msg("No converter for extension")
		metrics.Dropped.Inc()
	}
	t.s.Dropped = len(dropped)
	t.s.Dispatched = len(refs) - len(dropped)

	log.Info().
		Int("discovered", t.s.Discovered).
		Int("dispatched", t.s.Dispatched).
		Int("dropped", t.s.Dropped).
		Msg("Pipeline run started")

	results := make(chan converted, p.opts.UploadConcurrency)

	var uploaders sync.WaitGroup
	for i := 0; i < p.opts.UploadConcurrency; i++ {
		uploaders.Add(1)
		go func() {
			defer uploaders.Done()
			for c := range results {
				err := p.upload(ctx, runID, c, &log)
				t.upload(err == nil)
			}
		}()
	}

	stages, stageCtx := errgroup.WithContext(ctx)
	for _, class := range domain.FormatClasses {
		items := parts[class]
		if len(items) == 0 {
			continue
		}
		stages.Go(func() error {
			return p.runStage(stageCtx, runID, class, items, results, t, &log)
		})
	}

	stageErr := stages.Wait()
	close(results)
	uploaders.Wait()

	t.s.FinishedAt = time.Now()
	log.Info().
		Int("converted", t.s.Converted).
		Int("uploaded", t.s.Uploaded).
		Int("failed", t.s.Failed).
		Int("skipped", t.s.Skipped).
		Int("unsupported", t.s.Unsupported).
		Dur("duration", t.s.FinishedAt.Sub(t.s.StartedAt)).
		Msg("Pipeline run finished")

	if stageErr != nil {
		return t.s, stageErr
	}
	return t.s, ctx.Err()
}

func (p *Pipeline) runStage(ctx context.Context, runID string, class domain.FormatClass, items []domain.SourceFileRef,
	results chan<- converted, t *tally, log *zlog.Zerolog) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.StageConcurrency)

	for _, ref := range items {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			o := p.converters.Convert(gctx, class, ref)
			t.outcome(o)
			p.observe(class, o)

			if !o.OK() {
				p.record(gctx, runID, ref, class, o, "")
				return nil
			}

			select {
			case results <- converted{ref: ref, class: class, result: *o.Result}:
				return nil
			case <-gctx.Done():
				os.RemoveAll(filepath.Dir(o.Result.LocalPath))
				return gctx.Err()
			}
		})
	}

	// gctx is always canceled once Wait returns; only the group's error counts.
	err := g.Wait()
	log.Debug().Str("stage", string(class)).Int("items", len(items)).Msg("Stage drained")
	return err
}

// upload sends one PDF to the destination prefix and removes the local copy
// whatever the result.
func (p *Pipeline) upload(ctx context.Context, runID string, c converted, log *zlog.Zerolog) error {
	defer os.RemoveAll(filepath.Dir(c.result.LocalPath))

	destKey := domain.DestinationKey(p.opts.DestinationPrefix, c.result.OutputName)
	if err := p.store.Upload(ctx, c.result.LocalPath, destKey, domain.PDFContentType); err != nil {
		metrics.Uploads.WithLabelValues("failed").Inc()
		log.Error().Err(err).
			Str("file", c.ref.Name).
			Str("stage", string(c.class)).
			Str("destination", destKey).
			Msg("Upload failed")
		p.record(ctx, runID, c.ref, c.class, domain.Failed(domain.ReasonUpload, err), destKey)
		return err
	}

	metrics.Uploads.WithLabelValues("ok").Inc()
	log.Info().
		Str("file", c.ref.Name).
		Str("stage", string(c.class)).
		Str("destination", destKey).
		Msg("Uploaded")

	p.record(ctx, runID, c.ref, c.class, domain.Succeeded(c.result), destKey)
	p.publish(ctx, domain.ConvertedEvent{
		RunID:          runID,
		SourceKey:      c.ref.Key,
		DestinationKey: destKey,
		Bucket:         c.result.Bucket,
		ConvertedAt:    time.Now(),
	})
	return nil
}

// ProcessOne converts and uploads a single ref outside a batch run.
func (p *Pipeline) ProcessOne(ctx context.Context, ref domain.SourceFileRef) (domain.Outcome, error) {
	runID := uuid.New().String()
	log := p.logger.With().Str("run_id", runID).Logger()

	class, ok := converter.Classify(ref.Ext)
	if !ok {
		log.Debug().Str("file", ref.Name).Str("ext", ref.Ext).Msg("No converter for extension")
		metrics.Dropped.Inc()
		return domain.Failed(domain.ReasonUnsupported, fmt.Errorf("%w: %s", converter.ErrUnsupportedFile, ref.Ext)), nil
	}

	o := p.converters.Convert(ctx, class, ref)
	p.observe(class, o)
	if !o.OK() {
		p.record(ctx, runID, ref, class, o, "")
		return o, ctx.Err()
	}

	if err := p.upload(ctx, runID, converted{ref: ref, class: class, result: *o.Result}, &log); err != nil {
		return domain.Failed(domain.ReasonUpload, err), ctx.Err()
	}
	return o, nil
}

// ProcessKey is ProcessOne for a bare bucket key.
func (p *Pipeline) ProcessKey(ctx context.Context, key string) (domain.Outcome, error) {
	ref, ok := domain.NewSourceFileRef(p.opts.Scheme, p.store.Bucket(), key)
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return p.ProcessOne(ctx, ref)
}

func (p *Pipeline) observe(class domain.FormatClass, o domain.Outcome) {
	reason := ""
	if !o.OK() {
		reason = string(o.Failure.Reason)
	}
	metrics.Conversions.WithLabelValues(string(class), string(o.Status()), reason).Inc()
}

func (p *Pipeline) record(ctx context.Context, runID string, ref domain.SourceFileRef, class domain.FormatClass, o domain.Outcome, destKey string) {
	if p.ledger == nil {
		return
	}
	rec := &domain.ConversionRecord{
		ID:             uuid.New().String(),
		RunID:          runID,
		SourceKey:      ref.Key,
		Class:          class,
		Status:         o.Status(),
		DestinationKey: destKey,
		CreatedAt:      time.Now(),
	}
	if !o.OK() {
		rec.Reason = string(o.Failure.Reason)
	}
	if err := p.ledger.Save(context.WithoutCancel(ctx), rec); err != nil {
		p.logger.Error().Err(err).Str("key", ref.Key).Str("run_id", runID).Msg("Failed to record conversion")
	}
}

func (p *Pipeline) publish(ctx context.Context, ev domain.ConvertedEvent) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishConverted(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Error().Err(err).Str("destination", ev.DestinationKey).Msg("Failed to publish converted event")
	}
}
