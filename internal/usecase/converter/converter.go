package converter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"doc-converter/internal/config"
	"doc-converter/internal/domain"
	"doc-converter/internal/usecase/converter/operations"

	"github.com/wb-go/wbf/zlog"
)

// Converter runs the ordered strategies of one format class against a single
// source object.
type Converter struct {
	class      domain.FormatClass
	strategies []Strategy
	// skipConverted enables the destination pre-check before download.
	skipConverted bool
	store         objectStore
	destPrefix    string
	scratchDir    string
	logger        *zlog.Zerolog
}

func (c *Converter) Class() domain.FormatClass {
	return c.class
}

// Convert downloads ref into its own working dir and returns the first
// strategy success. The working dir is removed on every failure; on success
// only the output PDF is left in it.
func (c *Converter) Convert(ctx context.Context, ref domain.SourceFileRef) (outcome domain.Outcome) {
	log := c.logger.With().Str("file", ref.Name).Str("key", ref.Key).Str("stage", string(c.class)).Logger()

	if len(c.strategies) == 0 {
		log.Info().Msg("Format not supported, skipping")
		return domain.Failed(domain.ReasonUnsupported, fmt.Errorf("%w: %s", ErrNoStrategy, c.class))
	}

	if c.skipConverted {
		destKey := domain.DestinationKey(c.destPrefix, ref.OutputName())
		exists, err := c.store.Exists(ctx, destKey)
		switch {
		case err != nil:
			log.Warn().Err(err).Str("destination", destKey).Msg("Destination check failed, converting anyway")
		case exists:
			log.Info().Str("destination", destKey).Msg("Already converted, skipping")
			return domain.Failed(domain.ReasonAlreadyConverted, nil)
		}
	}

	workDir, err := os.MkdirTemp(c.scratchDir, "item-*")
	if err != nil {
		return domain.Failed(domain.ReasonDownload, fmt.Errorf("failed to create work dir: %w", err))
	}
	defer func() {
		if !outcome.OK() {
			os.RemoveAll(workDir)
		}
	}()

	input := filepath.Join(workDir, ref.Name)
	if err := c.store.Download(ctx, ref.Key, input); err != nil {
		log.Error().Err(err).Msg("Download failed")
		return domain.Failed(domain.ReasonDownload, err)
	}
	defer os.Remove(input)

	out, err := c.run(ctx, input, workDir, &log)
	if err != nil {
		log.Error().Err(err).Str("reason", string(domain.ReasonOf(err))).Msg("Conversion failed")
		return domain.FailedWith(err)
	}

	log.Info().Str("output", filepath.Base(out)).Msg("Converted")
	return domain.Succeeded(domain.ConversionResult{
		LocalPath:  out,
		SourceKey:  ref.Key,
		OutputName: ref.OutputName(),
		Bucket:     c.store.Bucket(),
	})
}

// ConvertFile runs the strategies against a local file and moves the PDF into
// outDir. Strategies write into a private staging dir, so a failed attempt
// leaves whatever outDir already held untouched.
func (c *Converter) ConvertFile(ctx context.Context, input, outDir string) (string, error) {
	if len(c.strategies) == 0 {
		return "", domain.NewFailure(domain.ReasonUnsupported, fmt.Errorf("%w: %s", ErrNoStrategy, c.class))
	}
	log := c.logger.With().Str("file", filepath.Base(input)).Str("stage", string(c.class)).Logger()

	staging, err := os.MkdirTemp(outDir, ".convert-*")
	if err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	defer os.RemoveAll(staging)

	out, err := c.run(ctx, input, staging, &log)
	if err != nil {
		return "", err
	}

	final := filepath.Join(outDir, filepath.Base(out))
	if err := os.Rename(out, final); err != nil {
		return "", fmt.Errorf("failed to move output: %w", err)
	}
	return final, nil
}

func (c *Converter) run(ctx context.Context, input, outDir string, log *zlog.Zerolog) (string, error) {
	var errs []error
	expected := operations.OutputPath(input, outDir)

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		out, err := safeConvert(ctx, s, input, outDir)
		if err == nil {
			return out, nil
		}

		os.Remove(expected)
		log.Warn().Err(err).Str("strategy", s.Name()).Msg("Strategy failed")
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}

	// The first failure decides the reason; later ones are fallbacks.
	if len(errs) > 0 {
		var f *domain.Failure
		if errors.As(errs[0], &f) {
			return "", domain.NewFailure(f.Reason, errors.Join(errs...))
		}
	}
	return "", domain.NewFailure(domain.ReasonTransform, errors.Join(errs...))
}

func safeConvert(ctx context.Context, s Strategy, input, outDir string) (out string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = domain.NewFailure(domain.ReasonTransform,
				fmt.Errorf("%w: %v\n%s", ErrStrategyPanic, r, debug.Stack()))
		}
	}()

	return s.Convert(ctx, input, outDir)
}

// Set holds one Converter per format class.
type Set struct {
	converters map[domain.FormatClass]*Converter
}

func NewSet(cfg *config.Config, store objectStore, logger *zlog.Zerolog) (*Set, error) {
	renderer, err := operations.NewTableRenderer()
	if err != nil {
		return nil, err
	}

	office := operations.NewOfficeTool(cfg.Converter.ToolPath, cfg.Converter.ToolTimeout, cfg.Converter.ToolParallelism, logger)

	strategies := map[domain.FormatClass][]Strategy{
		domain.ClassDocument:     {office},
		domain.ClassImage:        {operations.NewImagePage(cfg.Converter.ImageDPI)},
		domain.ClassSpreadsheet:  {office, operations.NewSheetTables(renderer)},
		domain.ClassDatabase:     nil,
		domain.ClassMail:         {operations.NewMailReport()},
		domain.ClassRichText:     {office},
		domain.ClassPresentation: {office},
	}

	return NewSetWith(strategies, store, cfg.Pipeline.DestinationPrefix, cfg.Pipeline.ScratchDir, logger)
}

// NewSetWith builds a Set from explicit strategy lists.
func NewSetWith(strategies map[domain.FormatClass][]Strategy, store objectStore, destPrefix, scratchDir string, logger *zlog.Zerolog) (*Set, error) {
	if err := os.MkdirAll(scratchDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch dir: %w", err)
	}

	set := &Set{converters: make(map[domain.FormatClass]*Converter, len(domain.FormatClasses))}
	for _, class := range domain.FormatClasses {
		set.converters[class] = &Converter{
			class:         class,
			strategies:    strategies[class],
			skipConverted: class == domain.ClassDocument,
			store:         store,
			destPrefix:    destPrefix,
			scratchDir:    scratchDir,
			logger:        logger,
		}
	}
	return set, nil
}

func (s *Set) For(class domain.FormatClass) (*Converter, error) {
	c, ok := s.converters[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	return c, nil
}

// ConvertLocal converts a file on disk by its extension, bypassing the object store.
func (s *Set) ConvertLocal(ctx context.Context, input, outDir string) (string, error) {
	_, ext := domain.SplitExt(filepath.Base(input))
	class, ok := Classify(ext)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	c, err := s.For(class)
	if err != nil {
		return "", err
	}
	return c.ConvertFile(ctx, input, outDir)
}

// Convert routes ref to the converter of class.
func (s *Set) Convert(ctx context.Context, class domain.FormatClass, ref domain.SourceFileRef) domain.Outcome {
	c, err := s.For(class)
	if err != nil {
		return domain.Failed(domain.ReasonUnsupported, err)
	}
	return c.Convert(ctx, ref)
}
