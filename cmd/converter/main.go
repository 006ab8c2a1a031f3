package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"doc-converter/internal/app"
	"doc-converter/internal/config"
	"doc-converter/internal/usecase/converter"

	"github.com/urfave/cli/v2"
	"github.com/wb-go/wbf/zlog"
)

type cfgKey struct{}

func loadConfig(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("bucket"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := c.String("source-prefix"); v != "" {
		cfg.Pipeline.SourcePrefix = v
	}
	if v := c.String("destination-prefix"); v != "" {
		cfg.Pipeline.DestinationPrefix = v
	}
	if v := c.String("scratch-dir"); v != "" {
		cfg.Pipeline.ScratchDir = v
	}
	if v := c.String("tool-path"); v != "" {
		cfg.Converter.ToolPath = v
	}
	c.Context = context.WithValue(c.Context, cfgKey{}, cfg)
	return nil
}

func configFrom(c *cli.Context) *config.Config {
	return c.Context.Value(cfgKey{}).(*config.Config)
}

func main() {
	zlog.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "converter",
		Usage: "Convert office documents, images, spreadsheets and mail to PDF",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Usage:   "Path to the YAML config file",
				EnvVars: []string{"CONFIG_PATH"},
			},
			&cli.StringFlag{
				Name:  "tool-path",
				Usage: "Office tool binary",
			},
			&cli.StringFlag{
				Name:  "scratch-dir",
				Usage: "Directory for per-item working dirs",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "Convert every object under the source prefix once",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "bucket", Usage: "Bucket holding both prefixes"},
					&cli.StringFlag{Name: "source-prefix", Usage: "Prefix listed for inputs"},
					&cli.StringFlag{Name: "destination-prefix", Usage: "Prefix receiving PDFs"},
					&cli.BoolFlag{Name: "strict", Usage: "Exit non-zero when any item failed"},
				},
				Before: loadConfig,
				Action: runBatch,
			},
			{
				Name:      "convert",
				Usage:     "Convert local files without touching the object store",
				ArgsUsage: "FILE...",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Output directory", Value: "."},
				},
				Before: loadConfig,
				Action: convertFiles,
			},
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		zlog.Logger.Error().Err(err).Msg("Converter failed")
		os.Exit(1)
	}
}

func runBatch(c *cli.Context) error {
	cfg := configFrom(c)
	logger := &zlog.Logger

	store, closeFS, err := app.NewObjectStore(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer closeFS()

	db, ledger, err := app.OpenLedger(cfg)
	if err != nil {
		return err
	}
	defer app.CloseDB(db)

	p, _, err := app.NewPipeline(cfg, store, logger)
	if err != nil {
		return err
	}
	if ledger != nil {
		p.WithLedger(ledger)
	}

	summary, err := p.Run(c.Context)
	if err != nil {
		return fmt.Errorf("run %s: %w", summary.RunID, err)
	}

	fmt.Fprintf(c.App.Writer, "run %s: discovered=%d converted=%d uploaded=%d failed=%d skipped=%d unsupported=%d dropped=%d\n",
		summary.RunID, summary.Discovered, summary.Converted, summary.Uploaded,
		summary.Failed, summary.Skipped, summary.Unsupported, summary.Dropped)

	if c.Bool("strict") && summary.Failed > 0 {
		return cli.Exit(fmt.Sprintf("%d item(s) failed", summary.Failed), 2)
	}
	return nil
}

func convertFiles(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("no input files given", 1)
	}

	cfg := configFrom(c)
	set, err := converter.NewSet(cfg, nil, &zlog.Logger)
	if err != nil {
		return err
	}

	outDir, err := filepath.Abs(c.String("out"))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	var errs []error
	for _, input := range c.Args().Slice() {
		out, err := set.ConvertLocal(c.Context, input, outDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", input, err))
			continue
		}
		fmt.Fprintln(c.App.Writer, out)
	}
	return errors.Join(errs...)
}
