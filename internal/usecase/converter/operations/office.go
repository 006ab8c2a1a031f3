package operations

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"doc-converter/internal/domain"
	"doc-converter/internal/metrics"

	"github.com/wb-go/wbf/zlog"
	"golang.org/x/sync/semaphore"
)

const stderrLogLimit = 2048

// OfficeTool converts through a headless office suite binary:
// <tool> --headless --convert-to pdf <input> --outdir <dir>.
type OfficeTool struct {
	path    string
	timeout time.Duration
	slots   *semaphore.Weighted
	logger  *zlog.Zerolog
}

func NewOfficeTool(path string, timeout time.Duration, parallelism int, logger *zlog.Zerolog) *OfficeTool {
	if parallelism < 1 {
		parallelism = 1
	}
	return &OfficeTool{
		path:    path,
		timeout: timeout,
		slots:   semaphore.NewWeighted(int64(parallelism)),
		logger:  logger,
	}
}

func (o *OfficeTool) Name() string {
	return "office"
}

func (o *OfficeTool) Convert(ctx context.Context, input, outDir string) (string, error) {
	bin, err := exec.LookPath(o.path)
	if err != nil {
		metrics.ToolDuration.WithLabelValues("not_found").Observe(0)
		return "", domain.NewFailure(domain.ReasonToolNotFound, err)
	}

	if err := o.slots.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("failed to acquire tool slot: %w", err)
	}
	defer o.slots.Release(1)

	runCtx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// A private profile dir lets several instances run side by side.
	profile, err := os.MkdirTemp(outDir, ".profile-*")
	if err != nil {
		return "", fmt.Errorf("failed to create tool profile: %w", err)
	}
	defer os.RemoveAll(profile)

	cmd := exec.CommandContext(runCtx, bin,
		"-env:UserInstallation=file://"+profile,
		"--headless",
		"--convert-to", "pdf",
		input,
		"--outdir", outDir,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	err = cmd.Run()
	elapsed := time.Since(start)

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		metrics.ToolDuration.WithLabelValues("timeout").Observe(elapsed.Seconds())
		return "", domain.NewFailure(domain.ReasonToolTimeout,
			fmt.Errorf("%s did not finish within %s", o.path, o.timeout))
	}
	if err != nil {
		metrics.ToolDuration.WithLabelValues("exit").Observe(elapsed.Seconds())
		o.logger.Warn().
			Err(err).
			Str("input", input).
			Str("stderr", truncate(strings.TrimSpace(stderr.String()), stderrLogLimit)).
			Msg("Office tool exited with error")
		return "", domain.NewFailure(domain.ReasonToolExit, err)
	}

	out := OutputPath(input, outDir)
	if _, err := os.Stat(out); err != nil {
		metrics.ToolDuration.WithLabelValues("output_missing").Observe(elapsed.Seconds())
		return "", domain.NewFailure(domain.ReasonOutputMissing, fmt.Errorf("expected %s: %w", out, err))
	}

	metrics.ToolDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
	o.logger.Debug().Str("input", input).Dur("duration", elapsed).Msg("Office tool converted file")
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
