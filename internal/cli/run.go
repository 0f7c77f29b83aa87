package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aretw0/cider"
	"github.com/aretw0/cider/internal/presentation/tui"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/observability"
	"github.com/aretw0/cider/pkg/report"
)

// ErrPassFailed is returned when a single pass finished with failed actions.
var ErrPassFailed = errors.New("pass failed")

// RunOptions contains all the configuration for the Run command.
type RunOptions struct {
	ConfigPath       string
	Watch            bool
	Debounce         time.Duration
	Ignore           []string
	Parallel         int
	Debug            bool
	MetricsAddr      string
	ContainerRuntime string
}

// Execute handles the 'run' command logic, dispatching to a single pass or Watch mode.
func Execute(opts RunOptions) error {
	if opts.Parallel < 1 {
		return fmt.Errorf("--parallel must be at least 1, got %d", opts.Parallel)
	}
	if opts.Watch {
		return RunWatch(opts)
	}
	return RunOnce(opts)
}

// RunOnce performs exactly one pass. Failed actions yield ErrPassFailed.
func RunOnce(opts RunOptions) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()
	warnOnSignal(sigCtx, sigCtx.Signal, os.Stdout)
	return runOnce(sigCtx, opts, os.Stdout)
}

func runOnce(ctx context.Context, opts RunOptions, out io.Writer) error {
	logger := createLogger(opts.Debug)
	eng, metrics, err := createEngine(opts, logger, out)
	if err != nil {
		return err
	}
	stop, err := serveMetrics(opts.MetricsAddr, metrics, logger)
	if err != nil {
		return err
	}
	defer stop()

	tui.FprintBanner(out, cider.Version)
	rep, err := eng.RunOnce(ctx)
	if err != nil {
		return err
	}
	if sc, ok := ctx.(*SignalContext); ok {
		logInterruption(out, sc.Signal())
	}
	if rep.Status() != domain.StatusSuccess {
		_, failed := rep.Counts()
		return fmt.Errorf("%w: %d action(s) failed", ErrPassFailed, failed)
	}
	return nil
}

// createEngine wires the engine with the terminal summary and the metrics hooks.
func createEngine(opts RunOptions, logger *slog.Logger, out io.Writer) (*cider.Engine, *observability.Metrics, error) {
	metrics := observability.NewMetrics()
	hooks := metrics.Hooks()
	if opts.Debug {
		hooks = hooks.Merge(observability.LoggingHooks(logger))
	}

	engOpts := []cider.Option{
		cider.WithLogger(logger),
		cider.WithLifecycleHooks(hooks),
		cider.WithReportSink(report.NewSummary(out, report.WithRenderer(tui.NewRenderer()))),
		cider.WithIgnore(opts.Ignore...),
		cider.WithContainerRuntime(opts.ContainerRuntime),
	}
	if opts.Parallel > 0 {
		engOpts = append(engOpts, cider.WithParallelism(opts.Parallel))
	}
	if opts.Debounce > 0 {
		engOpts = append(engOpts, cider.WithDebounce(opts.Debounce))
	}

	eng, err := cider.New(opts.ConfigPath, engOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to init engine: %w", err)
	}
	return eng, metrics, nil
}
