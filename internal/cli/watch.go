package cli

import (
	"context"
	"io"
	"os"

	"github.com/aretw0/cider"
	"github.com/aretw0/cider/internal/presentation/tui"
	"github.com/aretw0/cider/pkg/domain"
)

// RunWatch executes CIder in development mode, running a pass after every change.
// Only a configuration error in the first pass is returned.
func RunWatch(opts RunOptions) error {
	sigCtx := NewSignalContext(context.Background())
	defer sigCtx.Cancel()
	warnOnSignal(sigCtx, sigCtx.Signal, os.Stdout)

	err := runWatch(sigCtx, opts, os.Stdout)
	logInterruption(os.Stdout, sigCtx.Signal())
	return err
}

func runWatch(ctx context.Context, opts RunOptions, out io.Writer) error {
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
	logger.Info("Starting Watcher", "config", eng.ConfigPath())

	passes := 0
	return eng.Watch(ctx, func(r *domain.Report, err error) {
		passes++
		switch {
		case err != nil && passes > 1:
			printSystemMessage(out, "Configuration error, waiting for the next change: %v", err)
		case err == nil:
			printSystemMessage(out, "Watching for changes (pass %d finished: %s).", passes, r.Status())
		}
	})
}
