package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/cider/internal/logging"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	start  sync.Once
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// It acts as a drop-in replacement for signal.NotifyContext but allows retrieving the signal.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	sc.start.Do(func() {
		signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			select {
			case sig := <-sc.sigCh:
				sc.mu.Lock()
				sc.sigVal = sig
				sc.mu.Unlock()
				sc.Cancel()
			case <-sc.Context.Done():
				// Context cancelled elsewhere
			}
			sc.stop.Do(func() {
				signal.Stop(sc.sigCh)
			})
		}()
	})

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

// warnOnSignal prints a notice once ctx is cancelled by a signal. The signal
// handler is released at that point, so a second signal terminates the process
// before sessions and their containers are cleaned up.
// The returned channel is closed when the watcher goroutine ends.
func warnOnSignal(ctx context.Context, received func() os.Signal, w io.Writer) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		if received() == nil {
			return
		}
		printSystemMessage(w, "Stopping after the current pass. A second interrupt exits immediately and skips container cleanup.")
	}()
	return done
}

// createLogger configures the application logger on stderr.
// Debug mode shows everything, otherwise only warnings and errors.
func createLogger(debug bool) *slog.Logger {
	return logging.New(logging.Level(debug))
}

// printSystemMessage prints a standardized system message.
func printSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

func logInterruption(w io.Writer, sig os.Signal) {
	switch sig {
	case nil:
	case os.Interrupt:
		fmt.Fprintf(w, "[CTRL+C]\n")
		printSystemMessage(w, "Interrupted, stopped after the current pass.")
	default:
		fmt.Fprintf(w, "\n")
		printSystemMessage(w, "Terminated (%s), stopped after the current pass.", sig)
	}
}
