// Package watch re-runs a pass whenever the source tree changes.
//
// Bursts of filesystem events are debounced into one trigger. Passes never overlap:
// changes seen while a pass runs are remembered as a single pending trigger, so at
// most one follow-up pass is queued. Cancelling the context stops the loop once the
// current pass returns.
package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cider/internal/logging"
)

// DefaultDebounce is the coalescing window for filesystem events.
const DefaultDebounce = 500 * time.Millisecond

// PassFunc runs one pass.
type PassFunc func(ctx context.Context)

// Watcher monitors a directory tree and triggers passes.
type Watcher struct {
	root     string
	debounce time.Duration
	globs    []string
	trees    []string
	logger   *slog.Logger
	source   Source
	matcher  *Matcher
	initial  bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the coalescing window. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithIgnore adds doublestar patterns, relative to the root, to the ignore list.
func WithIgnore(globs ...string) Option {
	return func(w *Watcher) {
		w.globs = append(w.globs, globs...)
	}
}

// WithIgnoreTree ignores an absolute directory and everything below it.
func WithIgnoreTree(dir string) Option {
	return func(w *Watcher) {
		w.trees = append(w.trees, dir)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithSource replaces the fsnotify event source.
func WithSource(src Source) Option {
	return func(w *Watcher) {
		w.source = src
	}
}

// WithInitialPass makes Run start one pass as soon as the tree is being watched,
// so changes made during that pass trigger a follow-up.
func WithInitialPass() Option {
	return func(w *Watcher) {
		w.initial = true
	}
}

// New creates a Watcher for root. It fails on invalid ignore patterns.
func New(root string, opts ...Option) (*Watcher, error) {
	w := &Watcher{root: root, debounce: DefaultDebounce, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(w)
	}
	m, err := NewMatcher(root, w.globs, w.trees)
	if err != nil {
		return nil, err
	}
	w.matcher = m
	return w, nil
}

// Run blocks until ctx is cancelled, calling pass after every debounced burst of
// relevant changes. It returns an error only if the tree cannot be watched at all.
func (w *Watcher) Run(ctx context.Context, pass PassFunc) error {
	src := w.source
	if src == nil {
		fs, err := newFSSource(w.root, w.matcher, w.logger)
		if err != nil {
			return err
		}
		src = fs
	}
	defer src.Close()

	w.logger.Info("watching for changes", "path", w.root, "debounce", w.debounce)

	var (
		quiet    <-chan time.Time
		running  bool
		pending  bool
		passDone = make(chan struct{})
		events   = src.Events()
	)
	start := func() {
		running = true
		go func() {
			pass(ctx)
			passDone <- struct{}{}
		}()
	}
	if w.initial {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			if running {
				w.logger.Info("waiting for the current pass before stopping")
				<-passDone
			}
			return nil

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if w.matcher.Ignored(ev.Path) {
				continue
			}
			w.logger.Debug("change detected", "path", ev.Path, "op", ev.Op)
			quiet = time.After(w.debounce)

		case err := <-src.Errors():
			w.logger.Error("watch error", "err", err)

		case <-quiet:
			quiet = nil
			if running {
				pending = true
				continue
			}
			start()

		case <-passDone:
			running = false
			if pending {
				pending = false
				start()
			}
		}
	}
}
