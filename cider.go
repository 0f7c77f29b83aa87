package cider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/internal/runtime"
	"github.com/aretw0/cider/pkg/adapters/container"
	"github.com/aretw0/cider/pkg/adapters/shell"
	"github.com/aretw0/cider/pkg/config"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/aretw0/cider/pkg/report"
	"github.com/aretw0/cider/pkg/resolver"
	"github.com/aretw0/cider/pkg/watch"
)

// Engine is the high-level entry point for the CIder library.
// It loads the configuration document, resolves it and runs passes over it.
type Engine struct {
	configPath       string
	baseDir          string
	backends         []ports.Backend
	containerRuntime string
	parallelism      int
	sinks            []ports.ReportSink
	hooks            domain.LifecycleHooks
	logger           *slog.Logger
	debounce         time.Duration
	ignore           []string
	noOutputFile     bool

	resolver     *resolver.Resolver
	orchestrator *runtime.Orchestrator
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Repeated calls are merged.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithBackend registers a backend, replacing the default one of the same kind.
func WithBackend(b ports.Backend) Option {
	return func(e *Engine) {
		e.backends = append(e.backends, b)
	}
}

// WithContainerRuntime sets the CLI used by the default container backend.
func WithContainerRuntime(bin string) Option {
	return func(e *Engine) {
		e.containerRuntime = bin
	}
}

// WithParallelism bounds how many top-level pipelines run at once (default 1).
func WithParallelism(n int) Option {
	return func(e *Engine) {
		e.parallelism = n
	}
}

// WithReportSink adds a destination for pass reports.
func WithReportSink(sink ports.ReportSink) Option {
	return func(e *Engine) {
		e.sinks = append(e.sinks, sink)
	}
}

// WithoutOutputFile disables the text log written to the output directory.
func WithoutOutputFile() Option {
	return func(e *Engine) {
		e.noOutputFile = true
	}
}

// WithBaseDir sets the directory relative paths of the document resolve against.
// Defaults to the process working directory.
func WithBaseDir(dir string) Option {
	return func(e *Engine) {
		e.baseDir = dir
	}
}

// WithDebounce sets the quiet window of Watch.
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		e.debounce = d
	}
}

// WithIgnore adds glob patterns Watch never reacts to.
func WithIgnore(globs ...string) Option {
	return func(e *Engine) {
		e.ignore = append(e.ignore, globs...)
	}
}

// New initializes a new CIder Engine for the document at configPath.
// An empty path means config.DefaultFile. The document is not read until a pass runs.
func New(configPath string, opts ...Option) (*Engine, error) {
	eng := &Engine{
		configPath:  configPath,
		parallelism: 1,
		debounce:    watch.DefaultDebounce,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.configPath == "" {
		eng.configPath = config.DefaultFile
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.debounce <= 0 {
		return nil, fmt.Errorf("debounce must be positive, got %s", eng.debounce)
	}

	resOpts := []resolver.Option{resolver.WithLogger(eng.logger)}
	if eng.baseDir != "" {
		resOpts = append(resOpts, resolver.WithBaseDir(eng.baseDir))
	}
	eng.resolver = resolver.New(resOpts...)

	// Defaults first so injected backends replace them.
	backends := []ports.Backend{
		shell.NewBash(shell.WithLogger(eng.logger)),
		shell.NewBatch(shell.WithLogger(eng.logger)),
		container.New(container.WithRuntime(eng.containerRuntime), container.WithLogger(eng.logger)),
	}
	execOpts := []runtime.ExecutorOption{
		runtime.WithExecutorHooks(eng.hooks),
		runtime.WithExecutorLogger(eng.logger),
	}
	for _, b := range append(backends, eng.backends...) {
		execOpts = append(execOpts, runtime.WithBackend(b))
	}
	executor := runtime.NewExecutor(execOpts...)

	orchOpts := []runtime.OrchestratorOption{
		runtime.WithParallelism(eng.parallelism),
		runtime.WithPassHooks(eng.hooks),
		runtime.WithOrchestratorLogger(eng.logger),
	}
	if !eng.noOutputFile {
		orchOpts = append(orchOpts, runtime.WithReportSink(report.NewFileWriter()))
	}
	for _, sink := range eng.sinks {
		orchOpts = append(orchOpts, runtime.WithReportSink(sink))
	}
	eng.orchestrator = runtime.NewOrchestrator(eng.resolver, executor, orchOpts...)

	return eng, nil
}

// ConfigPath returns the document the engine reads.
func (e *Engine) ConfigPath() string {
	return e.configPath
}

// Load reads and parses the configuration document.
func (e *Engine) Load() (*config.Tree, error) {
	return config.Load(e.configPath)
}

// Plan loads and resolves the document without running anything.
func (e *Engine) Plan() (*domain.Plan, error) {
	tree, err := e.Load()
	if err != nil {
		return nil, err
	}
	return e.orchestrator.Plan(tree)
}

// RunOnce performs one pass. The document is re-read on every call.
// A configuration error aborts the pass before anything runs; failed actions
// are reported in the Report, not as an error.
func (e *Engine) RunOnce(ctx context.Context) (*domain.Report, error) {
	plan, err := e.Plan()
	if err != nil {
		return nil, err
	}
	return e.orchestrator.Execute(ctx, plan), nil
}

// Watch runs a pass immediately and then one pass after every burst of changes
// below the resolved source directory, until ctx is cancelled.
// onPass, if not nil, receives the outcome of every pass.
//
// A configuration error before the first pass is returned since there is nothing to watch.
// Later configuration errors are logged and the engine keeps watching.
func (e *Engine) Watch(ctx context.Context, onPass func(*domain.Report, error)) error {
	if onPass == nil {
		onPass = func(*domain.Report, error) {}
	}

	plan, err := e.Plan()
	if err != nil {
		onPass(nil, err)
		return err
	}

	// The tree is watched before the first pass starts.
	w, err := watch.New(plan.Config.SourceDirectory,
		watch.WithDebounce(e.debounce),
		watch.WithIgnore(e.ignore...),
		watch.WithIgnoreTree(plan.Config.OutputDirectory),
		watch.WithLogger(e.logger),
		watch.WithInitialPass(),
	)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}

	return w.Run(ctx, func(ctx context.Context) {
		rep, err := e.RunOnce(ctx)
		if err != nil {
			e.logger.Error("pass aborted", "err", err)
		}
		onPass(rep, err)
	})
}
