package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/config"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/aretw0/cider/pkg/resolver"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Orchestrator performs complete passes: resolve, run pipelines, run top-level
// actions, publish the report.
type Orchestrator struct {
	resolver    *resolver.Resolver
	actions     ActionRunner
	parallelism int
	sinks       []ports.ReportSink
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithParallelism bounds how many top-level Pipelines run at once. Values below 1
// mean one, which keeps every pass strictly sequential.
func WithParallelism(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		o.parallelism = max(n, 1)
	}
}

// WithReportSink adds a destination for pass reports.
func WithReportSink(sink ports.ReportSink) OrchestratorOption {
	return func(o *Orchestrator) {
		o.sinks = append(o.sinks, sink)
	}
}

// WithPassHooks registers pass-level hooks.
func WithPassHooks(hooks domain.LifecycleHooks) OrchestratorOption {
	return func(o *Orchestrator) {
		o.hooks = o.hooks.Merge(hooks)
	}
}

// WithOrchestratorLogger sets the logger.
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator creates an Orchestrator resolving with res and executing with actions.
func NewOrchestrator(res *resolver.Resolver, actions ActionRunner, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		resolver:    res,
		actions:     actions,
		parallelism: 1,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run performs one pass over tree. A ConfigError aborts the pass before anything runs,
// in which case no report is produced.
func (o *Orchestrator) Run(ctx context.Context, tree *config.Tree) (*domain.Report, error) {
	plan, err := o.resolver.Resolve(tree)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx, plan), nil
}

// Execute runs an already resolved plan. Cancelling ctx does not interrupt a pass in
// flight; it only reaches the hooks and sinks.
func (o *Orchestrator) Execute(ctx context.Context, plan *domain.Plan) *domain.Report {
	report := &domain.Report{
		RunID:           uuid.NewString(),
		StartedAt:       time.Now(),
		OutputDirectory: plan.Config.OutputDirectory,
	}
	ctx = WithRunID(ctx, report.RunID)
	logger := o.logger.With("run_id", report.RunID)
	o.emitPass(ctx, o.hooks.OnPassStart, domain.EventPassStart, nil)
	logger.Info("pass started", "pipelines", len(plan.Pipelines), "actions", plan.ActionCount())

	execCtx := context.WithoutCancel(ctx)
	runner := NewPipelineRunner(o.actions, logger)

	report.Pipelines = make([]domain.PipelineResult, len(plan.Pipelines))
	g := new(errgroup.Group)
	g.SetLimit(o.parallelism)
	for i, pipeline := range plan.Pipelines {
		g.Go(func() error {
			report.Pipelines[i] = runner.Run(execCtx, pipeline)
			return nil
		})
	}
	_ = g.Wait()

	report.Actions = make([]domain.RunResult, 0, len(plan.Actions))
	for _, action := range plan.Actions {
		report.Actions = append(report.Actions, o.actions.Execute(execCtx, action))
	}

	report.Duration = time.Since(report.StartedAt)
	succeeded, failed := report.Counts()
	logger.Info("pass finished", "status", report.Status(), "succeeded", succeeded, "failed", failed, "duration", report.Duration)

	for _, sink := range o.sinks {
		if err := sink.Publish(ctx, report); err != nil {
			logger.Warn("report sink failed", "err", err)
		}
	}
	o.emitPass(ctx, o.hooks.OnPassEnd, domain.EventPassEnd, report)
	return report
}

// Plan resolves tree without executing anything.
func (o *Orchestrator) Plan(tree *config.Tree) (*domain.Plan, error) {
	return o.resolver.Resolve(tree)
}

func (o *Orchestrator) emitPass(ctx context.Context, hook func(context.Context, *domain.PassEvent), typ domain.EventType, report *domain.Report) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.PassEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: RunIDFrom(ctx)},
		Report:    report,
	})
}
