package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
)

// Executor runs one Action in one backend session.
type Executor struct {
	backends map[domain.BackendKind]ports.Backend
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithBackend registers b for its Kind, replacing any previous one.
func WithBackend(b ports.Backend) ExecutorOption {
	return func(e *Executor) {
		e.backends[b.Kind()] = b
	}
}

// WithExecutorHooks registers action and step hooks.
func WithExecutorHooks(hooks domain.LifecycleHooks) ExecutorOption {
	return func(e *Executor) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithExecutorLogger sets the logger.
func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		e.logger = logger
	}
}

// NewExecutor creates an Executor.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{
		backends: make(map[domain.BackendKind]ports.Backend),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs the steps of action in declaration order and stops at the first
// nonzero exit code. The session is ended exactly once on every path.
func (e *Executor) Execute(ctx context.Context, action domain.Action) (result domain.RunResult) {
	start := time.Now()
	kind, kindErr := action.Config.BackendKind()
	result = domain.RunResult{
		ActionID:   action.ID,
		PipelineID: action.PipelineID,
		Backend:    kind,
		Status:     domain.StatusFailed,
	}
	logger := e.logger.With("action", action.QualifiedID(), "backend", kind)

	e.emitAction(ctx, e.hooks.OnActionStart, domain.EventActionStart, action, kind, nil)
	defer func() {
		result.Duration = time.Since(start)
		logger.Info("action finished", "status", result.Status, "duration", result.Duration)
		e.emitAction(ctx, e.hooks.OnActionEnd, domain.EventActionEnd, action, kind, &result)
	}()

	if kindErr != nil {
		result.Error = kindErr.Error()
		return result
	}
	backend, ok := e.backends[kind]
	if !ok {
		result.Error = fmt.Sprintf("no backend registered for %q", kind)
		return result
	}

	session, err := backend.StartSession(ctx, ports.SessionSpec{
		ActionID:   action.QualifiedID(),
		WorkingDir: action.Config.SourceDirectory,
		Image:      action.Config.Image,
		Env:        stepEnv(ctx, action, kind),
	})
	if err != nil {
		logger.Error("session start failed", "err", err)
		result.Error = err.Error()
		return result
	}
	defer func() {
		if err := session.EndSession(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("session teardown failed", "err", err)
		}
	}()

	for _, step := range action.Steps {
		stepStart := time.Now()
		out, err := session.RunStep(ctx, step.Script)
		sr := domain.StepResult{
			Name:     step.Name,
			ExitCode: out.ExitCode,
			Stdout:   out.Stdout,
			Stderr:   out.Stderr,
			Duration: time.Since(stepStart),
		}
		if err != nil {
			sr.ExitCode = -1
		}
		result.Steps = append(result.Steps, sr)
		logger.Debug("step finished", "step", step.Name, "exit_code", sr.ExitCode, "duration", sr.Duration)
		e.emitStep(ctx, action, sr)

		if err != nil {
			logger.Error("step transport failed", "step", step.Name, "err", err)
			result.Error = err.Error()
			return result
		}
		if sr.ExitCode != 0 {
			result.Error = (&domain.StepError{Step: step.Name, ExitCode: sr.ExitCode}).Error()
			return result
		}
	}

	result.Status = domain.StatusSuccess
	return result
}

// stepEnv is exported to every step of the Action.
func stepEnv(ctx context.Context, action domain.Action, kind domain.BackendKind) map[string]string {
	env := map[string]string{
		"CIDER":         "true",
		"CIDER_ACTION":  action.ID,
		"CIDER_BACKEND": string(kind),
	}
	if action.PipelineID != "" {
		env["CIDER_PIPELINE"] = action.PipelineID
	}
	if id := RunIDFrom(ctx); id != "" {
		env["CIDER_RUN_ID"] = id
	}
	return env
}

func (e *Executor) emitAction(ctx context.Context, hook func(context.Context, *domain.ActionEvent), typ domain.EventType, action domain.Action, kind domain.BackendKind, result *domain.RunResult) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.ActionEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: RunIDFrom(ctx)},
		ActionID:   action.ID,
		PipelineID: action.PipelineID,
		Backend:    kind,
		Result:     result,
	})
}

func (e *Executor) emitStep(ctx context.Context, action domain.Action, step domain.StepResult) {
	if e.hooks.OnStepEnd == nil {
		return
	}
	e.hooks.OnStepEnd(ctx, &domain.StepEvent{
		EventBase:  domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: RunIDFrom(ctx)},
		ActionID:   action.ID,
		PipelineID: action.PipelineID,
		Step:       step,
	})
}
