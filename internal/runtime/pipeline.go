package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/cider/pkg/domain"
)

// ActionRunner executes a single Action. *Executor satisfies it.
type ActionRunner interface {
	Execute(ctx context.Context, action domain.Action) domain.RunResult
}

// PipelineRunner runs the Actions of a Pipeline one after another.
// A failing Action does not stop the ones after it.
type PipelineRunner struct {
	actions ActionRunner
	logger  *slog.Logger
}

// NewPipelineRunner creates a PipelineRunner.
func NewPipelineRunner(actions ActionRunner, logger *slog.Logger) *PipelineRunner {
	return &PipelineRunner{actions: actions, logger: logger}
}

// Run executes every Action of pipeline in list order.
func (r *PipelineRunner) Run(ctx context.Context, pipeline domain.Pipeline) domain.PipelineResult {
	start := time.Now()
	result := domain.PipelineResult{
		PipelineID: pipeline.ID,
		Status:     domain.StatusSuccess,
		Actions:    make([]domain.RunResult, 0, len(pipeline.Actions)),
	}

	for _, action := range pipeline.Actions {
		res := r.actions.Execute(ctx, action)
		if res.Status != domain.StatusSuccess {
			result.Status = domain.StatusFailed
			r.logger.Warn("action failed, continuing pipeline",
				"pipeline", pipeline.ID, "action", action.ID, "err", res.Error)
		}
		result.Actions = append(result.Actions, res)
	}

	result.Duration = time.Since(start)
	return result
}
