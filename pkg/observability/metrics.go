package observability

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the CIder collectors.
type Metrics struct {
	registry       *prometheus.Registry
	passes         *prometheus.CounterVec
	actions        *prometheus.CounterVec
	steps          *prometheus.CounterVec
	actionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cider_passes_total",
			Help: "Completed orchestration passes by status.",
		}, []string{"status"}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cider_actions_total",
			Help: "Executed actions by status.",
		}, []string{"status"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cider_steps_total",
			Help: "Executed steps by status.",
		}, []string{"status"}),
		actionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cider_action_duration_seconds",
			Help:    "Wall time of actions, session setup and teardown included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"backend"}),
	}
	m.registry.MustRegister(m.passes, m.actions, m.steps, m.actionDuration)
	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassEnd: func(_ context.Context, e *domain.PassEvent) {
			if e.Report != nil {
				m.passes.WithLabelValues(string(e.Report.Status())).Inc()
			}
		},
		OnActionEnd: func(_ context.Context, e *domain.ActionEvent) {
			if e.Result == nil {
				return
			}
			m.actions.WithLabelValues(string(e.Result.Status)).Inc()
			m.actionDuration.WithLabelValues(string(e.Backend)).Observe(e.Result.Duration.Seconds())
		},
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			status := domain.StatusSuccess
			if !e.Step.Succeeded() {
				status = domain.StatusFailed
			}
			m.steps.WithLabelValues(string(status)).Inc()
		},
	}
}

// Handler serves /metrics and /healthz.
func (m *Metrics) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return r
}

// LoggingHooks logs every lifecycle event at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPassStart: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "pass start", "run_id", e.RunID)
		},
		OnPassEnd: func(ctx context.Context, e *domain.PassEvent) {
			logger.DebugContext(ctx, "pass end", "run_id", e.RunID, "status", e.Report.Status(), "duration", e.Report.Duration)
		},
		OnActionStart: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action start", "run_id", e.RunID, "pipeline", e.PipelineID, "action", e.ActionID, "backend", e.Backend)
		},
		OnActionEnd: func(ctx context.Context, e *domain.ActionEvent) {
			logger.DebugContext(ctx, "action end", "run_id", e.RunID, "pipeline", e.PipelineID, "action", e.ActionID, "status", e.Result.Status)
		},
		OnStepEnd: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step end", "run_id", e.RunID, "action", e.ActionID, "step", e.Step.Name, "exit_code", e.Step.ExitCode)
		},
	}
}
