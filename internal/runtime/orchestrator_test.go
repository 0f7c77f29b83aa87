package runtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cider/internal/runtime"
	"github.com/aretw0/cider/pkg/adapters/memory"
	"github.com/aretw0/cider/pkg/config"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/aretw0/cider/pkg/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tree(t *testing.T, doc string) *config.Tree {
	t.Helper()
	tr, err := config.Parse([]byte(doc), config.FormatJSON)
	require.NoError(t, err)
	return tr
}

func newOrchestrator(backends []ports.Backend, opts ...runtime.OrchestratorOption) *runtime.Orchestrator {
	var execOpts []runtime.ExecutorOption
	for _, b := range backends {
		execOpts = append(execOpts, runtime.WithBackend(b))
	}
	return runtime.NewOrchestrator(resolver.New(resolver.WithBaseDir("/work")), runtime.NewExecutor(execOpts...), opts...)
}

func TestOrchestrator_SingleActionSucceeds(t *testing.T) {
	bash := memory.NewBackend(domain.BackendBash)
	o := newOrchestrator([]ports.Backend{bash})

	report, err := o.Run(context.Background(), tree(t,
		`{"backend": "bash", "pipelines": ["P"], "P": {"actions": ["A"], "A": {"manual": {"s1": "echo hi"}}}}`))
	require.NoError(t, err)

	require.Len(t, report.Pipelines, 1)
	require.Len(t, report.Pipelines[0].Actions, 1)
	res := report.Pipelines[0].Actions[0]
	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, "hi\n", res.Steps[0].Stdout)
	assert.Equal(t, domain.StatusSuccess, report.Status())
	assert.NotEmpty(t, report.RunID)
	assert.Equal(t, "/work/dist/cider", report.OutputDirectory)
	assert.Equal(t, report.RunID, bash.Sessions()[0].Spec().Env["CIDER_RUN_ID"])
}

func TestOrchestrator_FailFastAndPipelineContinues(t *testing.T) {
	bash := memory.NewBackend(domain.BackendBash)
	o := newOrchestrator([]ports.Backend{bash})

	report, err := o.Run(context.Background(), tree(t, `{
		"backend": "bash",
		"pipelines": ["P"],
		"P": {
			"actions": ["A", "B"],
			"A": {"manual": {"s1": "exit 1", "s2": "echo unreachable"}},
			"B": {"manual": {"s1": "echo after"}}
		}
	}`))
	require.NoError(t, err)

	p := report.Pipelines[0]
	assert.Equal(t, domain.StatusFailed, p.Status)
	require.Len(t, p.Actions, 2)
	assert.Equal(t, domain.StatusFailed, p.Actions[0].Status)
	assert.Len(t, p.Actions[0].Steps, 1)
	assert.Equal(t, domain.StatusSuccess, p.Actions[1].Status)
	assert.Equal(t, domain.StatusFailed, report.Status())

	for _, s := range bash.Sessions() {
		assert.Equal(t, 1, s.Ends())
	}
}

func TestOrchestrator_LocalBackendOverridesInherited(t *testing.T) {
	bash := memory.NewBackend(domain.BackendBash)
	docker := memory.NewBackend(domain.BackendDocker)
	o := newOrchestrator([]ports.Backend{bash, docker})

	report, err := o.Run(context.Background(), tree(t, `{
		"backend": "docker",
		"pipelines": ["P"],
		"P": {"actions": ["A", "C"], "A": {"backend": "bash", "manual": {"s": "echo native"}}, "C": {"manual": {"s": "echo boxed"}}}
	}`))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, report.Status())

	require.Len(t, bash.Sessions(), 1)
	assert.Equal(t, "P/A", bash.Sessions()[0].Spec().ActionID)
	require.Len(t, docker.Sessions(), 1)
	assert.Equal(t, "P/C", docker.Sessions()[0].Spec().ActionID)
	assert.Empty(t, docker.Sessions()[0].Spec().Image)
}

func TestOrchestrator_ConfigErrorRunsNothing(t *testing.T) {
	bash := memory.NewBackend(domain.BackendBash)
	published := 0
	o := newOrchestrator([]ports.Backend{bash}, runtime.WithReportSink(ports.ReportSinkFunc(
		func(context.Context, *domain.Report) error { published++; return nil })))

	report, err := o.Run(context.Background(), tree(t,
		`{"backend": "bash", "pipelines": ["P1"], "A": {"manual": {"s": "echo"}}, "actions": ["A"]}`))

	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.Nil(t, report)
	assert.Empty(t, bash.Sessions())
	assert.Zero(t, published)
}

func TestOrchestrator_ActivationAndOrder(t *testing.T) {
	bash := memory.NewBackend(domain.BackendBash)
	o := newOrchestrator([]ports.Backend{bash})

	report, err := o.Run(context.Background(), tree(t, `{
		"backend": "bash",
		"actions": ["T2", "T1"],
		"pipelines": ["P2", "P1"],
		"T1": {"manual": {"s": "echo t1"}},
		"T2": {"manual": {"s": "echo t2"}},
		"Unlisted": {"manual": {"s": "echo no"}},
		"P1": {"actions": ["A"], "A": {"manual": {"s": "echo p1"}}, "Skipped": {"manual": {"s": "echo no"}}},
		"P2": {"actions": ["A"], "A": {"manual": {"s": "echo p2"}}}
	}`))
	require.NoError(t, err)

	var order []string
	for _, s := range bash.Sessions() {
		order = append(order, s.Spec().ActionID)
	}
	assert.Equal(t, []string{"P2/A", "P1/A", "T2", "T1"}, order)
	assert.Len(t, report.Results(), 4)
}

func TestOrchestrator_ParallelPipelinesKeepOrder(t *testing.T) {
	var (
		mu      sync.Mutex
		running int
		peak    int
	)
	slow := memory.NewBackend(domain.BackendBash, memory.WithHandler(
		func(spec ports.SessionSpec, script string) (ports.StepOutput, error) {
			mu.Lock()
			running++
			peak = max(peak, running)
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
			mu.Lock()
			running--
			mu.Unlock()
			return memory.Echo(spec, script)
		}))
	o := newOrchestrator([]ports.Backend{slow}, runtime.WithParallelism(2))

	report, err := o.Run(context.Background(), tree(t, `{
		"backend": "bash",
		"pipelines": ["P1", "P2", "P3"],
		"P1": {"actions": ["A"], "A": {"manual": {"s": "echo 1"}}},
		"P2": {"actions": ["A"], "A": {"manual": {"s": "echo 2"}}},
		"P3": {"actions": ["A"], "A": {"manual": {"s": "echo 3"}}}
	}`))
	require.NoError(t, err)

	require.Len(t, report.Pipelines, 3)
	for i, id := range []string{"P1", "P2", "P3"} {
		assert.Equal(t, id, report.Pipelines[i].PipelineID)
	}
	assert.LessOrEqual(t, peak, 2)
}

func TestOrchestrator_PassHooksAndSinks(t *testing.T) {
	var events []domain.EventType
	var published *domain.Report
	hooks := domain.LifecycleHooks{
		OnPassStart: func(_ context.Context, e *domain.PassEvent) { events = append(events, e.Type) },
		OnPassEnd: func(_ context.Context, e *domain.PassEvent) {
			events = append(events, e.Type)
			assert.NotNil(t, e.Report)
		},
	}
	sink := ports.ReportSinkFunc(func(_ context.Context, r *domain.Report) error {
		published = r
		return nil
	})
	o := newOrchestrator([]ports.Backend{memory.NewBackend(domain.BackendBash)},
		runtime.WithPassHooks(hooks), runtime.WithReportSink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := o.Run(ctx, tree(t, `{"backend": "bash", "actions": ["A"], "A": {"manual": {"s": "echo x"}}}`))
	require.NoError(t, err)

	assert.Equal(t, []domain.EventType{domain.EventPassStart, domain.EventPassEnd}, events)
	assert.Same(t, report, published)
	assert.Equal(t, domain.StatusSuccess, report.Status(), "cancellation never interrupts a pass")
}
