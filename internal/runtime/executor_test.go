package runtime_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/aretw0/cider/internal/runtime"
	"github.com/aretw0/cider/pkg/adapters/memory"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func action(id, backend string, steps ...string) domain.Action {
	a := domain.Action{ID: id, Config: domain.EffectiveConfig{Shareable: domain.Shareable{
		Backend:         backend,
		SourceDirectory: "/src",
	}}}
	for i := 0; i+1 < len(steps); i += 2 {
		a.Steps = append(a.Steps, domain.ManualStep{Name: steps[i], Script: steps[i+1]})
	}
	return a
}

func TestExecutor_RunsStepsInOrder(t *testing.T) {
	backend := memory.NewBackend(domain.BackendBash)
	exec := runtime.NewExecutor(runtime.WithBackend(backend))

	res := exec.Execute(context.Background(), action("A", "bash", "s1", "echo one", "s2", "echo two"))

	assert.Equal(t, domain.StatusSuccess, res.Status)
	assert.Equal(t, domain.BackendBash, res.Backend)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "s1", res.Steps[0].Name)
	assert.Equal(t, "one\n", res.Steps[0].Stdout)
	assert.Equal(t, "two\n", res.Steps[1].Stdout)
	assert.Empty(t, res.Error)

	sessions := backend.Sessions()
	require.Len(t, sessions, 1, "one session per action")
	assert.Equal(t, []string{"echo one", "echo two"}, sessions[0].Steps())
	assert.Equal(t, 1, sessions[0].Ends())
	assert.Equal(t, "/src", sessions[0].Spec().WorkingDir)
	assert.Equal(t, "A", sessions[0].Spec().Env["CIDER_ACTION"])
}

func TestExecutor_FailFast(t *testing.T) {
	backend := memory.NewBackend(domain.BackendBash)
	exec := runtime.NewExecutor(runtime.WithBackend(backend))

	res := exec.Execute(context.Background(), action("A", "bash", "s1", "exit 1", "s2", "echo unreachable"))

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "s1", res.Steps[0].Name)
	assert.Equal(t, 1, res.Steps[0].ExitCode)
	assert.Contains(t, res.Error, `step "s1" exited with code 1`)

	sessions := backend.Sessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, []string{"exit 1"}, sessions[0].Steps())
	assert.Equal(t, 1, sessions[0].Ends())
}

func TestExecutor_StartFailure(t *testing.T) {
	exec := runtime.NewExecutor(runtime.WithBackend(
		memory.NewBackend(domain.BackendDocker, memory.WithStartError(errors.New("daemon unreachable"))),
	))

	res := exec.Execute(context.Background(), action("A", "docker", "s1", "echo hi"))

	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Empty(t, res.Steps)
	assert.Contains(t, res.Error, "daemon unreachable")
}

func TestExecutor_TransportFailure(t *testing.T) {
	backend := memory.NewBackend(domain.BackendBash, memory.WithHandler(
		func(_ ports.SessionSpec, script string) (ports.StepOutput, error) {
			if script == "broken" {
				return ports.StepOutput{Stdout: "partial"}, &domain.BackendError{Backend: domain.BackendBash, Op: "run", Err: errors.New("pipe closed")}
			}
			return ports.StepOutput{}, nil
		}))
	exec := runtime.NewExecutor(runtime.WithBackend(backend))

	res := exec.Execute(context.Background(), action("A", "bash", "ok", "true", "bad", "broken", "never", "true"))

	assert.Equal(t, domain.StatusFailed, res.Status)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, -1, res.Steps[1].ExitCode)
	assert.Equal(t, "partial", res.Steps[1].Stdout)
	assert.Contains(t, res.Error, "pipe closed")
	assert.Equal(t, 1, backend.Sessions()[0].Ends())
}

func TestExecutor_UnregisteredBackend(t *testing.T) {
	res := runtime.NewExecutor().Execute(context.Background(), action("A", "batch", "s", "echo"))
	assert.Equal(t, domain.StatusFailed, res.Status)
	assert.Contains(t, res.Error, `no backend registered for "batch"`)
}

func TestExecutor_Hooks(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, s)
	}
	hooks := domain.LifecycleHooks{
		OnActionStart: func(_ context.Context, e *domain.ActionEvent) { record("start:" + e.ActionID) },
		OnStepEnd:     func(_ context.Context, e *domain.StepEvent) { record("step:" + e.Step.Name) },
		OnActionEnd: func(_ context.Context, e *domain.ActionEvent) {
			record("end:" + e.ActionID + ":" + string(e.Result.Status))
		},
	}
	exec := runtime.NewExecutor(
		runtime.WithBackend(memory.NewBackend(domain.BackendBash)),
		runtime.WithExecutorHooks(hooks),
	)

	exec.Execute(context.Background(), action("A", "bash", "s1", "true", "s2", "exit 2"))

	assert.Equal(t, []string{"start:A", "step:s1", "step:s2", "end:A:failed"}, events)
}
