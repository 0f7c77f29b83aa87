package cider_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/cider"
	"github.com/aretw0/cider/pkg/adapters/memory"
	"github.com/aretw0/cider/pkg/config"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/aretw0/cider/pkg/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioA = `{
	"backend": "bash",
	"pipelines": ["P"],
	"P": {"actions": ["A"], "A": {"manual": {"s1": "echo hi"}}}
}`

func writeConfig(t *testing.T, dir, doc string) string {
	t.Helper()
	path := filepath.Join(dir, "cider_config.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	return path
}

func newEngine(t *testing.T, dir, doc string, opts ...cider.Option) (*cider.Engine, *memory.Backend) {
	t.Helper()
	bash := memory.NewBackend(domain.BackendBash)
	opts = append([]cider.Option{cider.WithBaseDir(dir), cider.WithBackend(bash)}, opts...)
	eng, err := cider.New(writeConfig(t, dir, doc), opts...)
	require.NoError(t, err)
	return eng, bash
}

func TestEngine_RunOnce(t *testing.T) {
	dir := t.TempDir()
	eng, bash := newEngine(t, dir, scenarioA)

	rep, err := eng.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusSuccess, rep.Status())
	require.Len(t, rep.Pipelines, 1)
	require.Len(t, rep.Pipelines[0].Actions, 1)
	assert.Equal(t, "hi\n", rep.Pipelines[0].Actions[0].Steps[0].Stdout)
	assert.Len(t, bash.Sessions(), 1)

	t.Run("writes the text log to the output directory", func(t *testing.T) {
		data, err := os.ReadFile(filepath.Join(dir, "dist", "cider", report.DefaultFileName))
		require.NoError(t, err)
		assert.Contains(t, string(data), "-- action P/A (bash) [success]")
	})
}

func TestEngine_RunOnceRereadsDocument(t *testing.T) {
	dir := t.TempDir()
	eng, _ := newEngine(t, dir, scenarioA, cider.WithoutOutputFile())

	first, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, first.Status())

	writeConfig(t, dir, `{"backend": "bash", "actions": ["B"], "B": {"manual": {"s": "exit 4"}}}`)

	second, err := eng.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Pipelines)
	require.Len(t, second.Actions, 1)
	assert.Equal(t, domain.StatusFailed, second.Actions[0].Status)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestEngine_ConfigErrorRunsNothing(t *testing.T) {
	dir := t.TempDir()
	eng, bash := newEngine(t, dir, `{"backend": "bash", "pipelines": ["P1"]}`)

	rep, err := eng.RunOnce(context.Background())
	require.Error(t, err)
	assert.Nil(t, rep)
	assert.True(t, domain.IsConfigError(err))
	assert.Empty(t, bash.Sessions())
	assert.NoDirExists(t, filepath.Join(dir, "dist"))
}

func TestEngine_Plan(t *testing.T) {
	dir := t.TempDir()
	eng, bash := newEngine(t, dir, scenarioA)

	plan, err := eng.Plan()
	require.NoError(t, err)
	require.Len(t, plan.Pipelines, 1)
	assert.Equal(t, "bash", plan.Pipelines[0].Actions[0].Config.Backend)
	assert.Equal(t, filepath.Join(dir, "dist", "cider"), plan.Config.OutputDirectory)
	assert.Empty(t, bash.Sessions())
}

func TestEngine_Options(t *testing.T) {
	t.Run("default document", func(t *testing.T) {
		eng, err := cider.New("")
		require.NoError(t, err)
		assert.Equal(t, config.DefaultFile, eng.ConfigPath())
	})

	t.Run("invalid debounce", func(t *testing.T) {
		_, err := cider.New("", cider.WithDebounce(0))
		assert.ErrorContains(t, err, "debounce must be positive")
	})

	t.Run("hooks and sinks", func(t *testing.T) {
		var (
			mu      sync.Mutex
			events  []domain.EventType
			reports []*domain.Report
		)
		record := func(typ domain.EventType) {
			mu.Lock()
			defer mu.Unlock()
			events = append(events, typ)
		}
		hooks := domain.LifecycleHooks{
			OnPassStart:   func(context.Context, *domain.PassEvent) { record(domain.EventPassStart) },
			OnActionStart: func(context.Context, *domain.ActionEvent) { record(domain.EventActionStart) },
			OnStepEnd:     func(context.Context, *domain.StepEvent) { record(domain.EventStepEnd) },
			OnActionEnd:   func(context.Context, *domain.ActionEvent) { record(domain.EventActionEnd) },
			OnPassEnd:     func(context.Context, *domain.PassEvent) { record(domain.EventPassEnd) },
		}
		sink := func(_ context.Context, r *domain.Report) error {
			reports = append(reports, r)
			return nil
		}

		eng, _ := newEngine(t, t.TempDir(), scenarioA,
			cider.WithoutOutputFile(),
			cider.WithLifecycleHooks(hooks),
			cider.WithReportSink(ports.ReportSinkFunc(sink)),
		)
		_, err := eng.RunOnce(context.Background())
		require.NoError(t, err)

		assert.Equal(t, []domain.EventType{
			domain.EventPassStart,
			domain.EventActionStart,
			domain.EventStepEnd,
			domain.EventActionEnd,
			domain.EventPassEnd,
		}, events)
		assert.Len(t, reports, 1)
	})
}

func TestEngine_WatchFirstPassConfigError(t *testing.T) {
	eng, _ := newEngine(t, t.TempDir(), `{"pipelines": ["missing"]}`)

	var calls int
	err := eng.Watch(context.Background(), func(r *domain.Report, err error) {
		calls++
		assert.Nil(t, r)
		assert.Error(t, err)
	})
	assert.True(t, domain.IsConfigError(err))
	assert.Equal(t, 1, calls)
}

func TestEngine_WatchRerunsOnChange(t *testing.T) {
	dir := t.TempDir()
	eng, bash := newEngine(t, dir, scenarioA, cider.WithDebounce(50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	passes := make(chan *domain.Report, 8)
	done := make(chan error, 1)
	go func() {
		done <- eng.Watch(ctx, func(r *domain.Report, err error) {
			assert.NoError(t, err)
			passes <- r
		})
	}()

	select {
	case <-passes:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass did not run")
	}

	// Give the watcher time to register the tree.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "main.c"), []byte(time.Now().String()), 0o644)
		select {
		case <-passes:
			return true
		case <-time.After(300 * time.Millisecond):
			return false
		}
	}, 10*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.GreaterOrEqual(t, len(bash.Sessions()), 2)
}

func TestEngine_WatchSeesChangesDuringFirstPass(t *testing.T) {
	dir := t.TempDir()
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	bash := memory.NewBackend(domain.BackendBash, memory.WithHandler(func(spec ports.SessionSpec, script string) (ports.StepOutput, error) {
		once.Do(func() {
			close(started)
			<-release
		})
		return memory.Echo(spec, script)
	}))
	eng, err := cider.New(writeConfig(t, dir, scenarioA),
		cider.WithBaseDir(dir),
		cider.WithBackend(bash),
		cider.WithDebounce(50*time.Millisecond),
		cider.WithoutOutputFile(),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	passes := make(chan *domain.Report, 8)
	done := make(chan error, 1)
	go func() {
		done <- eng.Watch(ctx, func(r *domain.Report, err error) {
			assert.NoError(t, err)
			passes <- r
		})
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first pass did not start")
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte("int main;"), 0o644))
	time.Sleep(100 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case <-passes:
		case <-time.After(5 * time.Second):
			t.Fatalf("pass %d did not run", i+1)
		}
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.GreaterOrEqual(t, len(bash.Sessions()), 2)
}
