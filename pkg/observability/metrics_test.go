package observability

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m := NewMetrics()
	h := m.Hooks()
	ctx := context.Background()

	h.OnStepEnd(ctx, &domain.StepEvent{Step: domain.StepResult{Name: "a"}})
	h.OnStepEnd(ctx, &domain.StepEvent{Step: domain.StepResult{Name: "b", ExitCode: 2}})
	h.OnActionEnd(ctx, &domain.ActionEvent{
		Backend: domain.BackendBash,
		Result:  &domain.RunResult{Status: domain.StatusFailed, Duration: time.Second},
	})
	h.OnPassEnd(ctx, &domain.PassEvent{Report: &domain.Report{
		Actions: []domain.RunResult{{Status: domain.StatusFailed}},
	}})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.steps.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.actions.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.passes.WithLabelValues("failed")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.actionDuration))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Hooks().OnPassEnd(context.Background(), &domain.PassEvent{Report: &domain.Report{}})
	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body bytes.Buffer
	_, err = body.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, body.String(), `cider_passes_total{status="success"} 1`)
}

func TestLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	h := LoggingHooks(logging.NewWriter(&buf, slog.LevelDebug))

	h.OnActionStart(context.Background(), &domain.ActionEvent{
		EventBase: domain.EventBase{RunID: "r1"}, ActionID: "A", PipelineID: "P", Backend: domain.BackendDocker,
	})
	assert.Contains(t, buf.String(), "action start")
	assert.Contains(t, buf.String(), "run_id=r1 pipeline=P action=A backend=docker")
}
