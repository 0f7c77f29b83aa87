package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBackend(t *testing.T) {
	cases := map[string]BackendKind{
		"bash":   BackendBash,
		"BASH":   BackendBash,
		"batch":  BackendBatch,
		"bat":    BackendBatch,
		" Bat ":  BackendBatch,
		"docker": BackendDocker,
		"Docker": BackendDocker,
	}
	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			got, err := ParseBackend(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	t.Run("Unknown", func(t *testing.T) {
		_, err := ParseBackend("podman")
		require.Error(t, err)
		assert.Contains(t, err.Error(), `"podman"`)
	})

	assert.True(t, BackendDocker.IsContainer())
	assert.False(t, BackendBash.IsContainer())
}

func TestReportStatus(t *testing.T) {
	ok := RunResult{ActionID: "a", Status: StatusSuccess}
	bad := RunResult{ActionID: "b", PipelineID: "P", Status: StatusFailed}

	r := &Report{
		Pipelines: []PipelineResult{{PipelineID: "P", Status: StatusFailed, Actions: []RunResult{bad}}},
		Actions:   []RunResult{ok},
	}
	assert.Equal(t, StatusFailed, r.Status())
	assert.Equal(t, []RunResult{bad, ok}, r.Results())

	succeeded, failed := r.Counts()
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, failed)
	assert.Equal(t, "P/b", bad.QualifiedID())
	assert.Equal(t, "a", ok.QualifiedID())

	assert.Equal(t, StatusSuccess, (&Report{}).Status())
}

func TestErrors(t *testing.T) {
	t.Run("ConfigError formatting", func(t *testing.T) {
		err := &ConfigError{Path: "pipelines[0]", Reason: "unknown pipeline \"P1\""}
		assert.Equal(t, `config pipelines[0]: unknown pipeline "P1"`, err.Error())

		wrapped := fmt.Errorf("load: %w", err)
		assert.True(t, IsConfigError(wrapped))
		assert.False(t, IsConfigError(errors.New("other")))
	})

	t.Run("Join", func(t *testing.T) {
		assert.NoError(t, Join(nil))

		single := &ConfigError{Reason: "one"}
		assert.Same(t, single, Join([]error{single}))

		err := Join([]error{single, &ConfigError{Reason: "two"}})
		var aggr *AggregateError
		require.ErrorAs(t, err, &aggr)
		assert.Contains(t, err.Error(), "2 configuration errors")
		assert.True(t, IsConfigError(err))
	})

	t.Run("BackendError unwraps", func(t *testing.T) {
		err := &BackendError{Backend: BackendBatch, Op: "start", Err: ErrUnsupportedPlatform}
		assert.ErrorIs(t, err, ErrUnsupportedPlatform)
		assert.Equal(t, "batch backend start: unsupported platform", err.Error())
	})
}

func TestLifecycleHooksMerge(t *testing.T) {
	var calls []string
	a := LifecycleHooks{OnActionStart: func(context.Context, *ActionEvent) { calls = append(calls, "a") }}
	b := LifecycleHooks{
		OnActionStart: func(context.Context, *ActionEvent) { calls = append(calls, "b") },
		OnStepEnd:     func(context.Context, *StepEvent) { calls = append(calls, "step") },
	}

	merged := a.Merge(b)
	merged.OnActionStart(context.Background(), &ActionEvent{})
	merged.OnStepEnd(context.Background(), &StepEvent{})
	assert.Equal(t, []string{"a", "b", "step"}, calls)
	assert.Nil(t, merged.OnPassEnd)
}
