package tests

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// EndSessionTimeout bounds how long a session may take to end in the contract.
var EndSessionTimeout = 15 * time.Second

// PosixSessionContractTest verifies that a backend whose sessions interpret POSIX shell
// scripts complies with ports.Session. spec.WorkingDir must exist.
func PosixSessionContractTest(t *testing.T, backend ports.Backend, spec ports.SessionSpec) {
	t.Helper()
	ctx := context.Background()

	start := func(t *testing.T) ports.Session {
		t.Helper()
		s, err := backend.StartSession(ctx, spec)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.EndSession(ctx) })
		return s
	}

	t.Run("Captures both streams", func(t *testing.T) {
		s := start(t)
		out, err := s.RunStep(ctx, "echo out; echo err >&2")
		require.NoError(t, err)
		assert.Equal(t, 0, out.ExitCode)
		assert.Equal(t, "out\n", out.Stdout)
		assert.Equal(t, "err\n", out.Stderr)
	})

	t.Run("Output without trailing newline", func(t *testing.T) {
		s := start(t)
		out, err := s.RunStep(ctx, "printf hi")
		require.NoError(t, err)
		assert.Equal(t, "hi", out.Stdout)
		assert.Empty(t, out.Stderr)
	})

	t.Run("Nonzero status is not an error", func(t *testing.T) {
		s := start(t)
		out, err := s.RunStep(ctx, "false")
		require.NoError(t, err)
		assert.Equal(t, 1, out.ExitCode)

		out, err = s.RunStep(ctx, "echo still-alive")
		require.NoError(t, err)
		assert.Equal(t, "still-alive\n", out.Stdout)
	})

	t.Run("State persists between steps", func(t *testing.T) {
		s := start(t)
		_, err := s.RunStep(ctx, "export CIDER_PROBE=kept\nmkdir -p probe-dir && cd probe-dir")
		require.NoError(t, err)

		out, err := s.RunStep(ctx, `echo "$CIDER_PROBE $(basename "$PWD")"; cd .. && rmdir probe-dir`)
		require.NoError(t, err)
		assert.Equal(t, "kept probe-dir\n", out.Stdout)
	})

	t.Run("Session env is exported", func(t *testing.T) {
		if len(spec.Env) == 0 {
			t.Skip("no session env configured")
		}
		s := start(t)
		for key, want := range spec.Env {
			out, err := s.RunStep(ctx, `printf '%s' "$`+key+`"`)
			require.NoError(t, err)
			assert.Equal(t, want, out.Stdout, key)
		}
	})

	t.Run("Exit ends the session", func(t *testing.T) {
		s := start(t)
		out, err := s.RunStep(ctx, "echo bye; exit 7")
		require.NoError(t, err)
		assert.Equal(t, 7, out.ExitCode)
		assert.Equal(t, "bye\n", out.Stdout)

		_, err = s.RunStep(ctx, "echo unreachable")
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
	})

	t.Run("Background child does not block EndSession", func(t *testing.T) {
		s, err := backend.StartSession(ctx, spec)
		require.NoError(t, err)

		out, err := s.RunStep(ctx, "sleep 120 &")
		require.NoError(t, err)
		assert.Equal(t, 0, out.ExitCode)

		ended := make(chan error, 1)
		go func() { ended <- s.EndSession(ctx) }()
		select {
		case err := <-ended:
			assert.NoError(t, err)
		case <-time.After(EndSessionTimeout):
			t.Fatalf("EndSession still blocked after %s", EndSessionTimeout)
		}
	})

	t.Run("EndSession is idempotent", func(t *testing.T) {
		s, err := backend.StartSession(ctx, spec)
		require.NoError(t, err)

		assert.NoError(t, s.EndSession(ctx))
		assert.NoError(t, s.EndSession(ctx))

		_, err = s.RunStep(ctx, "true")
		var backendErr *domain.BackendError
		require.ErrorAs(t, err, &backendErr)
		assert.ErrorIs(t, err, domain.ErrSessionClosed)
	})
}
