package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
)

// Backend starts native interpreter sessions.
type Backend struct {
	kind     domain.BackendKind
	program  string
	args     []string
	logger   *slog.Logger
	platform string
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for session diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// WithProgram overrides the interpreter binary and its arguments.
func WithProgram(program string, args ...string) Option {
	return func(b *Backend) {
		b.program = program
		b.args = args
	}
}

// withPlatform overrides the detected GOOS.
func withPlatform(goos string) Option {
	return func(b *Backend) {
		b.platform = goos
	}
}

// NewBash creates the backend for `backend: bash`.
func NewBash(opts ...Option) *Backend {
	return newBackend(domain.BackendBash, "bash", []string{"--noprofile", "--norc"}, opts)
}

// NewBatch creates the backend for `backend: batch`. It only starts sessions on Windows.
func NewBatch(opts ...Option) *Backend {
	return newBackend(domain.BackendBatch, "cmd.exe", []string{"/Q", "/D"}, opts)
}

func newBackend(kind domain.BackendKind, program string, args []string, opts []Option) *Backend {
	b := &Backend{
		kind:     kind,
		program:  program,
		args:     args,
		logger:   logging.NewNop(),
		platform: runtime.GOOS,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Kind implements ports.Backend.
func (b *Backend) Kind() domain.BackendKind {
	return b.kind
}

// StartSession implements ports.Backend.
func (b *Backend) StartSession(ctx context.Context, spec ports.SessionSpec) (ports.Session, error) {
	if b.kind == domain.BackendBatch && b.platform != "windows" {
		return nil, &domain.BackendError{
			Backend: b.kind,
			Op:      "start",
			Err:     fmt.Errorf("%w: batch requires windows, host is %s", domain.ErrUnsupportedPlatform, b.platform),
		}
	}

	cmd := exec.Command(b.program, b.args...)
	cmd.Dir = spec.WorkingDir
	cmd.Env = append(os.Environ(), envList(spec.Env)...)

	b.logger.Debug("starting session", "backend", b.kind, "action", spec.ActionID, "dir", spec.WorkingDir)

	if b.kind == domain.BackendBatch {
		s, err := startBatch(ctx, cmd, b.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	s, err := StartPosix(ctx, b.kind, cmd, b.logger)
	if err != nil {
		return nil, err
	}
	return s, nil
}
