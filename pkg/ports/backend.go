package ports

import (
	"context"

	"github.com/aretw0/cider/pkg/domain"
)

// SessionSpec describes the environment an Action's session is created in.
type SessionSpec struct {
	// ActionID is the qualified id of the Action owning the session.
	ActionID string
	// WorkingDir is the resolved source directory. Steps start there.
	WorkingDir string
	// Image is the container image. Ignored by native backends.
	Image string
	// Env holds extra variables exported to every step.
	Env map[string]string
}

// StepOutput is what one step produced.
type StepOutput struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Backend creates sessions for one execution strategy.
type Backend interface {
	Kind() domain.BackendKind
	// StartSession acquires the interpreter (and container, if any) for one Action.
	// Failures are reported as *domain.BackendError.
	StartSession(ctx context.Context, spec SessionSpec) (Session, error)
}

// Session runs the steps of a single Action.
//
// Steps are executed one at a time in the same interpreter, so shell state such as
// the working directory or exported variables carries over between them.
type Session interface {
	// RunStep executes script and waits for it to finish. A nonzero exit code is not an
	// error; the returned error is reserved for transport failures and closed sessions
	// (domain.ErrSessionClosed wrapped in a *domain.BackendError).
	RunStep(ctx context.Context, script string) (StepOutput, error)
	// EndSession releases every resource held by the session. It is idempotent.
	EndSession(ctx context.Context) error
}
