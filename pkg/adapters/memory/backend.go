// Package memory provides an in-process Backend that records every session.
// It is meant for tests and dry runs: no process is ever started.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
)

// Handler produces the output of one step.
type Handler func(spec ports.SessionSpec, script string) (ports.StepOutput, error)

// Backend implements ports.Backend in memory.
// Safe for concurrent use.
type Backend struct {
	kind     domain.BackendKind
	handler  Handler
	startErr error

	mu       sync.Mutex
	sessions []*Session
}

// Option configures a Backend.
type Option func(*Backend)

// WithHandler replaces the default step interpreter.
func WithHandler(h Handler) Option {
	return func(b *Backend) {
		b.handler = h
	}
}

// WithStartError makes every StartSession fail with err.
func WithStartError(err error) Option {
	return func(b *Backend) {
		b.startErr = err
	}
}

// NewBackend creates a recording backend reporting kind.
func NewBackend(kind domain.BackendKind, opts ...Option) *Backend {
	b := &Backend{kind: kind, handler: Echo}
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
func (b *Backend) StartSession(_ context.Context, spec ports.SessionSpec) (ports.Session, error) {
	if b.startErr != nil {
		return nil, &domain.BackendError{Backend: b.kind, Op: "start", Err: b.startErr}
	}
	s := &Session{backend: b, spec: spec}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions = append(b.sessions, s)
	return s, nil
}

// Sessions returns every session started so far, in start order.
func (b *Backend) Sessions() []*Session {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Session(nil), b.sessions...)
}

// Session is a recorded ports.Session.
type Session struct {
	backend *Backend
	spec    ports.SessionSpec

	mu     sync.Mutex
	steps  []string
	ends   int
	closed bool
}

// Spec returns the spec the session was started with.
func (s *Session) Spec() ports.SessionSpec {
	return s.spec
}

// RunStep implements ports.Session. A script starting with "exit" ends the session
// after producing its output, like a real interpreter would.
func (s *Session) RunStep(_ context.Context, script string) (ports.StepOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.StepOutput{ExitCode: -1}, &domain.BackendError{Backend: s.backend.kind, Op: "run", Err: domain.ErrSessionClosed}
	}
	s.steps = append(s.steps, script)
	if strings.HasPrefix(strings.TrimSpace(script), "exit") {
		s.closed = true
	}
	return s.backend.handler(s.spec, script)
}

// EndSession implements ports.Session.
func (s *Session) EndSession(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.ends++
	return nil
}

// Steps returns the scripts received, in order.
func (s *Session) Steps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.steps...)
}

// Ends returns how many times EndSession was called.
func (s *Session) Ends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ends
}

// Echo is the default Handler. It understands two forms:
// `echo <text>` prints text with a newline and `exit <n>` returns n.
// Anything else succeeds silently.
func Echo(_ ports.SessionSpec, script string) (ports.StepOutput, error) {
	script = strings.TrimSpace(script)
	switch {
	case strings.HasPrefix(script, "echo "):
		return ports.StepOutput{Stdout: strings.TrimPrefix(script, "echo ") + "\n"}, nil
	case script == "exit":
		return ports.StepOutput{}, nil
	case strings.HasPrefix(script, "exit "):
		code, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(script, "exit ")))
		if err != nil {
			code = 2
		}
		return ports.StepOutput{ExitCode: code}, nil
	}
	return ports.StepOutput{}, nil
}
