// Package container runs Action steps inside a throwaway container.
//
// One container is created per Action with the source directory bind-mounted at
// MountPoint. Steps are fed to a single `exec -i <name> sh` session, so in-container
// state survives between steps. The container is force-removed exactly once when the
// session ends, whatever happened before.
package container

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/cider/internal/logging"
	"github.com/aretw0/cider/pkg/adapters/shell"
	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"github.com/google/uuid"
)

const (
	// MountPoint is where the source directory appears inside the container.
	MountPoint = "/cider/app"
	// DefaultRuntime is the container CLI used when none is configured.
	DefaultRuntime = "docker"

	removeTimeout = 30 * time.Second
)

// Backend creates container sessions through a docker-compatible CLI.
type Backend struct {
	runtime string
	logger  *slog.Logger
}

// Option configures a Backend.
type Option func(*Backend)

// WithRuntime sets the container CLI binary (docker, podman, nerdctl...).
func WithRuntime(bin string) Option {
	return func(b *Backend) {
		if bin != "" {
			b.runtime = bin
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) {
		b.logger = logger
	}
}

// New creates a container Backend.
func New(opts ...Option) *Backend {
	b := &Backend{runtime: DefaultRuntime, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Kind implements ports.Backend.
func (b *Backend) Kind() domain.BackendKind {
	return domain.BackendDocker
}

// StartSession implements ports.Backend.
func (b *Backend) StartSession(ctx context.Context, spec ports.SessionSpec) (ports.Session, error) {
	image := spec.Image
	if image == "" {
		b.logger.Warn("no image configured, using default", "action", spec.ActionID, "image", domain.DefaultImage)
		image = domain.DefaultImage
	}
	name := "cider-" + uuid.NewString()

	s := &session{backend: b, name: name}
	if _, err := b.cli(ctx, runArgs(name, image, spec)...); err != nil {
		// A failed `run` may still have created the container.
		s.remove()
		return nil, &domain.BackendError{Backend: domain.BackendDocker, Op: "start", Err: err}
	}
	b.logger.Debug("container started", "action", spec.ActionID, "container", name, "image", image)

	inner, err := shell.StartPosix(ctx, domain.BackendDocker, exec.Command(b.runtime, "exec", "-i", name, "sh"), b.logger)
	if err != nil {
		s.remove()
		return nil, err
	}
	s.PosixSession = inner
	return s, nil
}

func runArgs(name, image string, spec ports.SessionSpec) []string {
	args := []string{
		"run", "-d",
		"--name", name,
		"-v", spec.WorkingDir + ":" + MountPoint,
		"-w", MountPoint,
	}
	keys := make([]string, 0, len(spec.Env))
	for k := range spec.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "-e", k+"="+spec.Env[k])
	}
	return append(args, "--entrypoint", "tail", image, "-f", "/dev/null")
}

// cli runs one runtime command and returns its trimmed stdout.
func (b *Backend) cli(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, b.runtime, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%s %s: %w: %s", b.runtime, args[0], err, msg)
		}
		return "", fmt.Errorf("%s %s: %w", b.runtime, args[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// session couples the in-container shell with the container's lifetime.
type session struct {
	*shell.PosixSession
	backend *Backend
	name    string

	removeOnce sync.Once
	removeErr  error
}

// EndSession implements ports.Session.
func (s *session) EndSession(ctx context.Context) error {
	err := s.PosixSession.EndSession(ctx)
	return errors.Join(err, s.remove())
}

func (s *session) remove() error {
	s.removeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), removeTimeout)
		defer cancel()
		if _, err := s.backend.cli(ctx, "rm", "-f", s.name); err != nil {
			s.backend.logger.Warn("container removal failed", "container", s.name, "err", err)
			s.removeErr = &domain.BackendError{Backend: domain.BackendDocker, Op: "end", Err: err}
			return
		}
		s.backend.logger.Debug("container removed", "container", s.name)
	})
	return s.removeErr
}
