package shell

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
	"golang.org/x/sync/errgroup"
)

// endGrace bounds how long EndSession waits for the interpreter to exit on its own.
const endGrace = 5 * time.Second

// PosixSession runs steps in one long-lived POSIX shell fed through stdin.
//
// Each step is delivered as a quoted heredoc and evaluated in the shell itself, so
// `cd` and `export` survive to the next step. After the step the shell prints an end
// marker on both streams; stdout's carries the exit status.
type PosixSession struct {
	kind   domain.BackendKind
	proc   *process
	stderr *bufio.Reader
	logger *slog.Logger

	mu     sync.Mutex
	closed bool

	endOnce sync.Once
	endErr  error
}

// StartPosix starts cmd, which must run a POSIX shell reading commands from stdin,
// and waits until it answers. cmd must not have Stdin, Stdout or Stderr set.
func StartPosix(ctx context.Context, kind domain.BackendKind, cmd *exec.Cmd, logger *slog.Logger) (*PosixSession, error) {
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &domain.BackendError{Backend: kind, Op: "start", Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	proc, err := startProcess(cmd)
	if err != nil {
		return nil, &domain.BackendError{Backend: kind, Op: "start", Err: err}
	}

	s := &PosixSession{kind: kind, proc: proc, stderr: bufio.NewReader(stderr), logger: logger}
	if err := s.handshake(ctx); err != nil {
		return nil, &domain.BackendError{Backend: kind, Op: "start", Err: err}
	}
	return s, nil
}

func (s *PosixSession) handshake(ctx context.Context) error {
	token := newToken()
	ready := "__CIDER_READY_" + token + "__"
	if err := s.proc.write(fmt.Sprintf("printf '%%s\\n' %s\n", quoteShellLiteral(ready))); err != nil {
		// Usually the interpreter is already gone; the diagnostics below say why.
		s.proc.kill()
	}

	done := make(chan error, 1)
	go func() {
		for {
			line, err := s.proc.stdout.ReadString('\n')
			if strings.TrimSpace(line) == ready {
				done <- nil
				return
			}
			if err != nil {
				done <- err
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.proc.kill()
		<-done
		s.proc.wait()
		return ctx.Err()
	case err := <-done:
		if err == nil {
			return nil
		}
		// The interpreter died before answering; its stderr explains why.
		msg, _ := io.ReadAll(s.stderr)
		code := s.proc.wait()
		if text := strings.TrimSpace(string(msg)); text != "" {
			return fmt.Errorf("interpreter exited with code %d: %s", code, text)
		}
		return fmt.Errorf("interpreter exited with code %d", code)
	}
}

// RunStep implements ports.Session.
func (s *PosixSession) RunStep(ctx context.Context, script string) (ports.StepOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.StepOutput{ExitCode: -1}, s.fail(domain.ErrSessionClosed)
	}

	token := newToken()
	if err := s.proc.write(frameStep(script, token)); err != nil {
		s.abort()
		return ports.StepOutput{ExitCode: -1}, s.fail(fmt.Errorf("write step: %w", err))
	}

	type outcome struct {
		out    ports.StepOutput
		exited bool
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		out, exited, err := s.collect(token)
		done <- outcome{out, exited, err}
	}()

	var o outcome
	select {
	case <-ctx.Done():
		s.abort()
		o = <-done
		o.out.ExitCode = -1
		return o.out, s.fail(ctx.Err())
	case o = <-done:
	}

	switch {
	case o.err != nil:
		s.abort()
		o.out.ExitCode = -1
		return o.out, s.fail(o.err)
	case o.exited:
		s.closed = true
		o.out.ExitCode = s.proc.wait()
		s.logger.Debug("interpreter exited during step", "backend", s.kind, "exit_code", o.out.ExitCode)
	}
	return o.out, nil
}

// collect drains both streams up to the step's end markers.
// exited reports that the interpreter terminated before printing them.
func (s *PosixSession) collect(token string) (out ports.StepOutput, exited bool, err error) {
	marker := endMarker(token)

	var stdout, stderr bytes.Buffer
	var status string
	g := new(errgroup.Group)
	g.Go(func() error {
		var err error
		status, err = readUntil(s.proc.stdout, marker, &stdout)
		return err
	})
	g.Go(func() error {
		_, err := readUntil(s.stderr, marker, &stderr)
		return err
	})
	err = g.Wait()

	out = ports.StepOutput{Stdout: stdout.String(), Stderr: stderr.String()}
	switch {
	case err == nil:
		code, convErr := strconv.Atoi(strings.TrimPrefix(status, ":"))
		if convErr != nil {
			return out, false, fmt.Errorf("malformed status %q: %w", status, convErr)
		}
		out.ExitCode = code
		return out, false, nil
	case errors.Is(err, io.EOF):
		return out, true, nil
	default:
		return out, false, fmt.Errorf("read step output: %w", err)
	}
}

// EndSession implements ports.Session.
func (s *PosixSession) EndSession(ctx context.Context) error {
	s.endOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		_ = s.proc.stdin.Close()
		// Unread output would keep a blocked writer alive.
		drain(s.proc.stdout)
		drain(s.stderr)
		exited := make(chan struct{})
		go func() {
			s.proc.wait()
			close(exited)
		}()

		timer := time.NewTimer(endGrace)
		defer timer.Stop()
		select {
		case <-exited:
		case <-timer.C:
			s.proc.kill()
			<-exited
		case <-ctx.Done():
			s.proc.kill()
			<-exited
			s.endErr = &domain.BackendError{Backend: s.kind, Op: "end", Err: ctx.Err()}
		}
		// Background jobs of the steps end with the session.
		s.proc.kill()
		if s.proc.waitErr != nil && s.endErr == nil {
			s.endErr = &domain.BackendError{Backend: s.kind, Op: "end", Err: s.proc.waitErr}
		}
	})
	return s.endErr
}

// abort kills the interpreter after a transport failure. Callers hold s.mu.
func (s *PosixSession) abort() {
	s.closed = true
	s.proc.kill()
}

func (s *PosixSession) fail(err error) error {
	return &domain.BackendError{Backend: s.kind, Op: "run", Err: err}
}

func endMarker(token string) string {
	return "__CIDER_END_" + token + "__"
}

// frameStep wraps script so that it runs in the current shell with stdin detached,
// followed by the end markers.
func frameStep(script, token string) string {
	eof := "__CIDER_EOF_" + token + "__"
	marker := quoteShellLiteral(endMarker(token))

	var b strings.Builder
	b.WriteString("__cider_script=$(cat <<'" + eof + "'\n")
	b.WriteString(script)
	if !strings.HasSuffix(script, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(eof + "\n)\n")
	b.WriteString("eval \"$__cider_script\" </dev/null\n")
	b.WriteString("__cider_status=$?\n")
	b.WriteString("printf '\\n%s\\n' " + marker + " >&2\n")
	b.WriteString("printf '\\n%s:%d\\n' " + marker + " \"$__cider_status\"\n")
	return b.String()
}

// readUntil copies lines from r into buf until a line starting with marker.
// It returns the remainder of the marker line. The newline printed ahead of the
// marker is not part of the step output and is dropped.
func readUntil(r *bufio.Reader, marker string, buf *bytes.Buffer) (string, error) {
	for {
		line, err := r.ReadString('\n')
		if strings.HasPrefix(line, marker) {
			if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
				buf.Truncate(n - 1)
			}
			return strings.TrimRight(strings.TrimPrefix(line, marker), "\r\n"), nil
		}
		buf.WriteString(line)
		if err != nil {
			return "", err
		}
	}
}
