package shell

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/cider/pkg/domain"
	"github.com/aretw0/cider/pkg/ports"
)

// batchSession runs steps in one long-lived cmd.exe.
//
// cmd.exe echoes prompts on stdout, so step output is redirected to capture files
// and stdout only carries the end marker with %ERRORLEVEL%.
type batchSession struct {
	proc   *process
	dir    string
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
	seq    int

	endOnce sync.Once
	endErr  error
}

func startBatch(ctx context.Context, cmd *exec.Cmd, logger *slog.Logger) (*batchSession, error) {
	dir, err := os.MkdirTemp("", "cider-batch-*")
	if err != nil {
		return nil, &domain.BackendError{Backend: domain.BackendBatch, Op: "start", Err: err}
	}
	cmd.Stderr = io.Discard

	proc, err := startProcess(cmd)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &domain.BackendError{Backend: domain.BackendBatch, Op: "start", Err: err}
	}

	s := &batchSession{proc: proc, dir: dir, logger: logger}
	token := newToken()
	_, exited, err := s.exchange(ctx, "echo __CIDER_END_"+token+"__:0\r\n", token)
	if err == nil && exited {
		err = fmt.Errorf("interpreter exited with code %d", s.proc.wait())
	}
	if err != nil {
		s.proc.kill()
		s.proc.wait()
		_ = os.RemoveAll(dir)
		return nil, &domain.BackendError{Backend: domain.BackendBatch, Op: "start", Err: err}
	}
	return s, nil
}

// RunStep implements ports.Session.
func (s *batchSession) RunStep(ctx context.Context, script string) (ports.StepOutput, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ports.StepOutput{ExitCode: -1}, s.fail(domain.ErrSessionClosed)
	}

	s.seq++
	base := filepath.Join(s.dir, "step-"+strconv.Itoa(s.seq))
	stepFile, outFile, errFile := base+".cmd", base+".out", base+".err"
	defer func() {
		_ = os.Remove(stepFile)
		_ = os.Remove(outFile)
		_ = os.Remove(errFile)
	}()

	body := "@echo off\r\n" + strings.ReplaceAll(strings.ReplaceAll(script, "\r\n", "\n"), "\n", "\r\n") + "\r\n"
	if err := os.WriteFile(stepFile, []byte(body), 0o644); err != nil {
		return ports.StepOutput{ExitCode: -1}, s.fail(fmt.Errorf("write step file: %w", err))
	}

	token := newToken()
	line := fmt.Sprintf("call \"%s\" >\"%s\" 2>\"%s\" <NUL\r\necho __CIDER_END_%s__:%%ERRORLEVEL%%\r\n", stepFile, outFile, errFile, token)
	code, exited, err := s.exchange(ctx, line, token)

	out := ports.StepOutput{ExitCode: code}
	if data, readErr := os.ReadFile(outFile); readErr == nil {
		out.Stdout = string(data)
	}
	if data, readErr := os.ReadFile(errFile); readErr == nil {
		out.Stderr = string(data)
	}

	switch {
	case err != nil:
		s.closed = true
		s.proc.kill()
		out.ExitCode = -1
		return out, s.fail(err)
	case exited:
		s.closed = true
		out.ExitCode = s.proc.wait()
		s.logger.Debug("interpreter exited during step", "backend", domain.BackendBatch, "exit_code", out.ExitCode)
	}
	return out, nil
}

// exchange sends input and waits for the status marker of token on stdout.
func (s *batchSession) exchange(ctx context.Context, input, token string) (code int, exited bool, err error) {
	if err := s.proc.write(input); err != nil {
		return -1, false, fmt.Errorf("write step: %w", err)
	}
	pattern := regexp.MustCompile(`__CIDER_END_` + token + `__:(-?\d+)`)

	type result struct {
		code   int
		exited bool
	}
	done := make(chan result, 1)
	go func() {
		for {
			line, err := s.proc.stdout.ReadString('\n')
			if m := pattern.FindStringSubmatch(line); m != nil {
				n, _ := strconv.Atoi(m[1])
				done <- result{code: n}
				return
			}
			if err != nil {
				done <- result{code: -1, exited: true}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		s.proc.kill()
		<-done
		return -1, false, ctx.Err()
	case r := <-done:
		return r.code, r.exited, nil
	}
}

// EndSession implements ports.Session.
func (s *batchSession) EndSession(ctx context.Context) error {
	s.endOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true

		_ = s.proc.write("exit\r\n")
		_ = s.proc.stdin.Close()
		drain(s.proc.stdout)
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
			s.endErr = &domain.BackendError{Backend: domain.BackendBatch, Op: "end", Err: ctx.Err()}
		}
		s.proc.kill()
		if err := os.RemoveAll(s.dir); err != nil && s.endErr == nil {
			s.endErr = &domain.BackendError{Backend: domain.BackendBatch, Op: "end", Err: err}
		}
	})
	return s.endErr
}

func (s *batchSession) fail(err error) error {
	return &domain.BackendError{Backend: domain.BackendBatch, Op: "run", Err: err}
}
