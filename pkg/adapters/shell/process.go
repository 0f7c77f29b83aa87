package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// waitDelay bounds how long Wait keeps the pipes open after the interpreter exited.
const waitDelay = time.Second

// process owns an interpreter started with piped stdin and stdout.
type process struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader

	waitOnce sync.Once
	exitCode int
	waitErr  error
}

func startProcess(cmd *exec.Cmd) (*process, error) {
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", cmd.Path, err)
	}
	return &process{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout)}, nil
}

func (p *process) write(s string) error {
	_, err := io.WriteString(p.stdin, s)
	return err
}

// wait reaps the interpreter and returns its exit code.
// It closes the stdout pipe, so readers must be done or draining.
func (p *process) wait() int {
	p.waitOnce.Do(func() {
		err := p.cmd.Wait()
		var exitErr *exec.ExitError
		switch {
		case err == nil:
			p.exitCode = 0
		case errors.As(err, &exitErr):
			p.exitCode = exitErr.ExitCode()
		default:
			p.exitCode = -1
			p.waitErr = err
		}
	})
	return p.exitCode
}

// kill terminates the interpreter and every process a step left behind.
func (p *process) kill() {
	if p.cmd.Process != nil {
		killProcessGroup(p.cmd.Process)
	}
}

// drain discards whatever is still buffered in r until its pipe is closed.
// Reaping the interpreter closes the pipes, so it never outlives the session
// even if a background child still holds the write end.
func drain(r io.Reader) {
	go func() { _, _ = io.Copy(io.Discard, r) }()
}

// newToken returns a marker suffix that cannot collide with step output in practice.
func newToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func envList(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+env[k])
	}
	return out
}

func quoteShellLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
