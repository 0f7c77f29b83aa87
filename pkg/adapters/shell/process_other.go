//go:build !unix

package shell

import (
	"os"
	"os/exec"
	"runtime"
	"strconv"
)

func setProcessGroup(*exec.Cmd) {}

// killProcessGroup kills the interpreter and, on Windows, its whole process tree.
func killProcessGroup(p *os.Process) {
	if runtime.GOOS == "windows" {
		if err := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid)).Run(); err == nil {
			return
		}
	}
	_ = p.Kill()
}
