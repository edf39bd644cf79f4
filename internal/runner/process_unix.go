//go:build unix

package runner

import (
	"os"
	"os/exec"
	"syscall"
)

// configureProcess runs the program in its own process group and makes
// cancellation terminate the whole group.
func configureProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM); err != nil {
			return cmd.Process.Signal(os.Kill)
		}
		return nil
	}
}

// exitCode returns the exit status, or the negated signal number for a
// program terminated by a signal.
func exitCode(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}
