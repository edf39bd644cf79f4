//go:build !unix

package runner

import (
	"os"
	"os/exec"
)

func configureProcess(*exec.Cmd) {}

func exitCode(ps *os.ProcessState) int {
	return ps.ExitCode()
}
