//go:build windows

package process

import (
	"os"
	"os/exec"
)

func setProcAttr(*exec.Cmd) {}

// Windows has no SIGTERM for console-less children; both steps kill.
func signalTerm(p *os.Process) error {
	return p.Kill()
}

func signalKill(p *os.Process) error {
	return p.Kill()
}
