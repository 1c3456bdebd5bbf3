//go:build !windows

package process

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
)

func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// signalTerm sends SIGTERM to the child's whole process group.
// Negative PID targets the group created via Setpgid.
func signalTerm(p *os.Process) error {
	return signalGroup(p.Pid, syscall.SIGTERM)
}

func signalKill(p *os.Process) error {
	return signalGroup(p.Pid, syscall.SIGKILL)
}

func signalGroup(pid int, sig syscall.Signal) error {
	if err := syscall.Kill(-pid, sig); err != nil && !errors.Is(err, syscall.ESRCH) {
		return err
	}
	return nil
}
