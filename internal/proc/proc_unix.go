//go:build !windows

package proc

import (
	"os/exec"
	"syscall"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/sperr"
)

// configureSysProcAttr puts the child in its own process group so signals
// sent to it (or the group it escapes into) don't also hit the supervisor.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func exitStatusFromWaitError(cmd *exec.Cmd, err error) model.ExitStatus {
	ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus)
	if !ok {
		code := -1
		return model.ExitStatus{Code: &code}
	}
	if ws.Signaled() {
		sig := ws.Signal().String()
		return model.ExitStatus{Signal: &sig}
	}
	code := ws.ExitStatus()
	return model.ExitStatus{Code: &code}
}

// Suspend issues SIGSTOP to the process.
func (p *Process) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return nil
	}
	if err := syscall.Kill(p.pid, syscall.SIGSTOP); err != nil {
		return sperr.OS("proc.suspend", err)
	}
	p.suspended = true
	return nil
}

// Resume issues SIGCONT to the process.
func (p *Process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return nil
	}
	if err := syscall.Kill(p.pid, syscall.SIGCONT); err != nil {
		return sperr.OS("proc.resume", err)
	}
	p.suspended = false
	return nil
}
