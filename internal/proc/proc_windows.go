//go:build windows

package proc

import (
	"os/exec"

	"golang.org/x/sys/windows"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/sperr"
)

// configureSysProcAttr requests a new process group so CTRL events the
// supervisor receives don't propagate to the child.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &windows.SysProcAttr{CreationFlags: windows.CREATE_NEW_PROCESS_GROUP}
}

func exitStatusFromWaitError(cmd *exec.Cmd, err error) model.ExitStatus {
	if cmd.ProcessState == nil {
		code := -1
		return model.ExitStatus{Code: &code}
	}
	code := cmd.ProcessState.ExitCode()
	return model.ExitStatus{Code: &code}
}

// Suspend has no portable os/exec primitive on Windows since Go does not
// expose CREATE_SUSPENDED's thread handle; NtSuspendProcess operates on the
// whole process by PID instead, which is sufficient for this engine's
// purposes (it never needs to resume mid-instruction-stream before any
// code has run).
func (p *Process) Suspend() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return nil
	}
	h, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(p.pid))
	if err != nil {
		return sperr.OS("proc.suspend", err)
	}
	defer windows.CloseHandle(h)
	if err := windows.NtSuspendProcess(h); err != nil {
		return sperr.OS("proc.suspend", err)
	}
	p.suspended = true
	return nil
}

// Resume undoes Suspend via NtResumeProcess.
func (p *Process) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != nil {
		return nil
	}
	h, err := windows.OpenProcess(windows.PROCESS_SUSPEND_RESUME, false, uint32(p.pid))
	if err != nil {
		return sperr.OS("proc.resume", err)
	}
	defer windows.CloseHandle(h)
	if err := windows.NtResumeProcess(h); err != nil {
		return sperr.OS("proc.resume", err)
	}
	p.suspended = false
	return nil
}
