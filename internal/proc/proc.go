// Package proc implements the Process Handle: a launched child, spawned
// into a Process Group, with non-blocking exit-status query, suspend and
// resume.
package proc

import (
	"os/exec"
	"sync"

	"github.com/sandrun/sandrun/internal/group"
	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/pipe"
	"github.com/sandrun/sandrun/internal/sperr"
)

// Info carries the spawn parameters for a child program.
type Info struct {
	Path    string
	Args    []string
	WorkDir string // empty means inherit the supervisor's working directory
	Env     []string
}

// Stdio is the triple of handles the child inherits, and no others.
type Stdio struct {
	Stdin  pipe.ReadPipe
	Stdout pipe.WritePipe
	Stderr pipe.WritePipe
}

// Process is an exclusively-owned handle to a spawned child.
type Process struct {
	mu       sync.Mutex
	cmd      *exec.Cmd
	pid      int
	group    group.Group
	done     chan struct{}
	status   *model.ExitStatus
	suspended bool
}

// SpawnInGroup launches info as a child of g, wiring stdio as the child's
// exact stdin/stdout/stderr. On platforms where Group membership isn't
// implied by the OS process-creation call itself, the child is registered
// with g.AddProcess immediately after Start, minimizing (but on some
// platforms not eliminating) the race before grandchildren can escape
// accounting.
func SpawnInGroup(info Info, stdio Stdio, g group.Group) (*Process, error) {
	cmd := exec.Command(info.Path, info.Args...)
	if info.WorkDir != "" {
		cmd.Dir = info.WorkDir
	}
	cmd.Env = info.Env
	cmd.Stdin = stdio.Stdin.File()
	cmd.Stdout = stdio.Stdout.File()
	cmd.Stderr = stdio.Stderr.File()
	configureSysProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		return nil, sperr.OS("proc.spawn", err)
	}

	// The child holds its own copies of the stdio handles now; release the
	// supervisor's so a reader of a pipe sees EOF once the child exits.
	_ = stdio.Stdin.Close()
	_ = stdio.Stdout.Close()
	_ = stdio.Stderr.Close()

	p := &Process{
		cmd:   cmd,
		pid:   cmd.Process.Pid,
		group: g,
		done:  make(chan struct{}),
	}

	if err := g.AddProcess(p.pid); err != nil {
		_ = cmd.Process.Kill()
		return nil, sperr.OS("proc.spawn", err)
	}

	go p.wait()

	return p, nil
}

func (p *Process) wait() {
	err := p.cmd.Wait()
	status := exitStatusFromWaitError(p.cmd, err)
	p.mu.Lock()
	p.status = &status
	p.mu.Unlock()
	close(p.done)
}

// ExitStatus returns the process's exit status if it has already exited,
// without blocking.
func (p *Process) ExitStatus() (*model.ExitStatus, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status == nil {
		return nil, false
	}
	return p.status, true
}

// PID returns the OS process id.
func (p *Process) PID() int { return p.pid }

// Close terminates the process if it is still alive. Idempotent.
func (p *Process) Close() error {
	p.mu.Lock()
	alive := p.status == nil
	p.mu.Unlock()
	if !alive {
		return nil
	}
	if err := p.cmd.Process.Kill(); err != nil {
		return sperr.OS("proc.close", err)
	}
	return nil
}
