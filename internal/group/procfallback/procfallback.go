//go:build !windows

// Package procfallback implements internal/group.Group without any
// OS-level containment primitive, for environments where neither cgroups
// nor Job Objects are available (e.g. a container without cgroup
// delegation). It tracks membership with a PID set, samples counters via
// gopsutil on a best-effort basis, and never installs an in-kernel limit —
// SetOSLimit always reports false so the Limit Checker enforces every cap
// in user space. This is the same graceful-degradation posture the engine
// takes with the network counter: an unavailable capability never fails
// the monitor, it just doesn't fire.
package procfallback

import (
	"sync"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"

	"github.com/sandrun/sandrun/internal/model"
)

// Group tracks a set of PIDs and aggregates their counters via gopsutil.
type Group struct {
	mu      sync.Mutex
	pids    map[int]struct{}
	created uint64
	closed  bool
}

// New creates an empty fallback Group.
func New() (*Group, error) {
	return &Group{pids: make(map[int]struct{})}, nil
}

// SetOSLimit never succeeds: this backend has no in-kernel enforcement.
func (g *Group) SetOSLimit(model.OSLimitKind, uint64) (bool, error) {
	return false, nil
}

// AddProcess records pid as a group member.
func (g *Group) AddProcess(pid int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.pids[pid]; !exists {
		g.created++
	}
	g.pids[pid] = struct{}{}
	return nil
}

func (g *Group) alive() []int32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]int32, 0, len(g.pids))
	for pid := range g.pids {
		if _, err := process.NewProcess(int32(pid)); err == nil {
			out = append(out, int32(pid))
		} else {
			delete(g.pids, pid)
		}
	}
	return out
}

func (g *Group) Memory() (*model.MemoryStat, bool) {
	pids := g.alive()
	if len(pids) == 0 {
		return &model.MemoryStat{}, true
	}
	var sum, peak uint64
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		if mi, err := p.MemoryInfo(); err == nil {
			sum += mi.RSS
			if mi.RSS > peak {
				peak = mi.RSS
			}
		}
	}
	return &model.MemoryStat{Current: sum, Peak: sum}, true
}

func (g *Group) IO() (*model.IOStat, bool) {
	pids := g.alive()
	var total uint64
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		if io, err := p.IOCounters(); err == nil {
			total += io.WriteBytes
		}
	}
	return &model.IOStat{TotalBytesWritten: total}, true
}

func (g *Group) Timers() (*model.TimerStat, bool) {
	pids := g.alive()
	var user, sys float64
	for _, pid := range pids {
		p, err := process.NewProcess(pid)
		if err != nil {
			continue
		}
		if t, err := p.Times(); err == nil {
			user += t.User
			sys += t.System
		}
	}
	return &model.TimerStat{
		TotalUserTime:   time.Duration(user * float64(time.Second)),
		TotalKernelTime: time.Duration(sys * float64(time.Second)),
	}, true
}

func (g *Group) PIDCounters() (*model.PIDStat, bool) {
	pids := g.alive()
	g.mu.Lock()
	created := g.created
	g.mu.Unlock()
	return &model.PIDStat{TotalProcesses: created, ActiveProcesses: uint64(len(pids))}, true
}

// Network cannot be sampled without a per-group containment primitive.
func (g *Group) Network() (*model.NetworkStat, bool) {
	return nil, false
}

// Terminate sends SIGKILL to every tracked pid. Idempotent.
func (g *Group) Terminate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	for pid := range g.pids {
		_ = syscall.Kill(pid, syscall.SIGKILL)
	}
	g.closed = true
	return nil
}
