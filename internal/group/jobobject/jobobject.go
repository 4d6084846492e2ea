//go:build windows

// Package jobobject implements internal/group.Group on Windows using a Job
// Object, grounded on the CreateJobObject/SetInformationJobObject/
// AssignProcessToJobObject sequence of the keeper process_windows reference
// implementation, rewritten against golang.org/x/sys/windows typed handles
// instead of raw syscall.NewLazyDLL calls.
package jobobject

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/sperr"
)

const (
	jobObjectExtendedLimitInformation = 9
	jobObjectBasicLimitInformation    = 2

	jobObjectLimitKillOnJobClose = 0x00002000
	jobObjectLimitJobMemory      = 0x00000200
	jobObjectLimitActiveProcess  = 0x00000008
)

type ioCounters struct {
	ReadOperationCount  uint64
	WriteOperationCount uint64
	OtherOperationCount uint64
	ReadTransferCount   uint64
	WriteTransferCount  uint64
	OtherTransferCount  uint64
}

type basicLimitInformation struct {
	PerProcessUserTimeLimit int64
	PerJobUserTimeLimit     int64
	LimitFlags              uint32
	MinimumWorkingSetSize   uintptr
	MaximumWorkingSetSize   uintptr
	ActiveProcessLimit      uint32
	Affinity                uintptr
	PriorityClass           uint32
	SchedulingClass         uint32
}

type extendedLimitInformation struct {
	BasicLimitInformation basicLimitInformation
	IoInfo                ioCounters
	ProcessMemoryLimit    uintptr
	JobMemoryLimit        uintptr
	PeakProcessMemoryUsed uintptr
	PeakJobMemoryUsed     uintptr
}

type basicAccountingInformation struct {
	TotalUserTime             int64
	TotalKernelTime           int64
	ThisPeriodTotalUserTime   int64
	ThisPeriodTotalKernelTime int64
	TotalPageFaultCount       uint32
	TotalProcesses            uint32
	ActiveProcesses           uint32
	TotalTerminatedProcesses  uint32
}

// Group is a Windows Job-Object-backed process group.
type Group struct {
	mu      sync.Mutex
	handle  windows.Handle
	limits  extendedLimitInformation
	pids    map[int]struct{}
	closed  bool
}

// New creates a new Job Object whose processes are all killed when the job
// handle is closed.
func New() (*Group, error) {
	h, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return nil, sperr.OS("jobobject.new", err)
	}
	g := &Group{handle: h, pids: make(map[int]struct{})}
	g.limits.BasicLimitInformation.LimitFlags = jobObjectLimitKillOnJobClose
	if err := g.setInfo(); err != nil {
		_ = windows.CloseHandle(h)
		return nil, sperr.OS("jobobject.new", err)
	}
	return g, nil
}

func (g *Group) setInfo() error {
	_, err := windows.SetInformationJobObject(
		g.handle,
		jobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&g.limits)),
		uint32(unsafe.Sizeof(g.limits)),
	)
	return err
}

// SetOSLimit installs a memory or active-process cap on the job object.
func (g *Group) SetOSLimit(limit model.OSLimitKind, value uint64) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	switch limit {
	case model.OSLimitMemory:
		g.limits.BasicLimitInformation.LimitFlags |= jobObjectLimitJobMemory
		g.limits.JobMemoryLimit = uintptr(value)
	case model.OSLimitActiveProcess:
		g.limits.BasicLimitInformation.LimitFlags |= jobObjectLimitActiveProcess
		g.limits.BasicLimitInformation.ActiveProcessLimit = uint32(value)
	default:
		return false, nil
	}
	if err := g.setInfo(); err != nil {
		return false, nil
	}
	return true, nil
}

// AddProcess assigns an already-running process to this job. The process
// must not already belong to another job.
func (g *Group) AddProcess(pid int) error {
	const accessSetQuota = 0x0100
	const accessTerminate = 0x0001
	h, err := windows.OpenProcess(accessSetQuota|accessTerminate, false, uint32(pid))
	if err != nil {
		return sperr.OS("jobobject.add_process", err)
	}
	defer windows.CloseHandle(h)

	if err := windows.AssignProcessToJobObject(g.handle, h); err != nil {
		return sperr.OS("jobobject.add_process", err)
	}
	g.mu.Lock()
	g.pids[pid] = struct{}{}
	g.mu.Unlock()
	return nil
}

func (g *Group) accounting() (*basicAccountingInformation, bool) {
	var info basicAccountingInformation
	var returned uint32
	err := windows.QueryInformationJobObject(
		g.handle,
		8, // JobObjectBasicAccountingInformation
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
		&returned,
	)
	if err != nil {
		return nil, false
	}
	return &info, true
}

func (g *Group) Memory() (*model.MemoryStat, bool) {
	var info extendedLimitInformation
	var returned uint32
	err := windows.QueryInformationJobObject(
		g.handle,
		jobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
		&returned,
	)
	if err != nil {
		return nil, false
	}
	return &model.MemoryStat{
		Current: uint64(info.ProcessMemoryLimit),
		Peak:    uint64(info.PeakJobMemoryUsed),
	}, true
}

func (g *Group) IO() (*model.IOStat, bool) {
	var info extendedLimitInformation
	var returned uint32
	err := windows.QueryInformationJobObject(
		g.handle,
		jobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
		&returned,
	)
	if err != nil {
		return nil, false
	}
	return &model.IOStat{TotalBytesWritten: info.IoInfo.WriteTransferCount}, true
}

func (g *Group) Timers() (*model.TimerStat, bool) {
	info, ok := g.accounting()
	if !ok {
		return nil, false
	}
	// FILETIME-style counters are in 100ns units.
	return &model.TimerStat{
		TotalUserTime:   durationFrom100ns(info.TotalUserTime),
		TotalKernelTime: durationFrom100ns(info.TotalKernelTime),
	}, true
}

func (g *Group) PIDCounters() (*model.PIDStat, bool) {
	info, ok := g.accounting()
	if !ok {
		return nil, false
	}
	return &model.PIDStat{
		TotalProcesses:  uint64(info.TotalProcesses),
		ActiveProcesses: uint64(info.ActiveProcesses),
	}, true
}

// Network cannot be sampled per job object on Windows.
func (g *Group) Network() (*model.NetworkStat, bool) {
	return nil, false
}

// Terminate kills every process in the job. Idempotent.
func (g *Group) Terminate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	if err := windows.TerminateJobObject(g.handle, 1); err != nil {
		return sperr.OS("jobobject.terminate", err)
	}
	g.closed = true
	_ = windows.CloseHandle(g.handle)
	return nil
}

func durationFrom100ns(v int64) time.Duration {
	return time.Duration(v) * 100 * time.Nanosecond
}
