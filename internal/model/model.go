// Package model holds the engine's shared data types: resource limits,
// sampled group counters, termination reasons, exit status, the final
// report, and the runner control-message enum. These are used by
// internal/limits, internal/group, internal/monitor, and internal/spawner
// without any of those packages depending on each other directly.
package model

import "time"

// IdleTime configures the idle-time breach: total accumulated idle duration
// before firing, and the CPU-load threshold below which the group is
// considered idle.
type IdleTime struct {
	Total           time.Duration
	CPULoadThreshold float64
}

// ResourceLimits is an immutable record of optional caps. A nil field is
// never enforced and never causes termination.
type ResourceLimits struct {
	WallClockTime             *time.Duration
	TotalUserTime             *time.Duration
	IdleTime                  *IdleTime
	MaxMemoryUsage            *uint64
	TotalBytesWritten         *uint64
	TotalProcessesCreated     *uint64
	ActiveProcesses           *uint64
	ActiveNetworkConnections  *uint64
}

// MemoryStat is the group's sampled memory counter.
type MemoryStat struct {
	Peak    uint64
	Current uint64
}

// IOStat is the group's sampled I/O counter.
type IOStat struct {
	TotalBytesWritten uint64
}

// TimerStat is the group's sampled CPU-time counter.
type TimerStat struct {
	TotalUserTime   time.Duration
	TotalKernelTime time.Duration
}

// PIDStat is the group's sampled process-count counter.
type PIDStat struct {
	TotalProcesses  uint64
	ActiveProcesses uint64
}

// NetworkStat is the group's sampled network counter.
type NetworkStat struct {
	ActiveConnections uint64
}

// GroupCounters is a sampled view of a Group. Each field is nil when the
// platform cannot provide that counter.
type GroupCounters struct {
	Memory      *MemoryStat
	IO          *IOStat
	Timers      *TimerStat
	PIDCounters *PIDStat
	Network     *NetworkStat
}

// TerminationReason is the closed set of causes attributable to a
// non-natural exit. The zero value "" means absent (natural exit).
type TerminationReason string

const (
	WallClockTimeLimitExceeded           TerminationReason = "wall_clock_time_limit_exceeded"
	IdleTimeLimitExceeded                TerminationReason = "idle_time_limit_exceeded"
	UserTimeLimitExceeded                TerminationReason = "user_time_limit_exceeded"
	WriteLimitExceeded                   TerminationReason = "write_limit_exceeded"
	MemoryLimitExceeded                  TerminationReason = "memory_limit_exceeded"
	ProcessLimitExceeded                 TerminationReason = "process_limit_exceeded"
	ActiveProcessLimitExceeded           TerminationReason = "active_process_limit_exceeded"
	ActiveNetworkConnectionLimitExceeded TerminationReason = "active_network_connection_limit_exceeded"
	TerminatedByRunner                   TerminationReason = "terminated_by_runner"
)

// ExitStatus reports how the OS says the process ended. Exactly one of
// Code or Signal is set.
type ExitStatus struct {
	Code   *int
	Signal *string
}

// Report is the terminal artifact produced once, at monitor exit.
type Report struct {
	WallClockTime     time.Duration
	Memory            *MemoryStat
	IO                *IOStat
	Timers            *TimerStat
	PIDCounters       *PIDStat
	Network           *NetworkStat
	ExitStatus        ExitStatus
	TerminationReason TerminationReason
}

// RunnerMessage is the closed control-message enum delivered over the
// message channel.
type RunnerMessage int

const (
	Terminate RunnerMessage = iota
	Suspend
	Resume
	StopTimeAccounting
	ResumeTimeAccounting
	ResetTime
)

// OSLimitKind names a limit the Process Group may be asked to enforce
// in-kernel.
type OSLimitKind int

const (
	OSLimitMemory OSLimitKind = iota
	OSLimitActiveProcess
)

// EnabledOSLimits records which OS-enforceable limits were actually
// installed in-kernel, so the Limit Checker can skip the corresponding
// user-space check.
type EnabledOSLimits struct {
	Memory         bool
	ActiveProcess  bool
}
