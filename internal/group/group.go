// Package group defines the Process Group contract: an OS-level container
// that a Process is spawned into, exposing cumulative counters and a
// bulk-terminate operation. Platform backends live in the cgroup,
// jobobject and procfallback subpackages; New selects among them.
package group

import "github.com/sandrun/sandrun/internal/model"

// Group is the capability a Process is spawned into. Implementations must
// account for the root process and all its descendants irrespective of
// fork/exec, using the native container primitive (cgroup / job object /
// equivalent).
type Group interface {
	// SetOSLimit attempts to install a cap in-kernel. ok reports whether the
	// platform honored it; when true, the Limit Checker must not duplicate
	// this check in user space.
	SetOSLimit(limit model.OSLimitKind, value uint64) (ok bool, err error)

	// Memory, IO, Timers, PIDCounters and Network each sample one counter
	// family. A nil return (ok == false) means the platform cannot provide
	// it.
	Memory() (*model.MemoryStat, bool)
	IO() (*model.IOStat, bool)
	Timers() (*model.TimerStat, bool)
	PIDCounters() (*model.PIDStat, bool)
	Network() (*model.NetworkStat, bool)

	// AddProcess registers pid as a member of the group (on platforms where
	// membership must be established explicitly rather than being implied
	// by spawning inside the container already).
	AddProcess(pid int) error

	// Terminate bulk-kills every process in the group. Idempotent; tolerates
	// an already-empty group.
	Terminate() error
}
