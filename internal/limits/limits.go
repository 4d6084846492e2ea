// Package limits implements the Limit Checker: a pure, stateful policy
// object that decides at each sample whether a breach has occurred and
// which termination reason to emit.
package limits

import (
	"time"

	"github.com/sandrun/sandrun/internal/model"
)

// Checker accumulates wall-time, user-time and idle-time state across
// successive calls to Check. It holds no OS resources and does no I/O.
type Checker struct {
	limits model.ResourceLimits
	osEnf  model.EnabledOSLimits

	start time.Time
	last  time.Time

	paused      bool
	pauseStart  time.Time
	pausedTotal time.Duration

	wallTime time.Duration
	userTime time.Duration

	lastUserTime    time.Duration
	haveLastUser    bool
	idleAccumulator time.Duration
}

// NewChecker constructs a Checker anchored at now.
func NewChecker(now time.Time, l model.ResourceLimits, enabled model.EnabledOSLimits) *Checker {
	return &Checker{
		limits: l,
		osEnf:  enabled,
		start:  now,
		last:   now,
	}
}

// Check advances the internal accumulators to now using the given sample and
// returns the first breached limit, in the fixed evaluation order of §4.4:
// wall-clock, idle, user-time, write, memory (unless OS-enforced), process
// count, active-process count (unless OS-enforced), active network
// connections.
func (c *Checker) Check(now time.Time, counters model.GroupCounters) (model.TerminationReason, bool) {
	prevUserTime, havePrevUserTime := c.lastUserTime, c.haveLastUser
	interval := c.advance(now, counters)

	if c.limits.WallClockTime != nil && c.wallTime > *c.limits.WallClockTime {
		return model.WallClockTimeLimitExceeded, true
	}

	if c.limits.IdleTime != nil {
		c.accumulateIdle(interval, counters, prevUserTime, havePrevUserTime)
		if c.idleAccumulator > c.limits.IdleTime.Total {
			return model.IdleTimeLimitExceeded, true
		}
	}

	if c.limits.TotalUserTime != nil && counters.Timers != nil && counters.Timers.TotalUserTime > *c.limits.TotalUserTime {
		return model.UserTimeLimitExceeded, true
	}

	if c.limits.TotalBytesWritten != nil && counters.IO != nil && counters.IO.TotalBytesWritten > *c.limits.TotalBytesWritten {
		return model.WriteLimitExceeded, true
	}

	if !c.osEnf.Memory && c.limits.MaxMemoryUsage != nil && counters.Memory != nil && counters.Memory.Peak > *c.limits.MaxMemoryUsage {
		return model.MemoryLimitExceeded, true
	}

	if c.limits.TotalProcessesCreated != nil && counters.PIDCounters != nil && counters.PIDCounters.TotalProcesses > *c.limits.TotalProcessesCreated {
		return model.ProcessLimitExceeded, true
	}

	if !c.osEnf.ActiveProcess && c.limits.ActiveProcesses != nil && counters.PIDCounters != nil && counters.PIDCounters.ActiveProcesses > *c.limits.ActiveProcesses {
		return model.ActiveProcessLimitExceeded, true
	}

	if c.limits.ActiveNetworkConnections != nil && counters.Network != nil && counters.Network.ActiveConnections > *c.limits.ActiveNetworkConnections {
		return model.ActiveNetworkConnectionLimitExceeded, true
	}

	return "", false
}

// advance moves wall_time and user_time forward by the elapsed interval
// since the previous call, skipping any paused span, and returns that
// interval (zero while paused).
func (c *Checker) advance(now time.Time, counters model.GroupCounters) time.Duration {
	if c.paused {
		c.last = now
		return 0
	}

	interval := now.Sub(c.last)
	if interval < 0 {
		interval = 0
	}
	c.wallTime += interval
	c.last = now

	if counters.Timers != nil {
		if c.haveLastUser {
			delta := counters.Timers.TotalUserTime - c.lastUserTime
			if delta > 0 {
				c.userTime += delta
			}
		} else {
			c.userTime += counters.Timers.TotalUserTime
		}
		c.lastUserTime = counters.Timers.TotalUserTime
		c.haveLastUser = true
	}

	return interval
}

// accumulateIdle adds interval to idle_time_accumulator when the group's
// CPU load over that interval is below cpu_load_threshold. Load is
// Δ(user_time)/Δ(wall_time), where Δ(user_time) is measured against the
// sample taken before this interval's advance() call, since advance()
// already overwrites lastUserTime with the current sample before this runs.
// The accumulator never resets on its own; see ResetTime.
func (c *Checker) accumulateIdle(interval time.Duration, counters model.GroupCounters, prevUserTime time.Duration, havePrevUserTime bool) {
	if interval <= 0 || counters.Timers == nil {
		return
	}
	delta := counters.Timers.TotalUserTime
	if havePrevUserTime {
		delta = counters.Timers.TotalUserTime - prevUserTime
	}
	if delta < 0 {
		delta = 0
	}
	load := float64(delta) / float64(interval)
	if load < c.limits.IdleTime.CPULoadThreshold {
		c.idleAccumulator += interval
	}
}

// StopTimeAccounting freezes the wall-time and user-time accumulators.
func (c *Checker) StopTimeAccounting() {
	if c.paused {
		return
	}
	c.paused = true
	c.pauseStart = c.last
}

// ResumeTimeAccounting unfreezes the accumulators; no time elapsed while
// paused is ever added.
func (c *Checker) ResumeTimeAccounting() {
	if !c.paused {
		return
	}
	c.paused = false
}

// ResetTime zeroes all accumulators, re-anchoring to now.
func (c *Checker) ResetTime(now time.Time) {
	c.start = now
	c.last = now
	c.wallTime = 0
	c.userTime = 0
	c.haveLastUser = false
	c.idleAccumulator = 0
	c.paused = false
}

// WallTime returns the current accumulated wall-clock time.
func (c *Checker) WallTime() time.Duration { return c.wallTime }
