package limits

import (
	"testing"
	"time"

	"github.com/sandrun/sandrun/internal/model"
)

func dur(d time.Duration) *time.Duration { return &d }
func u64(v uint64) *uint64               { return &v }

func TestDefaultLimitsNeverTerminate(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{}, model.EnabledOSLimits{})
	reason, fired := c.Check(now.Add(time.Hour), model.GroupCounters{
		Timers: &model.TimerStat{TotalUserTime: 24 * time.Hour},
		Memory: &model.MemoryStat{Peak: 1 << 40},
	})
	if fired {
		t.Fatalf("expected no breach with all-nil ResourceLimits, got %v", reason)
	}
}

func TestWallClockBreach(t *testing.T) {
	now := time.Now()
	limit := 100 * time.Millisecond
	c := NewChecker(now, model.ResourceLimits{WallClockTime: dur(limit)}, model.EnabledOSLimits{})
	reason, fired := c.Check(now.Add(150*time.Millisecond), model.GroupCounters{})
	if !fired || reason != model.WallClockTimeLimitExceeded {
		t.Fatalf("expected WallClockTimeLimitExceeded, got %v fired=%v", reason, fired)
	}
}

func TestZeroLifetimeLimitFiresOnFirstSample(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{TotalProcessesCreated: u64(0)}, model.EnabledOSLimits{})
	reason, fired := c.Check(now.Add(time.Millisecond), model.GroupCounters{
		PIDCounters: &model.PIDStat{TotalProcesses: 1},
	})
	if !fired || reason != model.ProcessLimitExceeded {
		t.Fatalf("expected ProcessLimitExceeded on first sample, got %v fired=%v", reason, fired)
	}
}

func TestMemoryLimitSuppressedWhenOSEnforced(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{MaxMemoryUsage: u64(1024)}, model.EnabledOSLimits{Memory: true})
	_, fired := c.Check(now.Add(time.Millisecond), model.GroupCounters{
		Memory: &model.MemoryStat{Peak: 1 << 30},
	})
	if fired {
		t.Fatalf("OS-enforced memory limit must not be duplicated in user space")
	}
}

func TestMemoryLimitFiresWhenNotOSEnforced(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{MaxMemoryUsage: u64(64 << 20)}, model.EnabledOSLimits{})
	reason, fired := c.Check(now.Add(time.Millisecond), model.GroupCounters{
		Memory: &model.MemoryStat{Peak: 256 << 20},
	})
	if !fired || reason != model.MemoryLimitExceeded {
		t.Fatalf("expected MemoryLimitExceeded in user space, got %v fired=%v", reason, fired)
	}
}

func TestResetTimeClearsAccumulators(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{WallClockTime: dur(10 * time.Millisecond)}, model.EnabledOSLimits{})
	later := now.Add(time.Second)
	c.ResetTime(later)
	reason, fired := c.Check(later, model.GroupCounters{})
	if fired {
		t.Fatalf("expected no breach immediately after ResetTime, got %v", reason)
	}
}

func TestStopResumeTimeAccountingAddsNothing(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{}, model.EnabledOSLimits{})
	c.StopTimeAccounting()
	paused := now.Add(5 * time.Second)
	c.Check(paused, model.GroupCounters{})
	c.ResumeTimeAccounting()
	if c.WallTime() != 0 {
		t.Fatalf("paused interval must not advance wall_time, got %v", c.WallTime())
	}
}

func TestIdleAccumulatorNeverResetsOnActivity(t *testing.T) {
	now := time.Now()
	c := NewChecker(now, model.ResourceLimits{
		IdleTime: &model.IdleTime{Total: 50 * time.Millisecond, CPULoadThreshold: 0.5},
	}, model.EnabledOSLimits{})

	// idle interval
	t1 := now.Add(30 * time.Millisecond)
	c.Check(t1, model.GroupCounters{Timers: &model.TimerStat{TotalUserTime: 0}})

	// busy interval: load ~1.0 (30ms of user time over the 30ms interval),
	// must not be misread as idle and must not add to the accumulator. A
	// checker that computes load against the post-advance lastUserTime
	// (rather than the sample taken before this interval) sees a zero delta
	// here and would wrongly fire already.
	t2 := t1.Add(30 * time.Millisecond)
	reason2, fired2 := c.Check(t2, model.GroupCounters{Timers: &model.TimerStat{TotalUserTime: 30 * time.Millisecond}})
	if fired2 {
		t.Fatalf("busy interval must not be counted as idle, got %v", reason2)
	}

	// another idle interval, should push accumulator over 50ms total
	t3 := t2.Add(30 * time.Millisecond)
	reason, fired := c.Check(t3, model.GroupCounters{Timers: &model.TimerStat{TotalUserTime: 30 * time.Millisecond}})
	if !fired || reason != model.IdleTimeLimitExceeded {
		t.Fatalf("expected cumulative idle time to fire, got %v fired=%v", reason, fired)
	}
}

func TestAtMostOneReasonEvaluationOrder(t *testing.T) {
	now := time.Now()
	// Both wall-clock and user-time are breached simultaneously; wall-clock
	// must win per the fixed evaluation order.
	c := NewChecker(now, model.ResourceLimits{
		WallClockTime: dur(time.Millisecond),
		TotalUserTime: dur(time.Millisecond),
	}, model.EnabledOSLimits{})
	reason, fired := c.Check(now.Add(time.Second), model.GroupCounters{
		Timers: &model.TimerStat{TotalUserTime: time.Second},
	})
	if !fired || reason != model.WallClockTimeLimitExceeded {
		t.Fatalf("expected wall-clock to win ties, got %v", reason)
	}
}
