// Package monitor implements the Process Monitor: the per-child supervisor
// loop that owns a Process, a Group and a Limit Checker, drains control
// messages, and assembles the final Report.
package monitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandrun/sandrun/internal/group"
	"github.com/sandrun/sandrun/internal/limits"
	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/msgchan"
	"github.com/sandrun/sandrun/internal/pipe"
	"github.com/sandrun/sandrun/internal/proc"
	"github.com/sandrun/sandrun/internal/sperr"
)

// defaultInterval is the monitor-interval floor's default: 1ms is a
// default, not a guarantee, per the engine's design notes — platforms with
// coarser timer granularity will observe a larger effective floor.
const defaultInterval = time.Millisecond

// messageDrainCap bounds how many control messages are handled per tick so
// a flood of Suspend/Resume traffic can't starve the limit check.
const messageDrainCap = 10

// Config configures a Monitor.
type Config struct {
	Info            proc.Info
	Stdio           proc.Stdio
	Limits          model.ResourceLimits
	MonitorInterval time.Duration
	WaitForChildren bool
	OnTerminate     func()
	Channel         *msgchan.Channel
	Logger          *slog.Logger
}

// Monitor is the per-child supervisor.
type Monitor struct {
	cfg     Config
	group   group.Group
	process *proc.Process
	checker *limits.Checker
	enabled model.EnabledOSLimits

	creationTime time.Time
	termReason   model.TerminationReason
	closed       bool
	onTermDone   bool
	logger       *slog.Logger
}

// New validates the group, installs any OS-enforceable limits, builds the
// limit checker, and spawns the process with the given stdio (substituting
// null endpoints for any stdio the caller left unset).
func New(cfg Config) (*Monitor, error) {
	if cfg.MonitorInterval <= 0 {
		cfg.MonitorInterval = defaultInterval
	}
	if cfg.Channel == nil {
		cfg.Channel = msgchan.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	stdio, err := fillDefaultStdio(cfg.Stdio)
	if err != nil {
		return nil, err
	}
	cfg.Stdio = stdio

	g, err := group.New()
	if err != nil {
		return nil, err
	}

	var enabled model.EnabledOSLimits
	if cfg.Limits.MaxMemoryUsage != nil {
		ok, err := g.SetOSLimit(model.OSLimitMemory, *cfg.Limits.MaxMemoryUsage)
		if err != nil {
			_ = g.Terminate()
			return nil, err
		}
		enabled.Memory = ok
	}
	if cfg.Limits.ActiveProcesses != nil {
		ok, err := g.SetOSLimit(model.OSLimitActiveProcess, *cfg.Limits.ActiveProcesses)
		if err != nil {
			_ = g.Terminate()
			return nil, err
		}
		enabled.ActiveProcess = ok
	}

	now := time.Now()
	checker := limits.NewChecker(now, cfg.Limits, enabled)

	p, err := proc.SpawnInGroup(cfg.Info, cfg.Stdio, g)
	if err != nil {
		_ = g.Terminate()
		return nil, err
	}

	return &Monitor{
		cfg:          cfg,
		group:        g,
		process:      p,
		checker:      checker,
		enabled:      enabled,
		creationTime: now,
		logger:       cfg.Logger,
	}, nil
}

// fillDefaultStdio replaces any zero-value stdio endpoint with a null
// endpoint, per the original engine's "null endpoints if unset" default.
func fillDefaultStdio(stdio proc.Stdio) (proc.Stdio, error) {
	if stdio.Stdin.File() == nil {
		r, err := pipe.NullRead()
		if err != nil {
			return stdio, err
		}
		stdio.Stdin = r
	}
	if stdio.Stdout.File() == nil {
		w, err := pipe.NullWrite()
		if err != nil {
			return stdio, err
		}
		stdio.Stdout = w
	}
	if stdio.Stderr.File() == nil {
		w, err := pipe.NullWrite()
		if err != nil {
			return stdio, err
		}
		stdio.Stderr = w
	}
	return stdio, nil
}

// Run executes the monitor loop to completion: sample → limit check →
// message drain → sleep, repeated until a Report can be assembled or ctx is
// canceled (treated identically to receiving Terminate).
func (m *Monitor) Run(ctx context.Context) (model.Report, error) {
	defer m.Close()

	for {
		if report, ready := m.tryAssembleReport(); ready {
			return report, nil
		}

		if reason, fired := m.checker.Check(time.Now(), m.sample()); fired {
			_ = m.group.Terminate()
			m.termReason = reason
			m.logger.Info("monitor: limit breached", "pid", m.process.PID(), "reason", reason)
		}

		m.drainMessages()

		select {
		case <-ctx.Done():
			_ = m.group.Terminate()
			m.termReason = model.TerminatedByRunner
		default:
		}

		time.Sleep(m.cfg.MonitorInterval)
	}
}

// drainMessages handles at most messageDrainCap control messages per tick,
// FIFO order, stopping early once the channel empties.
func (m *Monitor) drainMessages() {
	for i := 0; i < messageDrainCap; i++ {
		msg, ok := m.cfg.Channel.TryRecv()
		if !ok {
			return
		}
		switch msg {
		case model.Terminate:
			_ = m.group.Terminate()
			m.termReason = model.TerminatedByRunner
		case model.Suspend:
			if _, exited := m.process.ExitStatus(); !exited {
				_ = m.process.Suspend()
			}
		case model.Resume:
			if _, exited := m.process.ExitStatus(); !exited {
				_ = m.process.Resume()
			}
		case model.ResetTime:
			m.checker.ResetTime(time.Now())
		case model.StopTimeAccounting:
			m.checker.StopTimeAccounting()
		case model.ResumeTimeAccounting:
			m.checker.ResumeTimeAccounting()
		}
	}
}

// tryAssembleReport implements the report-readiness rule of §4.6: once the
// root process has exited, and either wait_for_children is unset or no
// descendants remain active, run one final check (only if term_reason is
// still unset) and assemble the Report.
func (m *Monitor) tryAssembleReport() (model.Report, bool) {
	status, exited := m.process.ExitStatus()
	if !exited {
		return model.Report{}, false
	}

	counters := m.sample()
	if m.cfg.WaitForChildren && counters.PIDCounters != nil && counters.PIDCounters.ActiveProcesses != 0 {
		return model.Report{}, false
	}

	if m.termReason == "" {
		if reason, fired := m.checker.Check(time.Now(), counters); fired {
			m.termReason = reason
		}
	}

	return model.Report{
		WallClockTime:     m.checker.WallTime(),
		Memory:            counters.Memory,
		IO:                counters.IO,
		Timers:            counters.Timers,
		PIDCounters:       counters.PIDCounters,
		Network:           counters.Network,
		ExitStatus:        *status,
		TerminationReason: m.termReason,
	}, true
}

func (m *Monitor) sample() model.GroupCounters {
	var c model.GroupCounters
	if v, ok := m.group.Memory(); ok {
		c.Memory = v
	}
	if v, ok := m.group.IO(); ok {
		c.IO = v
	}
	if v, ok := m.group.Timers(); ok {
		c.Timers = v
	}
	if v, ok := m.group.PIDCounters(); ok {
		c.PIDCounters = v
	}
	if v, ok := m.group.Network(); ok {
		c.Network = v
	}
	return c
}

// Close unconditionally terminates the group and, the first time it's
// called, invokes the on_terminate callback. Safe to call multiple times;
// Run defers it on every exit path, which is how the Spawner's workers
// reach it.
func (m *Monitor) Close() error {
	if m.closed {
		return nil
	}
	m.closed = true
	err := m.group.Terminate()
	if !m.onTermDone {
		m.onTermDone = true
		if m.cfg.OnTerminate != nil {
			m.cfg.OnTerminate()
		}
	}
	if err != nil {
		return sperr.OS("monitor.close", err)
	}
	return nil
}

// Sender exposes the control-message producer for this monitor.
func (m *Monitor) Sender() *msgchan.Channel { return m.cfg.Channel }
