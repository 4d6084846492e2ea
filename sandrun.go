// Package sandrun is the public facade over the engine: build a
// SpawnedProgram, hand a batch to Spawn, and join the results.
package sandrun

import (
	"context"
	"log/slog"
	"time"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/monitor"
	"github.com/sandrun/sandrun/internal/msgchan"
	"github.com/sandrun/sandrun/internal/pipe"
	"github.com/sandrun/sandrun/internal/proc"
	"github.com/sandrun/sandrun/internal/spawner"
)

// Re-exported data-model types, so callers never import internal/model
// directly.
type (
	ResourceLimits    = model.ResourceLimits
	IdleTime          = model.IdleTime
	GroupCounters     = model.GroupCounters
	MemoryStat        = model.MemoryStat
	IOStat            = model.IOStat
	TimerStat         = model.TimerStat
	PIDStat           = model.PIDStat
	NetworkStat       = model.NetworkStat
	TerminationReason = model.TerminationReason
	ExitStatus        = model.ExitStatus
	Report            = model.Report
	RunnerMessage     = model.RunnerMessage
)

// Re-exported termination reason and runner message constants.
const (
	WallClockTimeLimitExceeded           = model.WallClockTimeLimitExceeded
	IdleTimeLimitExceeded                = model.IdleTimeLimitExceeded
	UserTimeLimitExceeded                = model.UserTimeLimitExceeded
	WriteLimitExceeded                   = model.WriteLimitExceeded
	MemoryLimitExceeded                  = model.MemoryLimitExceeded
	ProcessLimitExceeded                 = model.ProcessLimitExceeded
	ActiveProcessLimitExceeded           = model.ActiveProcessLimitExceeded
	ActiveNetworkConnectionLimitExceeded = model.ActiveNetworkConnectionLimitExceeded
	TerminatedByRunner                   = model.TerminatedByRunner

	Terminate            = model.Terminate
	Suspend              = model.Suspend
	Resume               = model.Resume
	StopTimeAccounting   = model.StopTimeAccounting
	ResumeTimeAccounting = model.ResumeTimeAccounting
	ResetTime            = model.ResetTime
)

// ProcessInfo carries the spawn parameters for a child program.
type ProcessInfo = proc.Info

// Stdio is the triple of handles the child inherits, and no others.
type Stdio = proc.Stdio

// Channel is the control-message channel bound to one SpawnedProgram.
type Channel = msgchan.Channel

// NewChannel constructs a fresh control-message channel.
func NewChannel() *Channel { return msgchan.New() }

// Pipe re-exports for callers building custom Stdio triples.
var (
	CreatePipe = pipe.Create
	NullRead   = pipe.NullRead
	NullWrite  = pipe.NullWrite
)

// SpawnedProgram is the builder-style configuration for one monitored
// child: resource_limits, monitor_interval, on_terminate, stdio,
// wait_for_children, msg_channel and a logger. There is no option to supply
// a process group; the monitor always creates its own.
type SpawnedProgram struct {
	cfg monitor.Config
}

// NewSpawnedProgram begins configuring a program to run under the engine.
func NewSpawnedProgram(info ProcessInfo) *SpawnedProgram {
	return &SpawnedProgram{cfg: monitor.Config{Info: info}}
}

func (s *SpawnedProgram) WithResourceLimits(l ResourceLimits) *SpawnedProgram {
	s.cfg.Limits = l
	return s
}

func (s *SpawnedProgram) WithMonitorInterval(d time.Duration) *SpawnedProgram {
	s.cfg.MonitorInterval = d
	return s
}

func (s *SpawnedProgram) WithOnTerminate(fn func()) *SpawnedProgram {
	s.cfg.OnTerminate = fn
	return s
}

func (s *SpawnedProgram) WithStdio(stdio Stdio) *SpawnedProgram {
	s.cfg.Stdio = stdio
	return s
}

func (s *SpawnedProgram) WithWaitForChildren(wait bool) *SpawnedProgram {
	s.cfg.WaitForChildren = wait
	return s
}

func (s *SpawnedProgram) WithMsgChannel(ch *Channel) *SpawnedProgram {
	s.cfg.Channel = ch
	return s
}

// WithLogger overrides the monitor's structured logger, defaulting to
// slog.Default() when left unset.
func (s *SpawnedProgram) WithLogger(l *slog.Logger) *SpawnedProgram {
	s.cfg.Logger = l
	return s
}

// Spawner spawns a batch of SpawnedPrograms and joins their reports.
type Spawner struct {
	inner *spawner.Spawner
}

// Runner exposes the control-message sender for one spawned program.
type Runner = spawner.Runner

// Result pairs a Report with any error that aborted its monitor.
type Result = spawner.Result

// Spawn launches one goroutine per program and returns immediately.
func Spawn(ctx context.Context, programs []*SpawnedProgram) *Spawner {
	configs := make([]monitor.Config, len(programs))
	for i, p := range programs {
		configs[i] = p.cfg
	}
	return &Spawner{inner: spawner.Spawn(ctx, configs)}
}

// Runners returns the per-program runners in submission order.
func (s *Spawner) Runners() []Runner { return s.inner.Runners() }

// Wait joins every worker and returns their results in submission order.
func (s *Spawner) Wait() []Result { return s.inner.Wait() }
