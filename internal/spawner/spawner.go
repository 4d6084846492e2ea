// Package spawner implements the Supervisor Set: it spawns N monitors on N
// worker goroutines, exposes their send-channels, and joins them for their
// reports in submission order.
package spawner

import (
	"context"
	"sync"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/monitor"
	"github.com/sandrun/sandrun/internal/msgchan"
	"github.com/sandrun/sandrun/internal/sperr"
)

// Result pairs a Report with any error that aborted its monitor.
type Result struct {
	Report model.Report
	Err    error
}

// Runner exposes the control-message sender for one spawned program.
type Runner struct {
	channel *msgchan.Channel
}

// Sender returns the channel external callers use to send control messages.
func (r Runner) Sender() *msgchan.Channel { return r.channel }

// Spawner runs a batch of monitors in parallel and joins their results.
type Spawner struct {
	runners []Runner
	results []Result
	wg      sync.WaitGroup
}

// Spawn launches one goroutine per configs entry, each running
// monitor.New(cfg).Run(ctx) to completion, and returns immediately with a
// Spawner the caller can inspect via Runners or join via Wait.
func Spawn(ctx context.Context, configs []monitor.Config) *Spawner {
	s := &Spawner{
		runners: make([]Runner, len(configs)),
		results: make([]Result, len(configs)),
	}

	for i := range configs {
		if configs[i].Channel == nil {
			configs[i].Channel = msgchan.New()
		}
		s.runners[i] = Runner{channel: configs[i].Channel}

		s.wg.Add(1)
		go s.run(ctx, i, configs[i])
	}

	return s
}

func (s *Spawner) run(ctx context.Context, idx int, cfg monitor.Config) {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.results[idx] = Result{Err: sperr.Other("runner goroutine panicked")}
		}
	}()

	m, err := monitor.New(cfg)
	if err != nil {
		s.results[idx] = Result{Err: err}
		return
	}

	report, err := m.Run(ctx)
	s.results[idx] = Result{Report: report, Err: err}
}

// Runners returns the per-program runners in submission order.
func (s *Spawner) Runners() []Runner { return s.runners }

// Wait joins every worker and returns their results in submission order.
func (s *Spawner) Wait() []Result {
	s.wg.Wait()
	return s.results
}
