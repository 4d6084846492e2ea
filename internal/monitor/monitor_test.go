//go:build !windows

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/proc"
)

func TestNaturalExitProducesNoTerminationReason(t *testing.T) {
	m, err := New(Config{
		Info:            proc.Info{Path: "/bin/echo", Args: []string{"hello"}},
		MonitorInterval: 2 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	report, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TerminationReason != "" {
		t.Fatalf("expected natural exit, got termination reason %v", report.TerminationReason)
	}
	if report.ExitStatus.Code == nil || *report.ExitStatus.Code != 0 {
		t.Fatalf("expected exit code 0, got %+v", report.ExitStatus)
	}
}

func TestWallClockBreachTerminates(t *testing.T) {
	limit := 100 * time.Millisecond
	m, err := New(Config{
		Info:            proc.Info{Path: "/bin/sleep", Args: []string{"10"}},
		MonitorInterval: 10 * time.Millisecond,
		Limits:          model.ResourceLimits{WallClockTime: &limit},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	report, err := m.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TerminationReason != model.WallClockTimeLimitExceeded {
		t.Fatalf("expected WallClockTimeLimitExceeded, got %v", report.TerminationReason)
	}
	if elapsed > 2*time.Second {
		t.Fatalf("monitor took too long to terminate: %v", elapsed)
	}
}

func TestIdleDetectionTerminates(t *testing.T) {
	threshold := 0.5
	m, err := New(Config{
		Info:            proc.Info{Path: "/bin/sleep", Args: []string{"10"}},
		MonitorInterval: 10 * time.Millisecond,
		Limits: model.ResourceLimits{
			IdleTime: &model.IdleTime{Total: 50 * time.Millisecond, CPULoadThreshold: threshold},
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	report, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TerminationReason != model.IdleTimeLimitExceeded {
		t.Fatalf("expected IdleTimeLimitExceeded, got %v", report.TerminationReason)
	}
}

func TestWaitForChildrenFalseReturnsImmediatelyAfterParentExit(t *testing.T) {
	m, err := New(Config{
		Info:            proc.Info{Path: "/bin/sh", Args: []string{"-c", "(sleep 0.3 &); true"}},
		MonitorInterval: 10 * time.Millisecond,
		WaitForChildren: false,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	start := time.Now()
	report, err := m.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TerminationReason != "" {
		t.Fatalf("expected natural exit, got %v", report.TerminationReason)
	}
	if elapsed > 250*time.Millisecond {
		t.Fatalf("expected Report as soon as the parent exits, took %v", elapsed)
	}
}

func TestExternalTerminateMessage(t *testing.T) {
	m, err := New(Config{
		Info:            proc.Info{Path: "/bin/sleep", Args: []string{"10"}},
		MonitorInterval: 5 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		m.Sender().Send(model.Terminate)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	report, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.TerminationReason != model.TerminatedByRunner {
		t.Fatalf("expected TerminatedByRunner, got %v", report.TerminationReason)
	}
}
