//go:build !windows

package procfallback

import (
	"os/exec"
	"testing"
)

func TestTerminateIsIdempotent(t *testing.T) {
	cmd := exec.Command("/bin/sleep", "5")
	if err := cmd.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer cmd.Wait()

	g, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := g.AddProcess(cmd.Process.Pid); err != nil {
		t.Fatalf("AddProcess: %v", err)
	}

	if err := g.Terminate(); err != nil {
		t.Fatalf("first Terminate: %v", err)
	}
	if err := g.Terminate(); err != nil {
		t.Fatalf("second Terminate should succeed as a no-op, got: %v", err)
	}
}

func TestAddProcessTracksCreatedCount(t *testing.T) {
	g, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = g.AddProcess(111)
	_ = g.AddProcess(111)
	_ = g.AddProcess(222)

	stat, ok := g.PIDCounters()
	if !ok {
		t.Fatalf("expected PIDCounters ok")
	}
	if stat.TotalProcesses != 2 {
		t.Fatalf("expected 2 distinct processes created, got %d", stat.TotalProcesses)
	}
}
