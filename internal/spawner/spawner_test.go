//go:build !windows

package spawner

import (
	"context"
	"testing"
	"time"

	"github.com/sandrun/sandrun/internal/monitor"
	"github.com/sandrun/sandrun/internal/proc"
)

func TestSpawnMultiplePreservesSubmissionOrder(t *testing.T) {
	configs := []monitor.Config{
		{Info: proc.Info{Path: "/bin/echo", Args: []string{"one"}}, MonitorInterval: 2 * time.Millisecond},
		{Info: proc.Info{Path: "/bin/echo", Args: []string{"two"}}, MonitorInterval: 2 * time.Millisecond},
		{Info: proc.Info{Path: "/bin/echo", Args: []string{"three"}}, MonitorInterval: 2 * time.Millisecond},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := Spawn(ctx, configs)
	if len(s.Runners()) != 3 {
		t.Fatalf("expected 3 runners, got %d", len(s.Runners()))
	}

	results := s.Wait()
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, r := range results {
		if r.Err != nil {
			t.Fatalf("result %d: unexpected error %v", i, r.Err)
		}
		if r.Report.ExitStatus.Code == nil || *r.Report.ExitStatus.Code != 0 {
			t.Fatalf("result %d: expected clean exit, got %+v", i, r.Report.ExitStatus)
		}
	}
}

func TestInvalidProgramSurfacesAsResultError(t *testing.T) {
	configs := []monitor.Config{
		{Info: proc.Info{Path: "/definitely/not/a/real/binary"}},
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	results := Spawn(ctx, configs).Wait()
	if results[0].Err == nil {
		t.Fatalf("expected spawn of a nonexistent binary to surface an error")
	}
}
