//go:build !windows

package proc

import (
	"testing"
	"time"

	"github.com/sandrun/sandrun/internal/model"
	"github.com/sandrun/sandrun/internal/pipe"
)

type stubGroup struct{ added []int }

func (g *stubGroup) SetOSLimit(model.OSLimitKind, uint64) (bool, error) { return false, nil }
func (g *stubGroup) AddProcess(pid int) error                           { g.added = append(g.added, pid); return nil }
func (g *stubGroup) Terminate() error                                   { return nil }
func (g *stubGroup) Memory() (*model.MemoryStat, bool)                  { return nil, false }
func (g *stubGroup) IO() (*model.IOStat, bool)                          { return nil, false }
func (g *stubGroup) Timers() (*model.TimerStat, bool)                  { return nil, false }
func (g *stubGroup) PIDCounters() (*model.PIDStat, bool)                { return nil, false }
func (g *stubGroup) Network() (*model.NetworkStat, bool)                { return nil, false }

func requireUnix(t *testing.T) {
	t.Helper()
}

func TestSpawnInGroupNaturalExit(t *testing.T) {
	requireUnix(t)

	stdout, stdoutW, err := pipe.Create()
	if err != nil {
		t.Fatalf("pipe.Create: %v", err)
	}
	defer stdout.Close()

	stdin, err := pipe.NullRead()
	if err != nil {
		t.Fatalf("NullRead: %v", err)
	}
	defer stdin.Close()
	stderr, err := pipe.NullWrite()
	if err != nil {
		t.Fatalf("NullWrite: %v", err)
	}
	defer stderr.Close()

	g := &stubGroup{}
	p, err := SpawnInGroup(Info{Path: "/bin/echo", Args: []string{"hello"}}, Stdio{
		Stdin: stdin, Stdout: stdoutW, Stderr: stderr,
	}, g)
	if err != nil {
		t.Fatalf("SpawnInGroup: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if status, ok := p.ExitStatus(); ok {
			if status.Code == nil || *status.Code != 0 {
				t.Fatalf("expected exit code 0, got %+v", status)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("process did not report exit status in time")
}
