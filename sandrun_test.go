//go:build !windows

package sandrun

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"
)

func TestNaturalExitWithStdoutCapture(t *testing.T) {
	stdoutR, stdoutW, err := CreatePipe()
	if err != nil {
		t.Fatalf("CreatePipe: %v", err)
	}
	defer stdoutR.Close()

	prog := NewSpawnedProgram(ProcessInfo{Path: "/bin/echo", Args: []string{"hello"}}).
		WithMonitorInterval(2 * time.Millisecond).
		WithStdio(Stdio{Stdout: stdoutW})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var buf bytes.Buffer
	copyDone := make(chan struct{})
	go func() {
		_, _ = io.Copy(&buf, stdoutR)
		close(copyDone)
	}()

	results := Spawn(ctx, []*SpawnedProgram{prog}).Wait()
	<-copyDone

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	r := results[0]
	if r.Err != nil {
		t.Fatalf("unexpected error: %v", r.Err)
	}
	if r.Report.TerminationReason != "" {
		t.Fatalf("expected natural exit, got %v", r.Report.TerminationReason)
	}
	if got := buf.String(); got != "hello\n" {
		t.Fatalf("stdout = %q, want %q", got, "hello\n")
	}
}

func TestExternalTerminateViaRunnerSender(t *testing.T) {
	prog := NewSpawnedProgram(ProcessInfo{Path: "/bin/sleep", Args: []string{"10"}}).
		WithMonitorInterval(5 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	s := Spawn(ctx, []*SpawnedProgram{prog})
	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Runners()[0].Sender().Send(Terminate)
	}()

	results := s.Wait()
	if results[0].Report.TerminationReason != TerminatedByRunner {
		t.Fatalf("expected TerminatedByRunner, got %v", results[0].Report.TerminationReason)
	}
}
