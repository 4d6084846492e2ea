package msgchan

import (
	"testing"

	"github.com/sandrun/sandrun/internal/model"
)

func TestFIFOOrdering(t *testing.T) {
	c := New()
	c.Send(model.Suspend)
	c.Send(model.Resume)
	c.Send(model.ResetTime)

	want := []model.RunnerMessage{model.Suspend, model.Resume, model.ResetTime}
	for i, w := range want {
		got, ok := c.TryRecv()
		if !ok || got != w {
			t.Fatalf("message %d: got %v ok=%v, want %v", i, got, ok, w)
		}
	}
	if _, ok := c.TryRecv(); ok {
		t.Fatalf("expected empty channel after draining all sent messages")
	}
}

func TestTryRecvNonBlockingOnEmpty(t *testing.T) {
	c := New()
	if _, ok := c.TryRecv(); ok {
		t.Fatalf("expected TryRecv on empty channel to return immediately with ok=false")
	}
}
