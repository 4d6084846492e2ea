// Package msgchan implements the single-producer single-consumer control
// message queue between an external caller and one Process Monitor.
package msgchan

import "github.com/sandrun/sandrun/internal/model"

// defaultCapacity bounds how many undelivered control messages the channel
// buffers before Send starts dropping the oldest one. Control traffic is
// low-volume (terminate/suspend/resume/reset), so this is generous headroom
// rather than a tuned value.
const defaultCapacity = 64

// Channel is a non-blocking SPSC queue of RunnerMessage. The producer side
// may be cloned and shared freely by external callers; the consumer side is
// owned by exactly one Monitor.
type Channel struct {
	ch chan model.RunnerMessage
}

// New constructs an empty Channel.
func New() *Channel {
	return &Channel{ch: make(chan model.RunnerMessage, defaultCapacity)}
}

// Send enqueues msg without blocking. If the buffer is full, the oldest
// queued message is dropped to make room — a deliberate deviation from a
// blocking SPSC queue, since a control channel must never stall its sender.
func (c *Channel) Send(msg model.RunnerMessage) {
	for {
		select {
		case c.ch <- msg:
			return
		default:
		}
		select {
		case <-c.ch:
		default:
		}
	}
}

// TryRecv polls for the next queued message without blocking.
func (c *Channel) TryRecv() (model.RunnerMessage, bool) {
	select {
	case msg := <-c.ch:
		return msg, true
	default:
		return 0, false
	}
}
