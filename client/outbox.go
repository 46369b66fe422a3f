package client

import (
	"sync"

	"github.com/risa-org/signalfish/protocol"
)

// outbox is the unbounded command queue between the handle and the
// engine. Any number of goroutines push; only the engine takes.
type outbox struct {
	mu     sync.Mutex
	queue  []protocol.ClientMessage
	closed bool
	ready  chan struct{} // holds a token while there is something to take
}

func newOutbox() *outbox {
	return &outbox{ready: make(chan struct{}, 1)}
}

// push appends msg. It never blocks and reports false once the queue is
// closed.
func (o *outbox) push(msg protocol.ClientMessage) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return false
	}
	o.queue = append(o.queue, msg)
	o.signal()
	return true
}

// close stops further pushes. Commands already queued can still be taken.
func (o *outbox) close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	o.signal()
}

// Ready receives a token whenever take has something to report.
func (o *outbox) Ready() <-chan struct{} {
	return o.ready
}

// take removes the oldest command. ok is false when the queue is empty;
// drained is true when it is empty and closed.
func (o *outbox) take() (msg protocol.ClientMessage, ok, drained bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.queue) == 0 {
		return nil, false, o.closed
	}
	msg = o.queue[0]
	o.queue[0] = nil
	o.queue = o.queue[1:]
	if len(o.queue) > 0 || o.closed {
		o.signal()
	}
	return msg, true, false
}

func (o *outbox) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *outbox) pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.queue)
}

// signal must be called with mu held.
func (o *outbox) signal() {
	select {
	case o.ready <- struct{}{}:
	default:
	}
}
