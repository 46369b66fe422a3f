// Package loopback is an in-process transport. The client side is a
// transport.Adapter; the other end is a Peer that plays the server in
// tests, examples, and local tooling.
package loopback

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/risa-org/signalfish/transport"
)

const defaultBuffer = 64

type options struct {
	buffer int
}

// Option configures a pair.
type Option func(*options)

// WithBuffer sets how many frames each direction holds before the sender
// blocks. Zero makes both directions fully synchronous.
func WithBuffer(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.buffer = n
		}
	}
}

// Adapter is the client end of a loopback pair.
type Adapter struct {
	toPeer     chan string
	incoming   chan string
	disconnect chan transport.DisconnectEvent
	done       chan struct{}

	endOnce sync.Once
	mu      sync.Mutex // guards closed and sends on incoming
	closed  bool

	hookMu   sync.Mutex // guards hold and closeErr
	hold     chan struct{}
	closeErr error

	sendErr    atomic.Pointer[error]
	closeCalls atomic.Int32
}

// Peer is the server end of a loopback pair.
type Peer struct {
	a *Adapter
}

// Pair returns a connected client adapter and the peer that drives it.
func Pair(opts ...Option) (*Adapter, *Peer) {
	o := options{buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&o)
	}
	a := &Adapter{
		toPeer:     make(chan string, o.buffer),
		incoming:   make(chan string, o.buffer),
		disconnect: make(chan transport.DisconnectEvent, 1),
		done:       make(chan struct{}),
	}
	return a, &Peer{a: a}
}

// Send hands a frame to the peer.
func (a *Adapter) Send(ctx context.Context, text string) error {
	if errp := a.sendErr.Load(); errp != nil {
		return *errp
	}
	select {
	case <-a.done:
		return transport.ErrTransportClosed
	default:
	}
	select {
	case a.toPeer <- text:
		return nil
	case <-a.done:
		return transport.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Adapter) Receive() <-chan string {
	return a.incoming
}

func (a *Adapter) Disconnected() <-chan transport.DisconnectEvent {
	return a.disconnect
}

// Close ends the stream cleanly. It blocks while the peer holds closes.
func (a *Adapter) Close() error {
	a.closeCalls.Add(1)
	a.hookMu.Lock()
	hold, err := a.hold, a.closeErr
	a.hookMu.Unlock()
	if hold != nil {
		<-hold
	}
	a.end(transport.DisconnectEvent{Reason: transport.ReasonClosedClean})
	return err
}

// end publishes the disconnect event, then closes the inbound stream.
func (a *Adapter) end(event transport.DisconnectEvent) {
	a.endOnce.Do(func() {
		a.disconnect <- event
		close(a.done)

		a.mu.Lock()
		a.closed = true
		close(a.incoming)
		a.mu.Unlock()
	})
}

// Send delivers a frame to the client. It returns
// transport.ErrTransportClosed once the stream has ended.
func (p *Peer) Send(ctx context.Context, text string) error {
	a := p.a
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return transport.ErrTransportClosed
	}
	select {
	case a.incoming <- text:
		return nil
	case <-a.done:
		return transport.ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the frames the client sent, in order.
func (p *Peer) Receive() <-chan string {
	return p.a.toPeer
}

// Next waits for the next frame from the client.
func (p *Peer) Next(ctx context.Context) (string, error) {
	select {
	case text := <-p.a.toPeer:
		return text, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// CloseClean ends the stream as if the server closed the connection
// gracefully.
func (p *Peer) CloseClean() {
	p.a.end(transport.DisconnectEvent{Reason: transport.ReasonClosedClean})
}

// Fail ends the stream with a receive fault.
func (p *Peer) Fail(err error) {
	p.a.end(transport.DisconnectEvent{Reason: transport.ReasonNetworkError, Err: err})
}

// FailSends makes every later client Send return err.
func (p *Peer) FailSends(err error) {
	p.a.sendErr.Store(&err)
}

// FailClose makes the client's Close report err. The stream still ends.
func (p *Peer) FailClose(err error) {
	p.a.hookMu.Lock()
	p.a.closeErr = err
	p.a.hookMu.Unlock()
}

// HoldClose makes client Close calls block until the returned release
// function is called.
func (p *Peer) HoldClose() (release func()) {
	gate := make(chan struct{})
	p.a.hookMu.Lock()
	p.a.hold = gate
	p.a.hookMu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

// Done is closed once the stream has ended, from either side.
func (p *Peer) Done() <-chan struct{} {
	return p.a.done
}

// CloseCalls reports how many times the client called Close.
func (p *Peer) CloseCalls() int {
	return int(p.a.closeCalls.Load())
}
