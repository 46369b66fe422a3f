// Package tcp carries protocol text frames over a raw TCP stream.
package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/risa-org/signalfish/transport"
)

// DefaultMaxFrame bounds the size of a single frame in either direction.
const DefaultMaxFrame = 1 << 20

// ErrFrameTooLarge is returned by Send for text longer than the frame limit.
// Nothing is written and the connection stays usable.
var ErrFrameTooLarge = errors.New("tcp: frame exceeds the size limit")

// Adapter implements transport.Adapter over a raw TCP connection.
//
// Wire format for each message:
//
//	[4 bytes: text length uint32 big-endian][N bytes: UTF-8 JSON text]
//
// TCP is a stream protocol with no message boundaries, so every frame
// carries its own length.
type Adapter struct {
	conn       net.Conn
	incoming   chan string
	disconnect chan transport.DisconnectEvent
	done       chan struct{} // closed by Close, stops the read loop
	closing    atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	writeMu    sync.Mutex // one writer at a time
	maxFrame   uint32
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxFrame overrides DefaultMaxFrame. Larger inbound frames end the
// stream with a network error; larger outbound frames are refused.
func WithMaxFrame(n uint32) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxFrame = n
		}
	}
}

// New wraps an existing net.Conn in a transport Adapter.
// The conn must already be established. A read loop starts immediately.
func New(conn net.Conn, opts ...Option) *Adapter {
	a := &Adapter{
		conn:       conn,
		incoming:   make(chan string, 64),
		disconnect: make(chan transport.DisconnectEvent, 1),
		done:       make(chan struct{}),
		maxFrame:   DefaultMaxFrame,
	}
	for _, opt := range opts {
		opt(a)
	}

	go a.readLoop()

	return a
}

// Dial connects to addr and wraps the connection. A ctx deadline that
// expires before the connection is made yields transport.ErrTimeout.
func Dial(ctx context.Context, addr string, opts ...Option) (*Adapter, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("dial %s: %w", addr, transport.ErrTimeout)
		}
		return nil, &transport.IOError{Op: "dial", Addr: addr, Err: err}
	}
	return New(conn, opts...), nil
}

// Send writes one length-prefixed frame. Cancelling ctx interrupts a
// blocked write by expiring the connection's write deadline.
func (a *Adapter) Send(ctx context.Context, text string) error {
	if a.closing.Load() {
		return transport.ErrTransportClosed
	}
	if uint64(len(text)) > uint64(a.maxFrame) {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, len(text), a.maxFrame)
	}

	frame := make([]byte, 4+len(text))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(text)))
	copy(frame[4:], text)

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		a.conn.SetWriteDeadline(time.Now())
	})
	_, err := a.conn.Write(frame)
	if !stop() {
		// the deadline may have been poisoned; clear it for the next writer
		a.conn.SetWriteDeadline(time.Time{})
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if a.closing.Load() || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return transport.ErrTransportClosed
		}
		return err
	}
	return nil
}

// Receive returns the channel of incoming frames.
// The channel is closed when the connection closes.
func (a *Adapter) Receive() <-chan string {
	return a.incoming
}

// Disconnected returns a channel that emits exactly one event when
// the connection closes, for any reason.
func (a *Adapter) Disconnected() <-chan transport.DisconnectEvent {
	return a.disconnect
}

// Close shuts down the TCP connection.
// Safe to call multiple times; cleanup runs exactly once.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closing.Store(true)
		close(a.done)
		a.closeErr = a.conn.Close()
	})
	return a.closeErr
}

// readLoop reads frames until the connection ends, then signals the
// disconnect and closes the incoming channel, in that order.
func (a *Adapter) readLoop() {
	var endErr error
	defer func() {
		a.signalDisconnect(endErr)
		close(a.incoming)
		a.Close()
	}()

	var lenBuf [4]byte
	for {
		if _, err := io.ReadFull(a.conn, lenBuf[:]); err != nil {
			endErr = err
			return
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		if n > a.maxFrame {
			endErr = fmt.Errorf("frame of %d bytes exceeds limit of %d", n, a.maxFrame)
			return
		}

		payload := make([]byte, n)
		if _, err := io.ReadFull(a.conn, payload); err != nil {
			endErr = err
			return
		}

		select {
		case a.incoming <- string(payload):
		case <-a.done:
			return
		}
	}
}

// signalDisconnect figures out the reason for disconnection and
// sends exactly one event on the disconnect channel.
func (a *Adapter) signalDisconnect(err error) {
	event := transport.DisconnectEvent{}

	switch {
	case err == nil, err == io.EOF, a.closing.Load():
		// EOF means the remote side closed cleanly; closing means we did
		event.Reason = transport.ReasonClosedClean
	case isTimeout(err):
		event.Reason = transport.ReasonTimeout
		event.Err = err
	default:
		event.Reason = transport.ReasonNetworkError
		event.Err = err
	}

	select {
	case a.disconnect <- event:
	default:
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
