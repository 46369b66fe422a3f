// Package gorilla carries protocol text frames over a WebSocket connection
// using github.com/gorilla/websocket. It is interchangeable with package
// websocket; pick whichever library the rest of your program already uses.
package gorilla

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/risa-org/signalfish/transport"
)

const (
	// DefaultReadLimit bounds the size of a single inbound message.
	DefaultReadLimit = 1 << 20

	// closeGrace is how long Close waits for the peer to answer the close frame.
	closeGrace = time.Second
)

// Adapter implements transport.Adapter over a gorilla WebSocket connection.
type Adapter struct {
	conn       *websocket.Conn
	incoming   chan string
	disconnect chan transport.DisconnectEvent
	done       chan struct{} // closed when Close starts
	readDone   chan struct{} // closed when the read loop has finished
	closing    atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	writeMu    sync.Mutex // gorilla allows one concurrent writer
	logger     *slog.Logger
}

type config struct {
	logger    *slog.Logger
	readLimit int64
	dialer    *websocket.Dialer
	header    http.Header
}

// Option configures an Adapter.
type Option func(*config)

func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithReadLimit(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithDialer replaces websocket.DefaultDialer. Ignored by New.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *config) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithHeader adds request headers to the opening handshake. Ignored by New.
func WithHeader(h http.Header) Option {
	return func(c *config) { c.header = h }
}

func newConfig(opts []Option) config {
	c := config{
		logger:    slog.Default(),
		readLimit: DefaultReadLimit,
		dialer:    websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// New wraps an established connection and starts its read loop.
func New(conn *websocket.Conn, opts ...Option) *Adapter {
	return newAdapter(conn, newConfig(opts))
}

func newAdapter(conn *websocket.Conn, cfg config) *Adapter {
	conn.SetReadLimit(cfg.readLimit)
	a := &Adapter{
		conn:       conn,
		incoming:   make(chan string, 64),
		disconnect: make(chan transport.DisconnectEvent, 1),
		done:       make(chan struct{}),
		readDone:   make(chan struct{}),
		logger:     cfg.logger,
	}
	go a.readLoop()
	return a
}

// Dial opens a WebSocket connection to url ("ws://" or "wss://").
// A ctx deadline that expires first yields transport.ErrTimeout.
func Dial(ctx context.Context, url string, opts ...Option) (*Adapter, error) {
	cfg := newConfig(opts)
	conn, resp, err := cfg.dialer.DialContext(ctx, url, cfg.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("dial %s: %w", url, transport.ErrTimeout)
		}
		return nil, &transport.IOError{Op: "dial", Addr: url, Err: err}
	}
	return newAdapter(conn, cfg), nil
}

func (a *Adapter) Send(ctx context.Context, text string) error {
	if a.closing.Load() {
		return transport.ErrTransportClosed
	}

	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		a.conn.SetWriteDeadline(deadline)
	} else {
		a.conn.SetWriteDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() {
		a.conn.SetWriteDeadline(time.Now())
	})
	err := a.conn.WriteMessage(websocket.TextMessage, []byte(text))
	stop()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if a.closing.Load() || errors.Is(err, websocket.ErrCloseSent) || errors.Is(err, net.ErrClosed) {
			return transport.ErrTransportClosed
		}
		return err
	}
	return nil
}

func (a *Adapter) Receive() <-chan string {
	return a.incoming
}

func (a *Adapter) Disconnected() <-chan transport.DisconnectEvent {
	return a.disconnect
}

// Close sends a normal-closure frame, waits briefly for the peer's answer,
// then closes the socket.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closing.Store(true)
		close(a.done)

		a.writeMu.Lock()
		werr := a.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGrace),
		)
		a.writeMu.Unlock()

		if werr == nil {
			select {
			case <-a.readDone:
			case <-time.After(closeGrace):
				a.logger.Debug("gorilla: peer did not answer close frame")
			}
		}
		a.closeErr = a.conn.Close()
		if errors.Is(a.closeErr, net.ErrClosed) {
			a.closeErr = nil
		}
	})
	return a.closeErr
}

func (a *Adapter) readLoop() {
	var endErr error
	defer func() {
		a.signalDisconnect(endErr)
		close(a.incoming)
		close(a.readDone)
		a.Close()
	}()

	for {
		typ, data, err := a.conn.ReadMessage()
		if err != nil {
			endErr = err
			return
		}
		if typ != websocket.TextMessage {
			a.logger.Debug("gorilla: skipping non-text message", "bytes", len(data))
			continue
		}
		select {
		case a.incoming <- string(data):
		case <-a.done:
			return
		}
	}
}

func (a *Adapter) signalDisconnect(err error) {
	event := transport.DisconnectEvent{}

	switch {
	case err == nil,
		a.closing.Load(),
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		event.Reason = transport.ReasonClosedClean
	default:
		event.Reason = transport.ReasonNetworkError
		event.Err = err
	}

	select {
	case a.disconnect <- event:
	default:
	}
}
