// Package websocket carries protocol text frames over a WebSocket
// connection using nhooyr.io/websocket.
package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/risa-org/signalfish/transport"
	"nhooyr.io/websocket"
)

// DefaultReadLimit bounds the size of a single inbound message.
const DefaultReadLimit = 1 << 20

// Adapter implements transport.Adapter over a WebSocket connection.
// WebSocket already has message boundaries built in, so each protocol
// message is exactly one text message.
type Adapter struct {
	conn       *websocket.Conn
	incoming   chan string
	disconnect chan transport.DisconnectEvent
	closing    atomic.Bool
	closeOnce  sync.Once
	closeErr   error
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *slog.Logger
}

type config struct {
	logger    *slog.Logger
	readLimit int64
	dial      *websocket.DialOptions
}

// Option configures an Adapter.
type Option func(*config)

// WithLogger sets the logger for frame-level diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithReadLimit overrides DefaultReadLimit.
func WithReadLimit(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithDialOptions passes options through to websocket.Dial (headers,
// subprotocols, a custom HTTP client). Ignored by New.
func WithDialOptions(o *websocket.DialOptions) Option {
	return func(c *config) { c.dial = o }
}

func newConfig(opts []Option) config {
	c := config{logger: slog.Default(), readLimit: DefaultReadLimit}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// New wraps an existing *websocket.Conn in a transport Adapter.
func New(conn *websocket.Conn, opts ...Option) *Adapter {
	return newAdapter(conn, newConfig(opts))
}

func newAdapter(conn *websocket.Conn, cfg config) *Adapter {
	conn.SetReadLimit(cfg.readLimit)
	ctx, cancel := context.WithCancel(context.Background())
	a := &Adapter{
		conn:       conn,
		incoming:   make(chan string, 64),
		disconnect: make(chan transport.DisconnectEvent, 1),
		ctx:        ctx,
		cancel:     cancel,
		logger:     cfg.logger,
	}
	go a.readLoop()
	return a
}

// Dial opens a WebSocket connection to url ("ws://" or "wss://").
// A ctx deadline that expires first yields transport.ErrTimeout.
func Dial(ctx context.Context, url string, opts ...Option) (*Adapter, error) {
	cfg := newConfig(opts)
	conn, resp, err := websocket.Dial(ctx, url, cfg.dial)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("dial %s: %w", url, transport.ErrTimeout)
		}
		return nil, &transport.IOError{Op: "dial", Addr: url, Err: err}
	}
	return newAdapter(conn, cfg), nil
}

// DialTimeout is Dial bounded by timeout.
func DialTimeout(url string, timeout time.Duration, opts ...Option) (*Adapter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return Dial(ctx, url, opts...)
}

func (a *Adapter) Send(ctx context.Context, text string) error {
	if a.closing.Load() {
		return transport.ErrTransportClosed
	}
	err := a.conn.Write(ctx, websocket.MessageText, []byte(text))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if a.closing.Load() || errors.Is(err, net.ErrClosed) {
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

// Close performs the close handshake with StatusNormalClosure. The
// connection is torn down even when the handshake fails.
func (a *Adapter) Close() error {
	a.closeOnce.Do(func() {
		a.closing.Store(true)
		a.closeErr = a.conn.Close(websocket.StatusNormalClosure, "")
		a.cancel()
		if websocket.CloseStatus(a.closeErr) == websocket.StatusNormalClosure {
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
		a.Close()
	}()

	for {
		typ, data, err := a.conn.Read(a.ctx)
		if err != nil {
			endErr = err
			return
		}
		if typ != websocket.MessageText {
			a.logger.Debug("websocket: skipping non-text message", "bytes", len(data))
			continue
		}
		select {
		case a.incoming <- string(data):
		case <-a.ctx.Done():
			return
		}
	}
}

// signalDisconnect sends exactly one disconnect event.
// StatusNormalClosure (1000) and StatusGoingAway (1001) are both clean closes;
// different WebSocket implementations and shutdown timing produce either code.
// A close we started ourselves is also clean.
func (a *Adapter) signalDisconnect(err error) {
	event := transport.DisconnectEvent{}

	status := websocket.CloseStatus(err)
	switch {
	case err == nil,
		status == websocket.StatusNormalClosure,
		status == websocket.StatusGoingAway,
		a.closing.Load():
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
