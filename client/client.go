// Package client is the Signal Fish client runtime. Start hands a
// connected transport to a background engine and returns a Client handle
// plus the channel of events the engine produces.
//
// Every command method queues the command and returns at once; there is no
// round trip. Results arrive later as events.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/risa-org/signalfish/metrics"
	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/session"
	"github.com/risa-org/signalfish/transport"
	"github.com/risa-org/signalfish/transport/sender"
)

// Client is the handle application code talks to. Its methods are safe for
// concurrent use.
type Client struct {
	state   *session.State
	outbox  *outbox
	done    <-chan struct{}
	cancel  context.CancelFunc
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Collector

	shutdown     chan struct{}
	shutdownOnce sync.Once
	shutdownErr  error
}

// Room is a consistent view of the room the client is in.
type Room struct {
	ID       protocol.RoomID
	Code     string
	PlayerID protocol.PlayerID // the spectator ID when spectating
}

// Start runs an engine over adapter and returns its handle and event
// channel. Authenticate is queued before anything else, so it is the first
// frame the transport sends. The channel is closed after the engine stops.
//
// The engine owns adapter from here on. A Client that becomes unreachable
// without Shutdown or Close has its engine cancelled by the runtime. After
// Close the engine finishes on its own even if the Client is dropped.
func Start(adapter transport.Adapter, cfg Config) (*Client, <-chan Event) {
	cfg = cfg.normalize()
	ctx, cancel := context.WithCancel(context.Background())

	e := &engine{
		adapter:  adapter,
		sender:   sender.New(adapter),
		state:    session.New(),
		outbox:   newOutbox(),
		events:   make(chan Event, cfg.EventChannelCapacity),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		tracer:   cfg.Tracer,
	}
	e.outbox.push(cfg.authenticate())

	c := &Client{
		state:    e.state,
		outbox:   e.outbox,
		done:     e.done,
		cancel:   cancel,
		timeout:  cfg.ShutdownTimeout,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		shutdown: make(chan struct{}),
	}
	e.shutdown = c.shutdown

	// Close already started the graceful path; let the flush finish
	runtime.AddCleanup(c, func(queue *outbox) {
		if !queue.isClosed() {
			cancel()
		}
	}, e.outbox)

	go e.run(ctx)
	return c, e.events
}

// JoinRoom joins or creates a room.
func (c *Client) JoinRoom(params JoinRoomParams) error {
	return c.send(params.command())
}

func (c *Client) LeaveRoom() error {
	return c.send(protocol.LeaveRoom{})
}

// SendGameData relays data to the other players in the room. data must be
// valid JSON; if it is not, the engine logs and discards the command.
func (c *Client) SendGameData(data json.RawMessage) error {
	return c.send(protocol.SendGameData{Data: data})
}

// SetReady marks the player ready in the lobby.
func (c *Client) SetReady() error {
	return c.send(protocol.PlayerReady{})
}

// RequestAuthority asks to become, or stop being, the room authority.
func (c *Client) RequestAuthority(become bool) error {
	return c.send(protocol.AuthorityRequest{BecomeAuthority: become})
}

func (c *Client) ProvideConnectionInfo(info protocol.ConnectionInfo) error {
	return c.send(protocol.ProvideConnectionInfo{ConnectionInfo: info})
}

// Reconnect reclaims a seat in a room after a dropped connection.
func (c *Client) Reconnect(playerID protocol.PlayerID, roomID protocol.RoomID, authToken string) error {
	return c.send(protocol.Reconnect{PlayerID: playerID, RoomID: roomID, AuthToken: authToken})
}

func (c *Client) JoinAsSpectator(gameName, roomCode, spectatorName string) error {
	return c.send(protocol.JoinAsSpectator{
		GameName:      gameName,
		RoomCode:      roomCode,
		SpectatorName: spectatorName,
	})
}

func (c *Client) LeaveSpectator() error {
	return c.send(protocol.LeaveSpectator{})
}

func (c *Client) Ping() error {
	return c.send(protocol.Ping{})
}

func (c *Client) send(msg protocol.ClientMessage) error {
	if !c.state.Connected() {
		return ErrNotConnected
	}
	if !c.outbox.push(msg) {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the engine is still running.
func (c *Client) IsConnected() bool { return c.state.Connected() }

// IsAuthenticated reports whether the server accepted the app ID.
func (c *Client) IsAuthenticated() bool { return c.state.Authenticated() }

func (c *Client) CurrentRoomID() (protocol.RoomID, bool) { return c.state.RoomID() }

func (c *Client) CurrentPlayerID() (protocol.PlayerID, bool) { return c.state.PlayerID() }

func (c *Client) CurrentRoomCode() (string, bool) { return c.state.RoomCode() }

// State returns a snapshot of the connection state.
func (c *Client) State() session.Snapshot { return c.state.Snapshot() }

// Room returns the current room or ErrNotInRoom.
func (c *Client) Room() (Room, error) {
	snap := c.state.Snapshot()
	if snap.RoomID == nil || snap.RoomCode == nil {
		return Room{}, ErrNotInRoom
	}
	room := Room{ID: *snap.RoomID, Code: *snap.RoomCode}
	if snap.PlayerID != nil {
		room.PlayerID = *snap.PlayerID
	}
	return room, nil
}

// Done is closed when the engine has stopped.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close stops accepting commands and returns without waiting. The engine
// sends everything already queued, closes the transport and emits
// Disconnected with reason "client shut down". This holds even if the
// Client is dropped right after Close; only Shutdown bounds the flush.
func (c *Client) Close() error {
	c.outbox.close()
	return nil
}

// Shutdown asks the engine to close the transport and waits for it to stop.
// If the engine has not stopped after the configured shutdown timeout, or
// when ctx ends first, it is cancelled; Shutdown then returns
// transport.ErrTimeout or ctx's error. A zero shutdown timeout cancels the
// engine straight away and returns nil.
//
// Calls after the first return the first call's result.
func (c *Client) Shutdown(ctx context.Context) error {
	c.shutdownOnce.Do(func() {
		c.shutdownErr = c.stop(ctx)
	})
	return c.shutdownErr
}

func (c *Client) stop(ctx context.Context) error {
	start := time.Now()
	defer func() {
		c.state.MarkDisconnected()
		c.metrics.ShutdownTook(time.Since(start))
	}()
	c.logger.Debug("shutdown requested", "timeout", c.timeout)

	if c.timeout <= 0 {
		c.cancel()
		<-c.done
		return nil
	}

	close(c.shutdown)
	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	var err error
	select {
	case <-c.done:
		c.cancel()
		return nil
	case <-timer.C:
		c.logger.Warn("engine did not stop within the shutdown timeout, cancelling")
		err = transport.ErrTimeout
	case <-ctx.Done():
		err = ctx.Err()
	}
	c.cancel()
	<-c.done
	return err
}

func (c *Client) running() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

func (c *Client) String() string {
	return fmt.Sprintf("Client{connected: %t, authenticated: %t, running: %t}",
		c.IsConnected(), c.IsAuthenticated(), c.running())
}
