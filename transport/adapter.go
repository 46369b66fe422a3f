package transport

import (
	"context"
	"errors"
)

// ErrTransportClosed is returned when you try to send on a closed transport.
var ErrTransportClosed = errors.New("transport closed")

// ErrTimeout is returned when an operation ran past its deadline: dialing,
// or a client shutdown whose grace period expired.
var ErrTimeout = errors.New("operation timed out")

// DisconnectReason tells the client why a transport closed.
type DisconnectReason int

const (
	ReasonUnknown      DisconnectReason = iota // catch-all, should be rare
	ReasonNetworkError                         // underlying connection failed
	ReasonTimeout                              // no activity within deadline
	ReasonClosedClean                          // graceful shutdown by either side
)

func (r DisconnectReason) String() string {
	switch r {
	case ReasonNetworkError:
		return "network error"
	case ReasonTimeout:
		return "timeout"
	case ReasonClosedClean:
		return "closed clean"
	}
	return "unknown"
}

// DisconnectEvent is sent on the channel returned by Disconnected().
// It bundles the reason with an optional error for debugging.
type DisconnectEvent struct {
	Reason DisconnectReason
	Err    error // nil on clean close, populated on errors
}

// Clean reports whether the stream ended without a fault.
func (e DisconnectEvent) Clean() bool {
	return e.Reason == ReasonClosedClean
}

// Cause returns the error behind an unclean disconnect, or nil for a
// clean one. Adapters that leave Err empty get a generic error naming the
// reason.
func (e DisconnectEvent) Cause() error {
	if e.Clean() {
		return nil
	}
	if e.Err != nil {
		return e.Err
	}
	return errors.New(e.Reason.String())
}

// Adapter is the contract every transport must satisfy.
// The client only ever talks to this interface. It never imports tcp,
// websocket, or anything concrete.
//
// Each value moved through an adapter is one complete text frame holding
// one JSON protocol message.
type Adapter interface {
	// Send delivers one text frame to the remote side.
	// Returns ErrTransportClosed if the transport is no longer active; any
	// other failure also means the transport is unusable for further sends.
	// Cancelling ctx abandons a blocked write.
	Send(ctx context.Context, text string) error

	// Receive returns a channel that emits incoming frames in arrival order.
	// The channel is closed when the stream ends. Abandoning a receive on it
	// never loses or duplicates a frame.
	Receive() <-chan string

	// Disconnected returns a buffered channel that receives exactly one
	// DisconnectEvent, published before Receive's channel is closed.
	Disconnected() <-chan DisconnectEvent

	// Close shuts down the transport, attempting a graceful close handshake.
	// Resources are released even when the handshake fails.
	// Safe to call multiple times; subsequent calls are no-ops.
	Close() error
}

// EndOfStream reads the event that accompanies a closed Receive channel.
// Call it only after Receive's channel was observed closed. A nil error
// means the peer closed cleanly.
func EndOfStream(a Adapter) error {
	select {
	case ev := <-a.Disconnected():
		return ev.Cause()
	default:
		// adapter broke the contract; treat it as an unexplained fault
		return DisconnectEvent{Reason: ReasonUnknown}.Cause()
	}
}
