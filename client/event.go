package client

import "github.com/risa-org/signalfish/protocol"

// Event is a value delivered on the client's event channel. It is one of
// Connected, Disconnected, or any protocol.ServerMessage.
//
//	for ev := range events {
//		switch ev := ev.(type) {
//		case client.Connected:
//		case protocol.RoomJoined:
//		case client.Disconnected:
//		}
//	}
type Event interface {
	Type() string
}

// Connected is always the first event. The engine emits it as soon as it
// starts, before the server has answered anything.
type Connected struct{}

func (Connected) Type() string { return "Connected" }

// Disconnected is the last event an engine emits, and it is never dropped.
// An empty Reason means the server closed the connection cleanly.
type Disconnected struct {
	Reason string
	// Err is the transport failure behind the disconnect, if there was one.
	// It is a *transport.SendError or *transport.ReceiveError.
	Err error
}

func (Disconnected) Type() string { return "Disconnected" }

// Clean reports whether the peer closed the connection without a fault.
func (d Disconnected) Clean() bool { return d.Reason == "" }

var (
	_ Event = Connected{}
	_ Event = Disconnected{}
	_ Event = protocol.ServerMessage(nil)
)
