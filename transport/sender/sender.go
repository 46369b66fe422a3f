package sender

import (
	"context"

	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/transport"
)

// Sender is the single place where outgoing commands are encoded and
// handed to a transport.
//
// Callers used to do two things and classify the failure themselves:
//
//	text, err := protocol.EncodeClient(msg) // a bad command, keep going
//	err = adapter.Send(ctx, string(text))  // a dead transport, stop
//
// Sender collapses this to one call whose error type says which of the two
// happened:
//
//   - *protocol.EncodeError: the command could not be serialized. Nothing
//     was written and the transport is still usable.
//   - *transport.SendError: the transport rejected the frame and must be
//     treated as unusable.
type Sender struct {
	adapter transport.Adapter
}

// New creates a Sender that delivers commands via adapter.
func New(adapter transport.Adapter) *Sender {
	return &Sender{adapter: adapter}
}

// Send encodes msg and writes it as one text frame. It returns the number
// of bytes written.
func (s *Sender) Send(ctx context.Context, msg protocol.ClientMessage) (int, error) {
	text, err := protocol.EncodeClient(msg)
	if err != nil {
		// nothing left the process
		return 0, err
	}

	if err := s.adapter.Send(ctx, string(text)); err != nil {
		return 0, &transport.SendError{Err: err}
	}

	return len(text), nil
}
