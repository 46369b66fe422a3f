package transport

import (
	"context"
	"errors"
	"io"
	"testing"
)

// TestDisconnectReasonConstants checks all reasons are distinct.
// iota bugs (accidentally reordering constants) would break this.
func TestDisconnectReasonConstants(t *testing.T) {
	reasons := []DisconnectReason{
		ReasonUnknown,
		ReasonNetworkError,
		ReasonTimeout,
		ReasonClosedClean,
	}

	seen := make(map[DisconnectReason]bool)
	for _, r := range reasons {
		if seen[r] {
			t.Errorf("duplicate DisconnectReason value: %d", r)
		}
		seen[r] = true
	}
}

func TestDisconnectEventCause(t *testing.T) {
	if err := (DisconnectEvent{Reason: ReasonClosedClean}).Cause(); err != nil {
		t.Errorf("clean close should have no cause, got %v", err)
	}

	event := DisconnectEvent{Reason: ReasonNetworkError, Err: io.ErrUnexpectedEOF}
	if !errors.Is(event.Cause(), io.ErrUnexpectedEOF) {
		t.Errorf("expected the wrapped error, got %v", event.Cause())
	}

	if err := (DisconnectEvent{Reason: ReasonTimeout}).Cause(); err == nil || err.Error() != "timeout" {
		t.Errorf("expected a generic timeout error, got %v", err)
	}
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("broken pipe")

	send := &SendError{Err: cause}
	if send.Error() != "transport send error: broken pipe" {
		t.Errorf("unexpected send error text %q", send.Error())
	}
	if !errors.Is(send, cause) {
		t.Error("SendError should unwrap to its cause")
	}

	recv := &ReceiveError{Err: cause}
	if recv.Error() != "transport receive error: broken pipe" {
		t.Errorf("unexpected receive error text %q", recv.Error())
	}

	dial := &IOError{Op: "dial", Addr: "127.0.0.1:1", Err: cause}
	if dial.Error() != "io error: dial 127.0.0.1:1: broken pipe" || !errors.Is(dial, cause) {
		t.Errorf("unexpected io error %q", dial.Error())
	}
}

// stubAdapter only implements what EndOfStream touches.
type stubAdapter struct {
	disconnect chan DisconnectEvent
}

func (s *stubAdapter) Send(context.Context, string) error   { return nil }
func (s *stubAdapter) Receive() <-chan string               { return nil }
func (s *stubAdapter) Disconnected() <-chan DisconnectEvent { return s.disconnect }
func (s *stubAdapter) Close() error                         { return nil }

func TestEndOfStream(t *testing.T) {
	a := &stubAdapter{disconnect: make(chan DisconnectEvent, 1)}

	a.disconnect <- DisconnectEvent{Reason: ReasonClosedClean}
	if err := EndOfStream(a); err != nil {
		t.Errorf("clean close: expected nil, got %v", err)
	}

	a.disconnect <- DisconnectEvent{Reason: ReasonNetworkError, Err: io.ErrUnexpectedEOF}
	if err := EndOfStream(a); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("network error: got %v", err)
	}

	// nothing published
	if err := EndOfStream(a); err == nil {
		t.Error("missing event should be reported as a fault")
	}
}
