package sender

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/transport"
)

// mockAdapter is a minimal transport.Adapter for testing.
// It records sent frames and can be configured to fail.
type mockAdapter struct {
	sent      []string
	failAfter int // fail on the Nth send, -1 means never fail
	calls     int
}

func newMockAdapter() *mockAdapter {
	return &mockAdapter{failAfter: -1}
}

func (m *mockAdapter) Send(_ context.Context, text string) error {
	m.calls++
	if m.failAfter >= 0 && m.calls > m.failAfter {
		return transport.ErrTransportClosed
	}
	m.sent = append(m.sent, text)
	return nil
}

func (m *mockAdapter) Receive() <-chan string {
	return make(chan string)
}

func (m *mockAdapter) Disconnected() <-chan transport.DisconnectEvent {
	return make(chan transport.DisconnectEvent)
}

func (m *mockAdapter) Close() error { return nil }

// --- Tests ---

func TestSendEncodesOneFrame(t *testing.T) {
	adapter := newMockAdapter()
	s := New(adapter)

	n, err := s.Send(context.Background(), protocol.Ping{})
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if len(adapter.sent) != 1 || adapter.sent[0] != `{"type":"Ping"}` {
		t.Fatalf("unexpected frames %q", adapter.sent)
	}
	if n != len(`{"type":"Ping"}`) {
		t.Errorf("expected %d bytes, got %d", len(`{"type":"Ping"}`), n)
	}
}

func TestSendPreservesOrder(t *testing.T) {
	adapter := newMockAdapter()
	s := New(adapter)

	s.Send(context.Background(), protocol.LeaveRoom{})
	s.Send(context.Background(), protocol.PlayerReady{})
	s.Send(context.Background(), protocol.Ping{})

	want := []string{`{"type":"LeaveRoom"}`, `{"type":"PlayerReady"}`, `{"type":"Ping"}`}
	for i, w := range want {
		if adapter.sent[i] != w {
			t.Errorf("frame %d: expected %s, got %s", i, w, adapter.sent[i])
		}
	}
}

func TestEncodeFailureSendsNothing(t *testing.T) {
	adapter := newMockAdapter()
	s := New(adapter)

	_, err := s.Send(context.Background(), protocol.SendGameData{Data: json.RawMessage(`{oops`)})
	var encErr *protocol.EncodeError
	if !errors.As(err, &encErr) {
		t.Fatalf("expected *protocol.EncodeError, got %v", err)
	}
	if adapter.calls != 0 {
		t.Errorf("transport should not be touched, got %d calls", adapter.calls)
	}
}

func TestTransportFailureIsSendError(t *testing.T) {
	adapter := newMockAdapter()
	adapter.failAfter = 1
	s := New(adapter)

	if _, err := s.Send(context.Background(), protocol.Ping{}); err != nil {
		t.Fatalf("first send should succeed: %v", err)
	}

	_, err := s.Send(context.Background(), protocol.Ping{})
	var sendErr *transport.SendError
	if !errors.As(err, &sendErr) {
		t.Fatalf("expected *transport.SendError, got %v", err)
	}
	if !errors.Is(err, transport.ErrTransportClosed) {
		t.Errorf("expected the cause to be kept, got %v", err)
	}
	if err.Error() != "transport send error: transport closed" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
