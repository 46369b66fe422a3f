package tcp

import (
	"context"
	"encoding/binary"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/risa-org/signalfish/transport"
)

var _ transport.Adapter = (*Adapter)(nil)

// dialPair creates two connected TCP adapters, client and server.
// Uses net.Pipe() which gives us an in-memory TCP-like connection,
// no actual network ports needed.
func dialPair(t *testing.T, opts ...Option) (*Adapter, *Adapter) {
	t.Helper()
	server, client := net.Pipe()
	return New(server, opts...), New(client, opts...)
}

func TestSendAndReceive(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()
	defer client.Close()

	err := client.Send(context.Background(), `{"type":"Ping"}`)
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case text := <-server.Receive():
		if text != `{"type":"Ping"}` {
			t.Errorf("unexpected frame %q", text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestMultipleMessages(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()
	defer client.Close()

	frames := []string{"one", "", "three", strings.Repeat("x", 70000)}
	go func() {
		for _, f := range frames {
			if err := client.Send(context.Background(), f); err != nil {
				t.Errorf("Send %q failed: %v", f[:min(len(f), 8)], err)
				return
			}
		}
	}()

	for i, want := range frames {
		select {
		case got := <-server.Receive():
			if got != want {
				t.Errorf("frame %d: expected %d bytes, got %d", i, len(want), len(got))
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for frame %d", i)
		}
	}
}

func TestDisconnectSignal(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	// close client, server should detect this
	client.Close()

	select {
	case event := <-server.Disconnected():
		if event.Reason != transport.ReasonClosedClean {
			t.Errorf("expected ReasonClosedClean, got %v", event.Reason)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect signal")
	}

	// event comes first, then the stream closes
	select {
	case _, ok := <-server.Receive():
		if ok {
			t.Error("expected closed receive channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("receive channel not closed")
	}
}

func TestLocalCloseIsClean(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	client.Close()
	for range client.Receive() {
	}
	if err := transport.EndOfStream(client); err != nil {
		t.Errorf("local close should be clean, got %v", err)
	}
}

func TestOversizedFrame(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	server := New(serverConn, WithMaxFrame(8))
	defer server.Close()
	defer clientConn.Close()

	go func() {
		var hdr [4]byte
		binary.BigEndian.PutUint32(hdr[:], 9)
		clientConn.Write(hdr[:])
	}()

	select {
	case event := <-server.Disconnected():
		if event.Reason != transport.ReasonNetworkError || event.Err == nil {
			t.Errorf("expected a network error, got %+v", event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for disconnect signal")
	}
}

func TestSendRefusesOversizedFrame(t *testing.T) {
	server, client := dialPair(t, WithMaxFrame(8))
	defer server.Close()
	defer client.Close()

	err := client.Send(context.Background(), "123456789")
	if !errors.Is(err, ErrFrameTooLarge) {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}

	// the refused frame never reached the wire, so the stream is intact
	if err := client.Send(context.Background(), "12345678"); err != nil {
		t.Fatalf("Send at the limit failed: %v", err)
	}
	select {
	case text := <-server.Receive():
		if text != "12345678" {
			t.Errorf("unexpected frame %q", text)
		}
	case event := <-server.Disconnected():
		t.Fatalf("peer disconnected: %+v", event)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	server, client := dialPair(t)
	defer client.Close()
	defer server.Close()

	// closing multiple times should not panic
	server.Close()
	server.Close()
	server.Close()
}

func TestSendOnClosedReturnsError(t *testing.T) {
	server, client := dialPair(t)
	defer server.Close()

	client.Close()

	err := client.Send(context.Background(), "test")
	if !errors.Is(err, transport.ErrTransportClosed) {
		t.Errorf("expected ErrTransportClosed, got %v", err)
	}
}

func TestSendHonoursContext(t *testing.T) {
	// a raw pipe end that nobody reads, so the write blocks
	serverConn, clientConn := net.Pipe()
	defer serverConn.Close()
	client := New(clientConn)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Send(ctx, "blocked")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()

	_, err = Dial(context.Background(), addr)
	var ioErr *transport.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected *transport.IOError, got %v", err)
	}
}

func TestDialAndExchange(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan *Adapter, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- New(conn)
	}()

	client, err := Dial(context.Background(), ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()

	var server *Adapter
	select {
	case server = <-accepted:
		defer server.Close()
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
	}

	if err := server.Send(context.Background(), "welcome"); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-client.Receive():
		if got != "welcome" {
			t.Errorf("got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
}
