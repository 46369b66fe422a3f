package integration

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/risa-org/signalfish/client"
	"github.com/risa-org/signalfish/metrics"
	"github.com/risa-org/signalfish/protocol"
	"github.com/risa-org/signalfish/transport"
	"github.com/risa-org/signalfish/transport/gorilla"
	tcpadapter "github.com/risa-org/signalfish/transport/tcp"
	wsadapter "github.com/risa-org/signalfish/transport/websocket"
	"nhooyr.io/websocket"
)

const waitFor = 3 * time.Second

// ------------------------------------------------------------
// Backends
// ------------------------------------------------------------

// backend connects a client adapter to a server adapter of the same kind.
type backend struct {
	name string
	pair func(t *testing.T) (clientSide, serverSide transport.Adapter)
}

var backends = []backend{
	{"tcp", tcpPair},
	{"nhooyr", nhooyrPair},
	{"gorilla", gorillaPair},
}

func tcpPair(t *testing.T) (transport.Adapter, transport.Adapter) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	c, err := tcpadapter.Dial(ctx, ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case conn := <-accepted:
		return c, tcpadapter.New(conn)
	case <-time.After(waitFor):
		t.Fatal("server never accepted")
		return nil, nil
	}
}

func nhooyrPair(t *testing.T) (transport.Adapter, transport.Adapter) {
	t.Helper()
	conns := make(chan *websocket.Conn, 1)
	stop := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			t.Errorf("accept: %v", err)
			return
		}
		conns <- conn
		<-stop
	}))
	t.Cleanup(func() {
		close(stop)
		srv.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	c, err := wsadapter.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case conn := <-conns:
		return c, wsadapter.New(conn)
	case <-time.After(waitFor):
		t.Fatal("server never accepted")
		return nil, nil
	}
}

func gorillaPair(t *testing.T) (transport.Adapter, transport.Adapter) {
	t.Helper()
	upgrader := gorillaws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	conns := make(chan *gorillaws.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		conns <- conn
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	c, err := gorilla.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	select {
	case conn := <-conns:
		return c, gorilla.New(conn)
	case <-time.After(waitFor):
		t.Fatal("server never upgraded")
		return nil, nil
	}
}

// ------------------------------------------------------------
// Scripted server
// ------------------------------------------------------------

// server is a minimal signaling server written against transport.Adapter.
type server struct {
	t        *testing.T
	adapter  transport.Adapter
	playerID uuid.UUID
	roomID   uuid.UUID
	received chan protocol.ClientMessage
}

func newServer(t *testing.T, adapter transport.Adapter) *server {
	s := &server{
		t:        t,
		adapter:  adapter,
		playerID: uuid.New(),
		roomID:   uuid.New(),
		received: make(chan protocol.ClientMessage, 64),
	}
	go s.serve()
	return s
}

func (s *server) send(msg protocol.ServerMessage) {
	b, err := protocol.EncodeServer(msg)
	if err != nil {
		s.t.Errorf("encode %s: %v", msg.Type(), err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	s.adapter.Send(ctx, string(b))
}

func (s *server) serve() {
	for text := range s.adapter.Receive() {
		msg, err := protocol.DecodeClient([]byte(text))
		if err != nil {
			s.t.Errorf("server got an undecodable frame %q: %v", text, err)
			continue
		}
		s.received <- msg

		switch m := msg.(type) {
		case protocol.Authenticate:
			s.send(protocol.Authenticated{
				AppName:    "Integration",
				RateLimits: protocol.RateLimitInfo{PerMinute: 60, PerHour: 3600, PerDay: 86400},
			})
		case protocol.JoinRoom:
			s.send(protocol.RoomJoined{RoomDetails: protocol.RoomDetails{
				RoomID:     s.roomID,
				RoomCode:   "INT001",
				PlayerID:   s.playerID,
				GameName:   m.GameName,
				MaxPlayers: 2,
				LobbyState: protocol.LobbyWaiting,
				RelayType:  "auto",
			}})
		case protocol.PlayerReady:
			s.send(protocol.LobbyStateChanged{
				LobbyState:   protocol.LobbyFinalized,
				ReadyPlayers: protocol.List[protocol.PlayerID]{s.playerID},
				AllReady:     true,
			})
			s.send(protocol.GameStarting{PeerConnections: protocol.List[protocol.PeerConnectionInfo]{{
				PlayerID:   s.playerID,
				PlayerName: "Alice",
				RelayType:  "auto",
			}}})
		case protocol.SendGameData:
			s.send(protocol.GameData{FromPlayer: s.playerID, Data: m.Data})
		case protocol.Ping:
			s.send(protocol.Pong{})
		case protocol.LeaveRoom:
			s.send(protocol.RoomLeft{})
		}
	}
}

// ------------------------------------------------------------
// Helpers
// ------------------------------------------------------------

func quietConfig() client.Config {
	return client.NewConfig("mb_app_integration").WithLogger(slog.New(slog.DiscardHandler))
}

func expect[T client.Event](t *testing.T, events <-chan client.Event) T {
	t.Helper()
	deadline := time.After(waitFor)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				var want T
				t.Fatalf("event channel closed while waiting for %T", want)
			}
			if got, ok := ev.(T); ok {
				return got
			}
			if d, ok := ev.(client.Disconnected); ok {
				var want T
				t.Fatalf("disconnected (%q) while waiting for %T", d.Reason, want)
			}
		case <-deadline:
			var want T
			t.Fatalf("timed out waiting for %T", want)
		}
	}
}

func waitDisconnect(t *testing.T, adapter transport.Adapter) transport.DisconnectEvent {
	t.Helper()
	select {
	case ev := <-adapter.Disconnected():
		return ev
	case <-time.After(waitFor):
		t.Fatal("server never saw the disconnect")
		return transport.DisconnectEvent{}
	}
}

// ------------------------------------------------------------
// Tests
// ------------------------------------------------------------

func TestLobbyLifecycle(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			clientSide, serverSide := b.pair(t)
			srv := newServer(t, serverSide)
			defer serverSide.Close()

			reg := prometheus.NewRegistry()
			cfg := quietConfig().WithMetrics(metrics.New(metrics.WithRegistry(reg)))
			c, events := client.Start(clientSide, cfg)

			expect[client.Connected](t, events)
			expect[protocol.Authenticated](t, events)
			if !c.IsAuthenticated() {
				t.Error("expected the client to be authenticated")
			}

			if err := c.JoinRoom(client.NewJoinRoomParams("integration", "Alice").WithMaxPlayers(2)); err != nil {
				t.Fatal(err)
			}
			joined := expect[protocol.RoomJoined](t, events)
			if joined.RoomCode != "INT001" {
				t.Errorf("unexpected room code %q", joined.RoomCode)
			}
			room, err := c.Room()
			if err != nil || room.ID != srv.roomID || room.PlayerID != srv.playerID {
				t.Errorf("unexpected room %+v (%v)", room, err)
			}

			c.SetReady()
			lobby := expect[protocol.LobbyStateChanged](t, events)
			if !lobby.AllReady || lobby.LobbyState != protocol.LobbyFinalized {
				t.Errorf("unexpected lobby state %+v", lobby)
			}
			starting := expect[protocol.GameStarting](t, events)
			if len(starting.PeerConnections) != 1 {
				t.Errorf("expected one peer, got %d", len(starting.PeerConnections))
			}

			c.LeaveRoom()
			expect[protocol.RoomLeft](t, events)
			if _, err := c.Room(); err != client.ErrNotInRoom {
				t.Errorf("expected ErrNotInRoom, got %v", err)
			}

			if err := c.Shutdown(context.Background()); err != nil {
				t.Fatalf("shutdown: %v", err)
			}
			d := expect[client.Disconnected](t, events)
			if d.Reason != "client shut down" {
				t.Errorf("unexpected reason %q", d.Reason)
			}
			if ev := waitDisconnect(t, serverSide); !ev.Clean() {
				t.Errorf("server should see a clean close, got %v (%v)", ev.Reason, ev.Err)
			}

			var order []string
			for len(srv.received) > 0 {
				order = append(order, (<-srv.received).Type())
			}
			want := []string{"Authenticate", "JoinRoom", "PlayerReady", "LeaveRoom"}
			if strings.Join(order, ",") != strings.Join(want, ",") {
				t.Errorf("server saw %v, want %v", order, want)
			}
		})
	}
}

func TestGameDataRelay(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			clientSide, serverSide := b.pair(t)
			srv := newServer(t, serverSide)
			defer serverSide.Close()

			c, events := client.Start(clientSide, quietConfig())
			defer c.Shutdown(context.Background())
			expect[protocol.Authenticated](t, events)

			payload := json.RawMessage(`{"action":"move","x":10,"y":-3}`)
			if err := c.SendGameData(payload); err != nil {
				t.Fatal(err)
			}
			got := expect[protocol.GameData](t, events)
			if got.FromPlayer != srv.playerID {
				t.Errorf("unexpected sender %v", got.FromPlayer)
			}
			if string(got.Data) != string(payload) {
				t.Errorf("expected %s, got %s", payload, got.Data)
			}
		})
	}
}

func TestServerCloseReachesClient(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			clientSide, serverSide := b.pair(t)
			newServer(t, serverSide)

			c, events := client.Start(clientSide, quietConfig())
			defer c.Shutdown(context.Background())
			expect[protocol.Authenticated](t, events)

			serverSide.Close()

			d := expect[client.Disconnected](t, events)
			if !d.Clean() {
				t.Errorf("expected a clean disconnect, got %q", d.Reason)
			}
			if c.IsConnected() {
				t.Error("client should report disconnected")
			}
			if err := c.Ping(); err != client.ErrNotConnected {
				t.Errorf("expected ErrNotConnected, got %v", err)
			}
		})
	}
}

func TestPingRoundTrips(t *testing.T) {
	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			clientSide, serverSide := b.pair(t)
			newServer(t, serverSide)
			defer serverSide.Close()

			c, events := client.Start(clientSide, quietConfig())
			defer c.Shutdown(context.Background())
			expect[protocol.Authenticated](t, events)

			for i := 0; i < 10; i++ {
				if err := c.Ping(); err != nil {
					t.Fatal(err)
				}
			}
			for i := 0; i < 10; i++ {
				expect[protocol.Pong](t, events)
			}
		})
	}
}
