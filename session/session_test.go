package session

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/risa-org/signalfish/protocol"
)

func roomJoined(player, room uuid.UUID, code string) protocol.RoomJoined {
	return protocol.RoomJoined{RoomDetails: protocol.RoomDetails{
		PlayerID: player,
		RoomID:   room,
		RoomCode: code,
	}}
}

// TestNewState checks that a fresh state is connected and nothing else.
func TestNewState(t *testing.T) {
	s := New()

	if !s.Connected() {
		t.Error("expected a new state to be connected")
	}
	if s.Authenticated() {
		t.Error("expected a new state to be unauthenticated")
	}
	if _, ok := s.RoomID(); ok {
		t.Error("expected no room")
	}
	if _, ok := s.PlayerID(); ok {
		t.Error("expected no player ID")
	}
	if s.Phase() != PhaseConnected {
		t.Errorf("expected PhaseConnected, got %v", s.Phase())
	}
}

// TestHappyPath walks through the lifecycle of a player.
func TestHappyPath(t *testing.T) {
	s := New()
	player, room := uuid.New(), uuid.New()

	// connected → authenticated
	if !s.Apply(protocol.Authenticated{AppName: "Test App"}) {
		t.Error("Authenticated should change the state")
	}
	if !s.Authenticated() || s.Phase() != PhaseAuthenticated {
		t.Errorf("expected PhaseAuthenticated, got %v", s.Phase())
	}

	// authenticated → in room
	s.Apply(roomJoined(player, room, "ABC123"))
	if code, ok := s.RoomCode(); !ok || code != "ABC123" {
		t.Errorf("expected room code ABC123, got %q", code)
	}
	if id, ok := s.PlayerID(); !ok || id != player {
		t.Errorf("expected player %v, got %v", player, id)
	}
	if id, ok := s.RoomID(); !ok || id != room {
		t.Errorf("expected room %v, got %v", room, id)
	}
	if s.Phase() != PhaseInRoom {
		t.Errorf("expected PhaseInRoom, got %v", s.Phase())
	}

	// in room → out of room, player ID kept
	s.Apply(protocol.RoomLeft{})
	if _, ok := s.RoomID(); ok {
		t.Error("room ID should be cleared")
	}
	if _, ok := s.RoomCode(); ok {
		t.Error("room code should be cleared")
	}
	if id, ok := s.PlayerID(); !ok || id != player {
		t.Error("player ID should survive leaving the room")
	}

	// anything → disconnected
	if !s.MarkDisconnected() {
		t.Error("first MarkDisconnected should report the transition")
	}
	if s.Connected() || s.Authenticated() {
		t.Error("disconnect should clear connected and authenticated")
	}
	if s.Phase() != PhaseDisconnected {
		t.Errorf("expected PhaseDisconnected, got %v", s.Phase())
	}
}

// TestDisconnectIsTerminal makes sure nothing brings the state back.
func TestDisconnectIsTerminal(t *testing.T) {
	s := New()
	s.MarkDisconnected()

	if s.MarkDisconnected() {
		t.Error("second MarkDisconnected should be a no-op")
	}
	if s.Apply(protocol.Authenticated{}) {
		t.Error("a disconnected state should ignore notifications")
	}
	if s.Connected() || s.Authenticated() {
		t.Error("connected must never come back")
	}
}

func TestReconnectedAndSpectatorJoined(t *testing.T) {
	s := New()
	player, room, spectator := uuid.New(), uuid.New(), uuid.New()

	s.Apply(protocol.Reconnected{RoomDetails: protocol.RoomDetails{PlayerID: player, RoomID: room, RoomCode: "RECON1"}})
	if code, _ := s.RoomCode(); code != "RECON1" {
		t.Errorf("expected RECON1, got %q", code)
	}

	s.Apply(protocol.SpectatorJoined{RoomID: room, RoomCode: "SPEC42", SpectatorID: spectator})
	if id, _ := s.PlayerID(); id != spectator {
		t.Error("spectator ID should occupy the player slot")
	}
	if code, _ := s.RoomCode(); code != "SPEC42" {
		t.Errorf("expected SPEC42, got %q", code)
	}

	s.Apply(protocol.SpectatorLeft{})
	if _, ok := s.RoomCode(); ok {
		t.Error("SpectatorLeft should clear the room")
	}
}

func TestUnrelatedNotificationsIgnored(t *testing.T) {
	s := New()
	for _, msg := range []protocol.ServerMessage{
		protocol.Pong{},
		protocol.PlayerLeft{},
		protocol.ErrorMessage{Message: "x"},
		protocol.RoomJoinFailed{Reason: "full"},
	} {
		if s.Apply(msg) {
			t.Errorf("%s should not change the state", msg.Type())
		}
	}
}

// TestRoomFieldsChangeTogether reads snapshots while the room flips and
// checks the ID and code are never observed half-updated.
func TestRoomFieldsChangeTogether(t *testing.T) {
	s := New()
	player, room := uuid.New(), uuid.New()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 2000; i++ {
			s.Apply(roomJoined(player, room, "ABC"))
			s.Apply(protocol.RoomLeft{})
		}
	}()

	for i := 0; i < 2000; i++ {
		snap := s.Snapshot()
		if (snap.RoomID == nil) != (snap.RoomCode == nil) {
			t.Fatalf("room ID and code out of step: %+v", snap)
		}
	}
	wg.Wait()
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	s.Apply(roomJoined(uuid.New(), uuid.New(), "ABC"))
	snap := s.Snapshot()
	*snap.RoomCode = "MUTATED"
	if code, _ := s.RoomCode(); code != "ABC" {
		t.Error("mutating a snapshot must not change the state")
	}
}

func TestPhaseString(t *testing.T) {
	cases := map[Phase]string{
		PhaseConnected:     "connected",
		PhaseAuthenticated: "authenticated",
		PhaseInRoom:        "in_room",
		PhaseDisconnected:  "disconnected",
		Phase(9):           "phase(9)",
	}
	for p, want := range cases {
		if p.String() != want {
			t.Errorf("expected %q, got %q", want, p.String())
		}
	}
}
