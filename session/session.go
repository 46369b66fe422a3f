// Package session tracks what the client currently knows about its own
// connection: whether it is connected and authenticated, and which room
// and player identity the server assigned.
//
// The engine is the only writer. Any number of goroutines may read.
package session

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/risa-org/signalfish/protocol"
)

// Phase is a coarse summary of the connection lifecycle, derived from State.
type Phase int

const (
	PhaseConnected     Phase = iota // transport up, not yet authenticated
	PhaseAuthenticated              // Authenticated received, not in a room
	PhaseInRoom                     // in a room as a player or spectator
	PhaseDisconnected               // terminal, the engine has stopped
)

func (p Phase) String() string {
	switch p {
	case PhaseConnected:
		return "connected"
	case PhaseAuthenticated:
		return "authenticated"
	case PhaseInRoom:
		return "in_room"
	case PhaseDisconnected:
		return "disconnected"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Snapshot is a consistent copy of State taken at one instant.
type Snapshot struct {
	Connected     bool
	Authenticated bool
	PlayerID      *protocol.PlayerID
	RoomID        *protocol.RoomID
	RoomCode      *string
}

// Phase derives the lifecycle phase from the snapshot.
func (s Snapshot) Phase() Phase {
	switch {
	case !s.Connected:
		return PhaseDisconnected
	case s.RoomID != nil:
		return PhaseInRoom
	case s.Authenticated:
		return PhaseAuthenticated
	}
	return PhaseConnected
}

// State is the shared connection state. The zero value is not usable;
// create one with New.
type State struct {
	connected     atomic.Bool
	authenticated atomic.Bool

	mu       sync.RWMutex // guards the identity fields, which change together
	playerID *protocol.PlayerID
	roomID   *protocol.RoomID
	roomCode *string
}

// New returns a State for a freshly started engine: connected, nothing else.
func New() *State {
	s := &State{}
	s.connected.Store(true)
	return s
}

// Apply updates the state for one inbound notification. It reports whether
// anything changed. Notifications that carry no connection state are
// ignored, and so is everything after MarkDisconnected.
func (s *State) Apply(msg protocol.ServerMessage) bool {
	if !s.connected.Load() {
		return false
	}
	switch m := msg.(type) {
	case protocol.Authenticated:
		return !s.authenticated.Swap(true)
	case protocol.RoomJoined:
		s.enterRoom(m.PlayerID, m.RoomID, m.RoomCode)
	case protocol.Reconnected:
		s.enterRoom(m.PlayerID, m.RoomID, m.RoomCode)
	case protocol.SpectatorJoined:
		// the spectator ID takes the player slot
		s.enterRoom(m.SpectatorID, m.RoomID, m.RoomCode)
	case protocol.RoomLeft, protocol.SpectatorLeft:
		s.leaveRoom()
	default:
		return false
	}
	return true
}

func (s *State) enterRoom(player protocol.PlayerID, room protocol.RoomID, code string) {
	s.mu.Lock()
	s.playerID = &player
	s.roomID = &room
	s.roomCode = &code
	s.mu.Unlock()
}

// leaveRoom clears the room but keeps the player ID the server assigned.
func (s *State) leaveRoom() {
	s.mu.Lock()
	s.roomID = nil
	s.roomCode = nil
	s.mu.Unlock()
}

// MarkDisconnected moves the state to its terminal phase. Only the first
// call has an effect; it reports whether this call was that one.
func (s *State) MarkDisconnected() bool {
	if !s.connected.CompareAndSwap(true, false) {
		return false
	}
	s.authenticated.Store(false)
	return true
}

func (s *State) Connected() bool { return s.connected.Load() }

func (s *State) Authenticated() bool { return s.authenticated.Load() }

// PlayerID returns the ID assigned by the last join, if any.
func (s *State) PlayerID() (protocol.PlayerID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.playerID == nil {
		return protocol.PlayerID{}, false
	}
	return *s.playerID, true
}

// RoomID returns the current room, if any.
func (s *State) RoomID() (protocol.RoomID, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roomID == nil {
		return protocol.RoomID{}, false
	}
	return *s.roomID, true
}

// RoomCode returns the current room code, if any.
func (s *State) RoomCode() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.roomCode == nil {
		return "", false
	}
	return *s.roomCode, true
}

// Snapshot copies the whole state. Room ID and code are always both set or
// both nil.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Connected:     s.connected.Load(),
		Authenticated: s.authenticated.Load(),
	}
	s.mu.RLock()
	snap.PlayerID = clone(s.playerID)
	snap.RoomID = clone(s.roomID)
	snap.RoomCode = clone(s.roomCode)
	s.mu.RUnlock()
	return snap
}

func (s *State) Phase() Phase {
	return s.Snapshot().Phase()
}

func clone[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
