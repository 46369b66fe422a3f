// Package store keeps the seats a client holds in rooms, so that a later
// connection can send Reconnect and resume where the last one stopped.
package store

import (
	"time"

	"github.com/risa-org/signalfish/protocol"
)

// Seat is everything the server needs to hand a dropped player back their
// place in a room.
type Seat struct {
	GameName  string
	PlayerID  protocol.PlayerID
	RoomID    protocol.RoomID
	RoomCode  string
	AuthToken string // issued out of band; the protocol never carries it to the client
	SavedAt   time.Time
}

// Reconnect builds the command that reclaims the seat.
func (s Seat) Reconnect() protocol.Reconnect {
	return protocol.Reconnect{
		PlayerID:  s.PlayerID,
		RoomID:    s.RoomID,
		AuthToken: s.AuthToken,
	}
}

// Expired reports whether the seat is older than maxAge at now.
// A zero maxAge never expires.
func (s Seat) Expired(maxAge time.Duration, now time.Time) bool {
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.SavedAt) > maxAge
}

// Store is implemented by memory.Store and file.Store. Keys are chosen by
// the caller, usually one per game or per server.
type Store interface {
	Save(key string, seat Seat) error
	Load(key string) (Seat, bool)
	Delete(key string) error
}
