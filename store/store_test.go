package store

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/risa-org/signalfish/protocol"
)

func TestSeatReconnect(t *testing.T) {
	seat := Seat{PlayerID: uuid.New(), RoomID: uuid.New(), RoomCode: "ABC123", AuthToken: "tok"}

	got := seat.Reconnect()
	want := protocol.Reconnect{PlayerID: seat.PlayerID, RoomID: seat.RoomID, AuthToken: "tok"}
	if got != want {
		t.Errorf("expected %+v, got %+v", want, got)
	}
}

func TestSeatExpired(t *testing.T) {
	saved := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seat := Seat{SavedAt: saved}

	if seat.Expired(0, saved.Add(24*time.Hour)) {
		t.Error("zero max age never expires")
	}
	if seat.Expired(time.Minute, saved.Add(30*time.Second)) {
		t.Error("seat should still be valid")
	}
	if !seat.Expired(time.Minute, saved.Add(2*time.Minute)) {
		t.Error("seat should have expired")
	}
}
