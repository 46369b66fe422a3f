package protocol

import (
	"encoding/json"
	"fmt"
)

// RelayTransport selects the relay protocol the server should allocate.
// Serialized lowercase.
type RelayTransport string

const (
	RelayTCP       RelayTransport = "tcp"       // reliable, ordered
	RelayUDP       RelayTransport = "udp"       // low latency, unreliable
	RelayWebSocket RelayTransport = "websocket" // browser compatible
	RelayAuto      RelayTransport = "auto"      // server picks by room size and platform
)

func (r RelayTransport) valid() bool {
	switch r {
	case RelayTCP, RelayUDP, RelayWebSocket, RelayAuto:
		return true
	}
	return false
}

func (r *RelayTransport) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, "relay transport", r)
}

// GameDataEncoding is the payload format negotiated for game data.
type GameDataEncoding string

const (
	EncodingJSON        GameDataEncoding = "json"
	EncodingMessagePack GameDataEncoding = "message_pack"
	EncodingRkyv        GameDataEncoding = "rkyv"
)

func (e GameDataEncoding) valid() bool {
	switch e {
	case EncodingJSON, EncodingMessagePack, EncodingRkyv:
		return true
	}
	return false
}

func (e *GameDataEncoding) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, "game data encoding", e)
}

// LobbyState is the readiness phase of a room.
type LobbyState string

const (
	LobbyWaiting   LobbyState = "waiting"
	LobbyLobby     LobbyState = "lobby"
	LobbyFinalized LobbyState = "finalized"
)

func (l LobbyState) valid() bool {
	switch l {
	case LobbyWaiting, LobbyLobby, LobbyFinalized:
		return true
	}
	return false
}

func (l *LobbyState) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, "lobby state", l)
}

// SpectatorStateChangeReason says why a spectator joined or left.
type SpectatorStateChangeReason string

const (
	SpectatorJoinedReason       SpectatorStateChangeReason = "joined"
	SpectatorVoluntaryLeave     SpectatorStateChangeReason = "voluntary_leave"
	SpectatorDisconnectedReason SpectatorStateChangeReason = "disconnected"
	SpectatorRemoved            SpectatorStateChangeReason = "removed"
	SpectatorRoomClosed         SpectatorStateChangeReason = "room_closed"
)

func (s SpectatorStateChangeReason) valid() bool {
	switch s {
	case SpectatorJoinedReason, SpectatorVoluntaryLeave, SpectatorDisconnectedReason,
		SpectatorRemoved, SpectatorRoomClosed:
		return true
	}
	return false
}

func (s *SpectatorStateChangeReason) UnmarshalJSON(data []byte) error {
	return decodeEnum(data, "spectator state change reason", s)
}

// wireEnum is satisfied by every string enum of the protocol.
type wireEnum interface {
	~string
	valid() bool
}

// decodeEnum accepts only the exact wire spelling of a known value.
// Case and separators are part of the contract, so "Waiting" or
// "message-pack" are rejected rather than normalized.
func decodeEnum[T wireEnum](data []byte, what string, out *T) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	v := T(s)
	if !v.valid() {
		return fmt.Errorf("unknown %s %q", what, s)
	}
	*out = v
	return nil
}
