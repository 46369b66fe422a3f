package client

import "github.com/risa-org/signalfish/protocol"

// JoinRoomParams describes a room to join or create. Only GameName and
// PlayerName are required; leave RoomCode nil to quick-match.
type JoinRoomParams struct {
	GameName          string
	PlayerName        string
	RoomCode          *string
	MaxPlayers        *uint8
	SupportsAuthority *bool
	RelayTransport    *protocol.RelayTransport
}

func NewJoinRoomParams(gameName, playerName string) JoinRoomParams {
	return JoinRoomParams{GameName: gameName, PlayerName: playerName}
}

// WithRoomCode targets an existing room instead of quick-matching.
func (p JoinRoomParams) WithRoomCode(code string) JoinRoomParams {
	p.RoomCode = &code
	return p
}

func (p JoinRoomParams) WithMaxPlayers(n uint8) JoinRoomParams {
	p.MaxPlayers = &n
	return p
}

func (p JoinRoomParams) WithSupportsAuthority(supported bool) JoinRoomParams {
	p.SupportsAuthority = &supported
	return p
}

func (p JoinRoomParams) WithRelayTransport(t protocol.RelayTransport) JoinRoomParams {
	p.RelayTransport = &t
	return p
}

func (p JoinRoomParams) command() protocol.JoinRoom {
	return protocol.JoinRoom{
		GameName:          p.GameName,
		RoomCode:          p.RoomCode,
		PlayerName:        p.PlayerName,
		MaxPlayers:        p.MaxPlayers,
		SupportsAuthority: p.SupportsAuthority,
		RelayTransport:    p.RelayTransport,
	}
}
