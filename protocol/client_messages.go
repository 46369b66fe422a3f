package protocol

import "encoding/json"

// Message is anything that travels in a {"type": ..., "data": ...} frame.
// Type returns the wire tag.
type Message interface {
	Type() string
}

// ClientMessage is a command sent from the client to the server.
type ClientMessage interface {
	Message
	clientMessage()
}

// Authenticate must be the first message on every connection. AppID is a
// public identifier, not a secret.
type Authenticate struct {
	AppID          string            `json:"app_id"`
	SDKVersion     *string           `json:"sdk_version,omitempty"`
	Platform       *string           `json:"platform,omitempty"` // e.g. "unity", "godot", "go"
	GameDataFormat *GameDataEncoding `json:"game_data_format,omitempty"`
}

// JoinRoom joins the room with RoomCode, or quick-matches / creates one
// when RoomCode is nil.
type JoinRoom struct {
	GameName          string          `json:"game_name"`
	RoomCode          *string         `json:"room_code"`
	PlayerName        string          `json:"player_name"`
	MaxPlayers        *uint8          `json:"max_players"`
	SupportsAuthority *bool           `json:"supports_authority"`
	RelayTransport    *RelayTransport `json:"relay_transport"`
}

type LeaveRoom struct{}

// SendGameData relays arbitrary JSON to the other players in the room.
// It travels under the same "GameData" tag the server uses for relayed data.
type SendGameData struct {
	Data json.RawMessage `json:"data"`
}

// AuthorityRequest asks to become, or stop being, the room authority.
type AuthorityRequest struct {
	BecomeAuthority bool `json:"become_authority"`
}

// PlayerReady signals lobby readiness.
type PlayerReady struct{}

type ProvideConnectionInfo struct {
	ConnectionInfo ConnectionInfo `json:"connection_info"`
}

type Ping struct{}

// Reconnect resumes a room seat after the transport was lost.
type Reconnect struct {
	PlayerID  PlayerID `json:"player_id"`
	RoomID    RoomID   `json:"room_id"`
	AuthToken string   `json:"auth_token"`
}

type JoinAsSpectator struct {
	GameName      string `json:"game_name"`
	RoomCode      string `json:"room_code"`
	SpectatorName string `json:"spectator_name"`
}

type LeaveSpectator struct{}

func (Authenticate) Type() string          { return "Authenticate" }
func (JoinRoom) Type() string              { return "JoinRoom" }
func (LeaveRoom) Type() string             { return "LeaveRoom" }
func (SendGameData) Type() string          { return "GameData" }
func (AuthorityRequest) Type() string      { return "AuthorityRequest" }
func (PlayerReady) Type() string           { return "PlayerReady" }
func (ProvideConnectionInfo) Type() string { return "ProvideConnectionInfo" }
func (Ping) Type() string                  { return "Ping" }
func (Reconnect) Type() string             { return "Reconnect" }
func (JoinAsSpectator) Type() string       { return "JoinAsSpectator" }
func (LeaveSpectator) Type() string        { return "LeaveSpectator" }

func (Authenticate) clientMessage()          {}
func (JoinRoom) clientMessage()              {}
func (LeaveRoom) clientMessage()             {}
func (SendGameData) clientMessage()          {}
func (AuthorityRequest) clientMessage()      {}
func (PlayerReady) clientMessage()           {}
func (ProvideConnectionInfo) clientMessage() {}
func (Ping) clientMessage()                  {}
func (Reconnect) clientMessage()             {}
func (JoinAsSpectator) clientMessage()       {}
func (LeaveSpectator) clientMessage()        {}
