package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ServerMessage is a notification sent from the server to the client.
type ServerMessage interface {
	Message
	serverMessage()
}

// Authenticated confirms the Authenticate command.
type Authenticated struct {
	AppName      string        `json:"app_name"`
	Organization *string       `json:"organization,omitempty"`
	RateLimits   RateLimitInfo `json:"rate_limits"`
}

// ProtocolInfo advertises what the server supports for this SDK.
type ProtocolInfo struct {
	Platform           *string                `json:"platform,omitempty"`
	SDKVersion         *string                `json:"sdk_version,omitempty"`
	MinimumVersion     *string                `json:"minimum_version,omitempty"`
	RecommendedVersion *string                `json:"recommended_version,omitempty"`
	Capabilities       List[string]           `json:"capabilities" wire:"default"`
	Notes              *string                `json:"notes,omitempty"`
	GameDataFormats    List[GameDataEncoding] `json:"game_data_formats" wire:"default"`
	PlayerNameRules    *PlayerNameRules       `json:"player_name_rules,omitempty"`
}

type AuthenticationError struct {
	Error     string    `json:"error"`
	ErrorCode ErrorCode `json:"error_code"`
}

// RoomJoined is the answer to a successful JoinRoom.
type RoomJoined struct {
	RoomDetails
}

type RoomJoinFailed struct {
	Reason    string     `json:"reason"`
	ErrorCode *ErrorCode `json:"error_code,omitempty"`
}

type RoomLeft struct{}

type PlayerJoined struct {
	Player PlayerInfo `json:"player"`
}

type PlayerLeft struct {
	PlayerID PlayerID `json:"player_id"`
}

// GameData is JSON game data relayed from another player.
type GameData struct {
	FromPlayer PlayerID        `json:"from_player"`
	Data       json.RawMessage `json:"data"`
}

// GameDataBinary is an encoded game data payload relayed from another player.
type GameDataBinary struct {
	FromPlayer PlayerID         `json:"from_player"`
	Encoding   GameDataEncoding `json:"encoding"`
	Payload    Binary           `json:"payload"`
}

type AuthorityChanged struct {
	AuthorityPlayer *PlayerID `json:"authority_player"`
	YouAreAuthority bool      `json:"you_are_authority"`
}

type AuthorityResponse struct {
	Granted   bool       `json:"granted"`
	Reason    *string    `json:"reason"`
	ErrorCode *ErrorCode `json:"error_code,omitempty"`
}

type LobbyStateChanged struct {
	LobbyState   LobbyState     `json:"lobby_state"`
	ReadyPlayers List[PlayerID] `json:"ready_players"`
	AllReady     bool           `json:"all_ready"`
}

type GameStarting struct {
	PeerConnections List[PeerConnectionInfo] `json:"peer_connections"`
}

type Pong struct{}

// Reconnected restores a room seat. MissedEvents holds the notifications
// that were sent while the client was away, oldest first.
type Reconnected struct {
	RoomDetails
	MissedEvents Notifications `json:"missed_events"`
}

type ReconnectionFailed struct {
	Reason    string    `json:"reason"`
	ErrorCode ErrorCode `json:"error_code"`
}

type PlayerReconnected struct {
	PlayerID PlayerID `json:"player_id"`
}

// SpectatorJoined confirms JoinAsSpectator. SpectatorID takes the place of
// the player ID in the connection state.
type SpectatorJoined struct {
	RoomID            RoomID                      `json:"room_id"`
	RoomCode          string                      `json:"room_code"`
	SpectatorID       PlayerID                    `json:"spectator_id"`
	GameName          string                      `json:"game_name"`
	CurrentPlayers    List[PlayerInfo]            `json:"current_players"`
	CurrentSpectators List[SpectatorInfo]         `json:"current_spectators"`
	LobbyState        LobbyState                  `json:"lobby_state"`
	Reason            *SpectatorStateChangeReason `json:"reason,omitempty"`
}

type SpectatorJoinFailed struct {
	Reason    string     `json:"reason"`
	ErrorCode *ErrorCode `json:"error_code,omitempty"`
}

type SpectatorLeft struct {
	RoomID            *RoomID                     `json:"room_id,omitempty"`
	RoomCode          *string                     `json:"room_code,omitempty"`
	Reason            *SpectatorStateChangeReason `json:"reason,omitempty"`
	CurrentSpectators List[SpectatorInfo]         `json:"current_spectators" wire:"default"`
}

type NewSpectatorJoined struct {
	Spectator         SpectatorInfo               `json:"spectator"`
	CurrentSpectators List[SpectatorInfo]         `json:"current_spectators" wire:"default"`
	Reason            *SpectatorStateChangeReason `json:"reason,omitempty"`
}

type SpectatorDisconnected struct {
	SpectatorID       PlayerID                    `json:"spectator_id"`
	Reason            *SpectatorStateChangeReason `json:"reason,omitempty"`
	CurrentSpectators List[SpectatorInfo]         `json:"current_spectators" wire:"default"`
}

// ErrorMessage is a generic error notification (wire tag "Error").
type ErrorMessage struct {
	Message   string     `json:"message"`
	ErrorCode *ErrorCode `json:"error_code,omitempty"`
}

func (Authenticated) Type() string         { return "Authenticated" }
func (ProtocolInfo) Type() string          { return "ProtocolInfo" }
func (AuthenticationError) Type() string   { return "AuthenticationError" }
func (RoomJoined) Type() string            { return "RoomJoined" }
func (RoomJoinFailed) Type() string        { return "RoomJoinFailed" }
func (RoomLeft) Type() string              { return "RoomLeft" }
func (PlayerJoined) Type() string          { return "PlayerJoined" }
func (PlayerLeft) Type() string            { return "PlayerLeft" }
func (GameData) Type() string              { return "GameData" }
func (GameDataBinary) Type() string        { return "GameDataBinary" }
func (AuthorityChanged) Type() string      { return "AuthorityChanged" }
func (AuthorityResponse) Type() string     { return "AuthorityResponse" }
func (LobbyStateChanged) Type() string     { return "LobbyStateChanged" }
func (GameStarting) Type() string          { return "GameStarting" }
func (Pong) Type() string                  { return "Pong" }
func (Reconnected) Type() string           { return "Reconnected" }
func (ReconnectionFailed) Type() string    { return "ReconnectionFailed" }
func (PlayerReconnected) Type() string     { return "PlayerReconnected" }
func (SpectatorJoined) Type() string       { return "SpectatorJoined" }
func (SpectatorJoinFailed) Type() string   { return "SpectatorJoinFailed" }
func (SpectatorLeft) Type() string         { return "SpectatorLeft" }
func (NewSpectatorJoined) Type() string    { return "NewSpectatorJoined" }
func (SpectatorDisconnected) Type() string { return "SpectatorDisconnected" }
func (ErrorMessage) Type() string          { return "Error" }

func (Authenticated) serverMessage()         {}
func (ProtocolInfo) serverMessage()          {}
func (AuthenticationError) serverMessage()   {}
func (RoomJoined) serverMessage()            {}
func (RoomJoinFailed) serverMessage()        {}
func (RoomLeft) serverMessage()              {}
func (PlayerJoined) serverMessage()          {}
func (PlayerLeft) serverMessage()            {}
func (GameData) serverMessage()              {}
func (GameDataBinary) serverMessage()        {}
func (AuthorityChanged) serverMessage()      {}
func (AuthorityResponse) serverMessage()     {}
func (LobbyStateChanged) serverMessage()     {}
func (GameStarting) serverMessage()          {}
func (Pong) serverMessage()                  {}
func (Reconnected) serverMessage()           {}
func (ReconnectionFailed) serverMessage()    {}
func (PlayerReconnected) serverMessage()     {}
func (SpectatorJoined) serverMessage()       {}
func (SpectatorJoinFailed) serverMessage()   {}
func (SpectatorLeft) serverMessage()         {}
func (NewSpectatorJoined) serverMessage()    {}
func (SpectatorDisconnected) serverMessage() {}
func (ErrorMessage) serverMessage()          {}

// Failure notifications expose the rejection as a *ServerError.

func (m AuthenticationError) Err() error {
	code := m.ErrorCode
	return serverError(m.Error, &code)
}

func (m RoomJoinFailed) Err() error { return serverError(m.Reason, m.ErrorCode) }

func (m ReconnectionFailed) Err() error {
	code := m.ErrorCode
	return serverError(m.Reason, &code)
}

func (m SpectatorJoinFailed) Err() error { return serverError(m.Reason, m.ErrorCode) }

func (m ErrorMessage) Err() error { return serverError(m.Message, m.ErrorCode) }

// Err is nil when authority was granted.
func (m AuthorityResponse) Err() error {
	if m.Granted {
		return nil
	}
	reason := "authority request denied"
	if m.Reason != nil {
		reason = *m.Reason
	}
	return serverError(reason, m.ErrorCode)
}

// Notifications is a list of server messages, each in its own
// {"type","data"} envelope. Used for Reconnected.MissedEvents.
type Notifications []ServerMessage

func (n Notifications) MarshalJSON() ([]byte, error) {
	if len(n) == 0 {
		return []byte("[]"), nil
	}
	items := make([]json.RawMessage, len(n))
	for i, msg := range n {
		b, err := EncodeServer(msg)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		items[i] = b
	}
	return marshal(items)
}

func (n *Notifications) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errors.New("expected an array, got null")
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	if len(items) == 0 {
		*n = nil
		return nil
	}
	out := make(Notifications, len(items))
	for i, item := range items {
		msg, err := DecodeServer(item)
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = msg
	}
	*n = out
	return nil
}
