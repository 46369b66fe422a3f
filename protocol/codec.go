package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// envelope is the adjacently tagged frame every message travels in.
// Data is omitted for variants that carry no fields.
type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type registry map[string]reflect.Type

func newRegistry[M Message](msgs ...M) registry {
	r := make(registry, len(msgs))
	for _, m := range msgs {
		r[m.Type()] = reflect.TypeOf(m)
	}
	return r
}

var clientTypes = newRegistry[ClientMessage](
	Authenticate{}, JoinRoom{}, LeaveRoom{}, SendGameData{}, AuthorityRequest{},
	PlayerReady{}, ProvideConnectionInfo{}, Ping{}, Reconnect{},
	JoinAsSpectator{}, LeaveSpectator{},
)

var serverTypes = newRegistry[ServerMessage](
	Authenticated{}, ProtocolInfo{}, AuthenticationError{}, RoomJoined{},
	RoomJoinFailed{}, RoomLeft{}, PlayerJoined{}, PlayerLeft{}, GameData{},
	GameDataBinary{}, AuthorityChanged{}, AuthorityResponse{},
	LobbyStateChanged{}, GameStarting{}, Pong{}, Reconnected{},
	ReconnectionFailed{}, PlayerReconnected{}, SpectatorJoined{},
	SpectatorJoinFailed{}, SpectatorLeft{}, NewSpectatorJoined{},
	SpectatorDisconnected{}, ErrorMessage{},
)

func isUnit(t reflect.Type) bool {
	return t.Kind() == reflect.Struct && t.NumField() == 0
}

// EncodeClient serializes a command into its wire text.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	return encode(msg)
}

// EncodeServer serializes a notification. The client never sends these; it
// exists for test servers and tooling.
func EncodeServer(msg ServerMessage) ([]byte, error) {
	return encode(msg)
}

func encode(msg Message) ([]byte, error) {
	if msg == nil {
		return nil, &EncodeError{Err: errors.New("nil message")}
	}
	env := envelope{Type: msg.Type()}
	if !isUnit(reflect.TypeOf(msg)) {
		data, err := marshal(msg)
		if err != nil {
			return nil, &EncodeError{Type: env.Type, Err: err}
		}
		env.Data = data
	}
	out, err := marshal(env)
	if err != nil {
		return nil, &EncodeError{Type: env.Type, Err: err}
	}
	return out, nil
}

// DecodeServer parses one frame of server text into a notification.
func DecodeServer(data []byte) (ServerMessage, error) {
	v, err := decode(data, serverTypes)
	if err != nil {
		return nil, err
	}
	return v.(ServerMessage), nil
}

// DecodeClient parses one frame of client text into a command.
func DecodeClient(data []byte) (ClientMessage, error) {
	v, err := decode(data, clientTypes)
	if err != nil {
		return nil, err
	}
	return v.(ClientMessage), nil
}

func decode(data []byte, types registry) (any, error) {
	var frame struct {
		Type *string         `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if frame.Type == nil {
		return nil, &DecodeError{Err: errors.New(`missing field "type"`)}
	}
	name := *frame.Type
	typ, ok := types[name]
	if !ok {
		return nil, &DecodeError{Type: name, Err: ErrUnknownType}
	}
	out := reflect.New(typ)
	if isUnit(typ) {
		if len(frame.Data) > 0 && !isNull(frame.Data) {
			return nil, &DecodeError{Type: name, Err: errors.New("unexpected data for a variant without fields")}
		}
		return out.Elem().Interface(), nil
	}
	if len(frame.Data) == 0 || isNull(frame.Data) {
		return nil, &DecodeError{Type: name, Err: errors.New(`missing field "data"`)}
	}
	if err := decodeStrict(frame.Data, out.Interface()); err != nil {
		return nil, &DecodeError{Type: name, Err: fmt.Errorf("data: %w", err)}
	}
	return out.Elem().Interface(), nil
}
