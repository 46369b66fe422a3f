package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ConnectionInfo tells peers how to reach a player for P2P play. It is a
// tagged union on the wire, discriminated by its own "type" field; exactly
// one of the variant pointers is set.
type ConnectionInfo struct {
	Direct     *DirectConnection
	UnityRelay *UnityRelayConnection
	Relay      *RelayConnection
	WebRTC     *WebRTCConnection
	Custom     *CustomConnection
}

// DirectConnection is a plain host:port endpoint.
type DirectConnection struct {
	Host string `json:"host"`
	Port uint16 `json:"port"`
}

// UnityRelayConnection is a Unity Relay allocation.
type UnityRelayConnection struct {
	AllocationID   string `json:"allocation_id"`
	ConnectionData string `json:"connection_data"`
	Key            string `json:"key"`
}

// RelayConnection points at the built-in relay server.
type RelayConnection struct {
	Host         string         `json:"host"`
	Port         uint16         `json:"port"`
	Transport    RelayTransport `json:"transport" wire:"default"` // auto when absent
	AllocationID string         `json:"allocation_id"`
	Token        string         `json:"token"`
	ClientID     *uint16        `json:"client_id,omitempty"` // assigned by the relay
}

// WebRTCConnection carries signaling data for a WebRTC peer.
type WebRTCConnection struct {
	SDP           *string      `json:"sdp"`
	ICECandidates List[string] `json:"ice_candidates"`
}

// CustomConnection is free-form data for transports the protocol does not model.
type CustomConnection struct {
	Data json.RawMessage `json:"data"`
}

const (
	connDirect     = "direct"
	connUnityRelay = "unity_relay"
	connRelay      = "relay"
	connWebRTC     = "webrtc"
	connCustom     = "custom"
)

// Kind returns the wire discriminator of the populated variant, or "" when
// none is set.
func (c ConnectionInfo) Kind() string {
	kind, _ := c.variant()
	return kind
}

func (c ConnectionInfo) variant() (string, any) {
	switch {
	case c.Direct != nil:
		return connDirect, c.Direct
	case c.UnityRelay != nil:
		return connUnityRelay, c.UnityRelay
	case c.Relay != nil:
		return connRelay, c.Relay
	case c.WebRTC != nil:
		return connWebRTC, c.WebRTC
	case c.Custom != nil:
		return connCustom, c.Custom
	}
	return "", nil
}

func (c ConnectionInfo) MarshalJSON() ([]byte, error) {
	kind, v := c.variant()
	if v == nil {
		return nil, errors.New("connection info has no variant set")
	}
	body, err := marshal(v)
	if err != nil {
		return nil, err
	}
	// the tag goes first, then the variant's own fields
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `{"type":%q`, kind)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func (c *ConnectionInfo) UnmarshalJSON(data []byte) error {
	var tag struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return fmt.Errorf("connection info: %w", err)
	}
	if tag.Type == nil {
		return errors.New(`connection info: missing field "type"`)
	}
	var out ConnectionInfo
	var err error
	switch *tag.Type {
	case connDirect:
		out.Direct = new(DirectConnection)
		err = decodeStrict(data, out.Direct)
	case connUnityRelay:
		out.UnityRelay = new(UnityRelayConnection)
		err = decodeStrict(data, out.UnityRelay)
	case connRelay:
		out.Relay = &RelayConnection{Transport: RelayAuto}
		err = decodeStrict(data, out.Relay)
	case connWebRTC:
		out.WebRTC = new(WebRTCConnection)
		err = decodeStrict(data, out.WebRTC)
	case connCustom:
		out.Custom = new(CustomConnection)
		err = decodeStrict(data, out.Custom)
	default:
		return fmt.Errorf("connection info: unknown type %q", *tag.Type)
	}
	if err != nil {
		return fmt.Errorf("connection info %s: %w", *tag.Type, err)
	}
	*c = out
	return nil
}
