package protocol

import (
	"errors"
	"fmt"
)

// ErrSerialization matches every encode and decode failure via errors.Is.
var ErrSerialization = errors.New("serialization error")

// ErrUnknownType is wrapped by a DecodeError when the "type" tag names no
// known message.
var ErrUnknownType = errors.New("unknown message type")

// EncodeError reports a message that could not be turned into JSON.
// On the outbound path this is a programming error, not a connection fault.
type EncodeError struct {
	Type string // wire tag of the message being encoded
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("serialization error: encode %s: %v", e.Type, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrSerialization }

// DecodeError reports an inbound frame that is not a valid message.
// Type is empty when the envelope itself could not be read.
type DecodeError struct {
	Type string
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("serialization error: decode: %v", e.Err)
	}
	return fmt.Sprintf("serialization error: decode %s: %v", e.Type, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrSerialization }

// ServerError is an application-level rejection reported by the server.
// Failure notifications expose one through their Err method.
type ServerError struct {
	Message string
	Code    *ErrorCode // nil when the server sent no structured code
}

func (e *ServerError) Error() string {
	return "server error: " + e.Message
}

// HasCode reports whether the server attached the given code.
func (e *ServerError) HasCode(code ErrorCode) bool {
	return e.Code != nil && *e.Code == code
}

func serverError(message string, code *ErrorCode) error {
	return &ServerError{Message: message, Code: code}
}
