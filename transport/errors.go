package transport

import "fmt"

// SendError wraps a failure to transmit a frame.
type SendError struct {
	Err error
}

func (e *SendError) Error() string { return fmt.Sprintf("transport send error: %v", e.Err) }

func (e *SendError) Unwrap() error { return e.Err }

// ReceiveError wraps a fault on the inbound side of a transport.
type ReceiveError struct {
	Err error
}

func (e *ReceiveError) Error() string { return fmt.Sprintf("transport receive error: %v", e.Err) }

func (e *ReceiveError) Unwrap() error { return e.Err }

// IOError reports a failure to establish a connection.
type IOError struct {
	Op   string // "dial", "handshake", ...
	Addr string
	Err  error
}

func (e *IOError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("io error: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("io error: %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
