package client

import "errors"

// ErrNotConnected is returned by handle methods once the engine has
// stopped, or is stopping, and no longer accepts commands.
var ErrNotConnected = errors.New("not connected to server")

// ErrNotInRoom is returned by Room when the client holds no room.
var ErrNotInRoom = errors.New("not in a room")
