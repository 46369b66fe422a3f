package protocol

import "github.com/google/uuid"

// PlayerID identifies a player (or spectator) across the whole deployment.
// It is an opaque 128-bit value; two IDs are the same player iff they are equal.
type PlayerID = uuid.UUID

// RoomID identifies a room. Same representation and equality rules as PlayerID.
type RoomID = uuid.UUID
