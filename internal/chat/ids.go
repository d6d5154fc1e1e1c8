package chat

import "github.com/google/uuid"

// RoomID identifies a private room. It is opaque and URL-safe.
type RoomID string

// ConnectionID identifies a live connection.
type ConnectionID string

// NewRoomID returns a random room identifier.
func NewRoomID() RoomID {
	return RoomID(uuid.NewString())
}

// NewConnectionID returns a random connection identifier.
func NewConnectionID() ConnectionID {
	return ConnectionID(uuid.NewString())
}
