package chat

import "errors"

var (
	// ErrInvalidInput is returned when a required field is empty after
	// trimming and sanitizing.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound is returned when a room id is unknown.
	ErrNotFound = errors.New("room not found")

	// ErrBadPassword is returned when a room password does not match.
	ErrBadPassword = errors.New("incorrect password")
)
