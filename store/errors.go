package store

import "errors"

var (
	// ErrUnsupportedProvider is returned for providers the store cannot serve.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrNotConnected is returned when the store has no open database.
	ErrNotConnected = errors.New("database not connected")
)
