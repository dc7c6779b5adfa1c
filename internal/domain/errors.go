package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrSessionExists is returned when creating a session with an id already in use.
	ErrSessionExists = errors.New("session already exists")
	// ErrEmptyMessage is returned when a turn is requested with blank input.
	ErrEmptyMessage = errors.New("empty message")
)
