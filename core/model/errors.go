package model

import "errors"

var (
	// ErrInvalidInput is returned when coordinates or commands are malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for unknown drone or request ids.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition is returned when a request cannot move to the
	// requested status from its current one.
	ErrInvalidTransition = errors.New("invalid transition")
)
