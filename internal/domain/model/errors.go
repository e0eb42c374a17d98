package model

import "errors"

var (
	// ErrValidation marks malformed or duplicate input rejected before any
	// state changes.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks lookups of unknown identifiers.
	ErrNotFound = errors.New("not found")

	// ErrConflict marks writes that collide with existing state, such as a
	// block index already taken or a transaction id already recorded.
	ErrConflict = errors.New("conflict")
)
