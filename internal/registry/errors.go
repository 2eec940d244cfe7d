package registry

import "errors"

var (
	// ErrNotFound is returned when a name has no live counter.
	ErrNotFound = errors.New("counter not found")

	// ErrAlreadyExists is returned by Register when the name is already live.
	ErrAlreadyExists = errors.New("counter already exists")

	// ErrKeyCollision is returned when two distinct names hash to the same key.
	ErrKeyCollision = errors.New("counter key collision")

	// ErrOverflow is returned by Increment when the count is at its maximum.
	ErrOverflow = errors.New("counter overflow")

	// ErrInvalidName is returned by ValidateName.
	ErrInvalidName = errors.New("invalid counter name")
)
