package storage

import (
	"errors"
	"fmt"
)

// Storage errors.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when attempting to insert a record
	// with a key that already exists. Append-only stores do not allow updates;
	// the managed bridge store rejects a second bridge with the same name.
	ErrDuplicateKey = errors.New("duplicate key")

	// ErrNameConflict is returned when a managed bridge would reuse another
	// bridge's normalized name. It matches ErrDuplicateKey too.
	ErrNameConflict = fmt.Errorf("bridge name conflict: %w", ErrDuplicateKey)

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
