package storage

import "errors"

var (
	// ErrNotFound is returned when a requested record does not exist,
	// e.g. reading a checkpoint for a pool that has never been synced.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when appending an event whose
	// (tx_hash, log_index) key is already stored. Swap logs are
	// immutable, so a duplicate append is always a re-scan, never an
	// update.
	ErrDuplicateKey = errors.New("duplicate key: event already stored")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
