package storage

import "errors"

var (
	// ErrNotFound is returned when a history or archive record is missing.
	ErrNotFound = errors.New("record not found")

	// ErrDuplicateKey is returned by TxArchive.InsertBulk when a tx id is
	// already archived or repeated within the batch.
	ErrDuplicateKey = errors.New("duplicate tx id: archive is append-only")

	// ErrInvalidInput is returned for an empty key or a nil record.
	ErrInvalidInput = errors.New("invalid input: empty key or nil record")

	// ErrSchemaMissing is returned when a backend lacks a table or column the
	// ledger needs after migrations ran.
	ErrSchemaMissing = errors.New("storage schema missing")
)
