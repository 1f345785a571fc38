// Package storage holds the error taxonomy shared by every persistence port.
package storage

import "errors"

var (
	// ErrSchemaInit means the store could not be created or its schema applied.
	ErrSchemaInit = errors.New("schema initialization failed")

	// ErrNotFound is returned by lookups by id. List queries return an empty slice instead.
	ErrNotFound = errors.New("not found")

	// ErrForeignKeyViolation means a row referenced a parent id that does not exist.
	ErrForeignKeyViolation = errors.New("foreign key violation")

	// ErrIntegrity covers the remaining constraint violations (unique, not null, check).
	ErrIntegrity = errors.New("integrity constraint violation")

	// ErrSessionClosed is returned when a repository bound to a finished session is used.
	ErrSessionClosed = errors.New("session closed")
)
