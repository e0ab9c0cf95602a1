package types

import "errors"

// Store owns every todo record of a process. Callers attach it to a
// backend, use the TodoTable it exposes, and detach when done.
type Store interface {
	// Todos returns the todo table.
	// Returns ErrStoreDetached if the store is not attached.
	Todos() (TodoTable, error)

	// Attach initializes the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources and drops all records. Idempotent.
	// After Detach, table operations return ErrStoreDetached.
	Detach() error
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)
