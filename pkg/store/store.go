// Package store provides the public factory for todo stores. It selects a
// backend by name while keeping the implementations internal.
package store

import (
	"fmt"

	"github.com/mesh-intelligence/todos/internal/memory"
	"github.com/mesh-intelligence/todos/internal/sqlite"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// New creates an unattached Store for the named backend.
// Returns ErrBackendEmpty or ErrBackendUnknown for bad names.
func New(backend string) (types.Store, error) {
	if err := (types.Config{Backend: backend}).Validate(); err != nil {
		return nil, err
	}
	switch backend {
	case types.BackendSQLite:
		return sqlite.NewBackend(), nil
	default:
		return memory.NewBackend(), nil
	}
}

// Open creates a Store for config.Backend and attaches it. The caller must
// call Detach when done.
//
// Example:
//
//	st, err := store.Open(types.Config{Backend: types.BackendMemory})
//	if err != nil {
//	    return err
//	}
//	defer st.Detach()
func Open(config types.Config) (types.Store, error) {
	st, err := New(config.Backend)
	if err != nil {
		return nil, err
	}
	if err := st.Attach(config); err != nil {
		return nil, fmt.Errorf("attach %s store: %w", config.Backend, err)
	}
	return st, nil
}
