// Package memory implements the in-process todo store. Records live in a map
// keyed by id with a separate insertion-order index; ids come from a counter
// that only moves forward.
package memory

import (
	"sync"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Compile-time interface check: Backend must implement Store.
var _ types.Store = (*Backend)(nil)

// Backend implements the Store interface in memory.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config

	nextID int64                 // last assigned id
	order  []int64               // ids in insertion order
	items  map[int64]*types.Todo // records keyed by id

	table *todosTable
}

// NewBackend creates a new memory backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend() *Backend {
	return &Backend{}
}

// Todos returns the todo table.
// Returns ErrStoreDetached if the backend is not attached.
func (b *Backend) Todos() (types.TodoTable, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}
	return b.table, nil
}

// Attach initializes an empty store.
// Returns ErrAlreadyAttached if already attached.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	b.config = config
	b.nextID = 0
	b.order = nil
	b.items = make(map[int64]*types.Todo)
	b.table = &todosTable{backend: b}
	b.attached = true
	return nil
}

// Detach drops all records. After Detach, table operations return
// ErrStoreDetached. Detach is idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil // idempotent
	}

	b.attached = false
	b.order = nil
	b.items = nil
	return nil
}
