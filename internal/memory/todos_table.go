package memory

import (
	"context"
	"slices"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Compile-time interface check: todosTable must implement TodoTable.
var _ types.TodoTable = (*todosTable)(nil)

// todosTable implements TodoTable over the backend's map and order index.
// Every method takes the backend lock and hands out clones.
type todosTable struct {
	backend *Backend
}

// Create assigns the next id and appends the record.
func (tt *todosTable) Create(ctx context.Context, p types.CreatePayload) (*types.Todo, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b := tt.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	b.nextID++
	todo := p.NewTodo(b.nextID)
	b.items[todo.ID] = todo
	b.order = append(b.order, todo.ID)
	return todo.Clone(), nil
}

// List returns all records in insertion order.
func (tt *todosTable) List(ctx context.Context) ([]*types.Todo, error) {
	b := tt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	out := make([]*types.Todo, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.items[id].Clone())
	}
	return out, nil
}

// Get returns the record with the given id.
func (tt *todosTable) Get(ctx context.Context, id int64) (*types.Todo, error) {
	b := tt.backend
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	todo, ok := b.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return todo.Clone(), nil
}

// Update applies p to the stored record in place.
func (tt *todosTable) Update(ctx context.Context, id int64, p types.UpdatePayload) (*types.Todo, error) {
	b := tt.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil, types.ErrStoreDetached
	}

	todo, ok := b.items[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p.Apply(todo)
	return todo.Clone(), nil
}

// Delete removes the record and its position in the order index.
func (tt *todosTable) Delete(ctx context.Context, id int64) error {
	b := tt.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return types.ErrStoreDetached
	}

	if _, ok := b.items[id]; !ok {
		return types.ErrNotFound
	}
	delete(b.items, id)
	if i := slices.Index(b.order, id); i >= 0 {
		b.order = slices.Delete(b.order, i, i+1)
	}
	return nil
}
