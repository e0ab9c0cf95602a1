package types

import (
	"context"
	"errors"
)

// TodoTable provides CRUD operations over the todo records of one Store.
// Records returned by any method are copies; mutating them does not change
// stored state.
type TodoTable interface {
	// Create assigns the next id, stores a new record built from p and
	// returns it. Returns ErrInvalidTitle if p.Title is empty.
	Create(ctx context.Context, p CreatePayload) (*Todo, error)

	// List returns every record in insertion order. An empty table returns
	// an empty, non-nil slice.
	List(ctx context.Context) ([]*Todo, error)

	// Get returns the record with the given id.
	// Returns ErrNotFound if no record has that id.
	Get(ctx context.Context, id int64) (*Todo, error)

	// Update applies the present fields of p to the record with the given id
	// and returns the result. Absent fields are left untouched.
	// Returns ErrNotFound if no record has that id.
	Update(ctx context.Context, id int64, p UpdatePayload) (*Todo, error)

	// Delete removes the record with the given id. Other ids are not
	// renumbered. Returns ErrNotFound if no record has that id.
	Delete(ctx context.Context, id int64) error
}

// Table operation errors.
var (
	ErrNotFound     = errors.New("todo not found")
	ErrInvalidID    = errors.New("invalid todo ID")
	ErrInvalidTitle = errors.New("title must not be empty")
)
