package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Compile-time interface check: todosTable must implement TodoTable.
var _ types.TodoTable = (*todosTable)(nil)

const selectTodo = "SELECT todo_id, title, description, completed FROM todos"

// todosTable implements the TodoTable interface on the todos table.
// Each operation hydrates rows into *types.Todo structs.
type todosTable struct {
	backend *Backend
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// hydrateTodo converts a todos row into a *types.Todo.
func hydrateTodo(row rowScanner) (*types.Todo, error) {
	var (
		todo types.Todo
		desc sql.NullString
	)
	if err := row.Scan(&todo.ID, &todo.Title, &desc, &todo.Completed); err != nil {
		return nil, err
	}
	if desc.Valid {
		d := desc.String
		todo.Description = &d
	}
	return &todo, nil
}

// nullableString converts an optional description to a column value.
func nullableString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// db returns the open handle, or ErrStoreDetached. The caller must hold
// backend.mu.
func (tt *todosTable) db() (*sql.DB, error) {
	if !tt.backend.attached || tt.backend.db == nil {
		return nil, types.ErrStoreDetached
	}
	return tt.backend.db, nil
}

// Create inserts a row and returns it with the id SQLite assigned.
func (tt *todosTable) Create(ctx context.Context, p types.CreatePayload) (*types.Todo, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	tt.backend.mu.RLock()
	defer tt.backend.mu.RUnlock()

	db, err := tt.db()
	if err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx,
		"INSERT INTO todos (title, description, completed) VALUES (?, ?, ?)",
		p.Title, nullableString(p.Description), p.Completed,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading todo id: %w", err)
	}
	return p.NewTodo(id), nil
}

// List returns all rows ordered by id, which is insertion order.
func (tt *todosTable) List(ctx context.Context) ([]*types.Todo, error) {
	tt.backend.mu.RLock()
	defer tt.backend.mu.RUnlock()

	db, err := tt.db()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, selectTodo+" ORDER BY todo_id")
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	defer rows.Close()

	out := make([]*types.Todo, 0)
	for rows.Next() {
		todo, err := hydrateTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning todo: %w", err)
		}
		out = append(out, todo)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating todos: %w", err)
	}
	return out, nil
}

// Get retrieves a todo by id.
func (tt *todosTable) Get(ctx context.Context, id int64) (*types.Todo, error) {
	tt.backend.mu.RLock()
	defer tt.backend.mu.RUnlock()

	db, err := tt.db()
	if err != nil {
		return nil, err
	}

	todo, err := hydrateTodo(db.QueryRowContext(ctx, selectTodo+" WHERE todo_id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting todo %d: %w", id, err)
	}
	return todo, nil
}

// Update reads the row, applies p, and writes it back in one transaction.
// A payload that changes nothing skips the write.
func (tt *todosTable) Update(ctx context.Context, id int64, p types.UpdatePayload) (*types.Todo, error) {
	tt.backend.mu.RLock()
	defer tt.backend.mu.RUnlock()

	db, err := tt.db()
	if err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	todo, err := hydrateTodo(tx.QueryRowContext(ctx, selectTodo+" WHERE todo_id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("getting todo %d: %w", id, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Empty() {
		return todo, nil
	}
	p.Apply(todo)

	_, err = tx.ExecContext(ctx,
		"UPDATE todos SET title = ?, description = ?, completed = ? WHERE todo_id = ?",
		todo.Title, nullableString(todo.Description), todo.Completed, id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating todo %d: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing todo %d: %w", id, err)
	}
	return todo, nil
}

// Delete removes a todo by id.
func (tt *todosTable) Delete(ctx context.Context, id int64) error {
	tt.backend.mu.RLock()
	defer tt.backend.mu.RUnlock()

	db, err := tt.db()
	if err != nil {
		return err
	}

	res, err := db.ExecContext(ctx, "DELETE FROM todos WHERE todo_id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if n == 0 {
		return types.ErrNotFound
	}
	return nil
}
