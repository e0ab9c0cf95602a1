package storetest

import (
	"context"
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/mesh-intelligence/todos/pkg/types"
)

func titleGen() *rapid.Generator[string] {
	return rapid.StringMatching(`[A-Za-z0-9 ]{1,40}`)
}

func descriptionGen() *rapid.Generator[*string] {
	return rapid.Ptr(rapid.StringMatching(`[a-z ]{0,20}`), true)
}

// attach opens a fresh table for one rapid iteration. The returned func
// detaches the store.
func (s suite) attach(t *rapid.T) (types.TodoTable, func()) {
	st := s.newStore()
	if err := st.Attach(types.Config{Backend: s.backend}); err != nil {
		t.Fatalf("attach: %v", err)
	}
	table, err := st.Todos()
	if err != nil {
		t.Fatalf("todos: %v", err)
	}
	return table, func() { st.Detach() }
}

func (s suite) testProperties(t *testing.T) {
	t.Run("creates list in order with increasing ids", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			table, done := s.attach(t)
			defer done()

			titles := rapid.SliceOfN(titleGen(), 0, 20).Draw(t, "titles")
			for _, title := range titles {
				if _, err := table.Create(ctx, types.CreatePayload{Title: title}); err != nil {
					t.Fatalf("create %q: %v", title, err)
				}
			}

			all, err := table.List(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(all) != len(titles) {
				t.Fatalf("list length = %d, want %d", len(all), len(titles))
			}
			for i, todo := range all {
				if todo.ID != int64(i+1) {
					t.Fatalf("todo %d has id %d, want %d", i, todo.ID, i+1)
				}
				if todo.Title != titles[i] {
					t.Fatalf("todo %d has title %q, want %q", i, todo.Title, titles[i])
				}
			}
		})
	})

	t.Run("empty update is identity", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			table, done := s.attach(t)
			defer done()

			created, err := table.Create(ctx, types.CreatePayload{
				Title:       titleGen().Draw(t, "title"),
				Description: descriptionGen().Draw(t, "description"),
				Completed:   rapid.Bool().Draw(t, "completed"),
			})
			if err != nil {
				t.Fatalf("create: %v", err)
			}

			got, err := table.Update(ctx, created.ID, types.UpdatePayload{})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			if !todosEqual(created, got) {
				t.Fatalf("update changed record: %+v -> %+v", created, got)
			}
		})
	})

	t.Run("operations match a reference model", func(t *testing.T) {
		rapid.Check(t, func(t *rapid.T) {
			ctx := context.Background()
			table, done := s.attach(t)
			defer done()

			var (
				model  []*types.Todo
				lastID int64
			)
			pick := func(t *rapid.T) int64 {
				if len(model) == 0 || rapid.Bool().Draw(t, "missing") {
					return rapid.Int64Range(lastID+1, lastID+10).Draw(t, "missing id")
				}
				return rapid.SampledFrom(model).Draw(t, "todo").ID
			}
			index := func(id int64) int {
				return slices.IndexFunc(model, func(td *types.Todo) bool { return td.ID == id })
			}

			t.Repeat(map[string]func(*rapid.T){
				"create": func(t *rapid.T) {
					p := types.CreatePayload{
						Title:       titleGen().Draw(t, "title"),
						Description: descriptionGen().Draw(t, "description"),
						Completed:   rapid.Bool().Draw(t, "completed"),
					}
					got, err := table.Create(ctx, p)
					if err != nil {
						t.Fatalf("create: %v", err)
					}
					if got.ID <= lastID {
						t.Fatalf("id %d not above previous %d", got.ID, lastID)
					}
					lastID = got.ID
					model = append(model, p.NewTodo(got.ID))
				},
				"update": func(t *rapid.T) {
					id := pick(t)
					var p types.UpdatePayload
					switch rapid.IntRange(0, 2).Draw(t, "title op") {
					case 1:
						p.Title = types.Some(titleGen().Draw(t, "title"))
					case 2:
						p.Title = types.Null[string]()
					}
					switch rapid.IntRange(0, 2).Draw(t, "completed op") {
					case 1:
						p.Completed = types.Some(rapid.Bool().Draw(t, "completed"))
					case 2:
						p.Completed = types.Null[bool]()
					}
					switch rapid.IntRange(0, 2).Draw(t, "description op") {
					case 1:
						p.Description = types.Some(rapid.StringMatching(`[a-z]{0,10}`).Draw(t, "description"))
					case 2:
						p.Description = types.Null[string]()
					}

					got, err := table.Update(ctx, id, p)
					i := index(id)
					if i < 0 {
						if !errors.Is(err, types.ErrNotFound) {
							t.Fatalf("update missing id %d: err = %v, want ErrNotFound", id, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("update %d: %v", id, err)
					}
					p.Apply(model[i])
					if !todosEqual(model[i], got) {
						t.Fatalf("update %d = %+v, want %+v", id, got, model[i])
					}
				},
				"delete": func(t *rapid.T) {
					id := pick(t)
					err := table.Delete(ctx, id)
					i := index(id)
					if i < 0 {
						if !errors.Is(err, types.ErrNotFound) {
							t.Fatalf("delete missing id %d: err = %v, want ErrNotFound", id, err)
						}
						return
					}
					if err != nil {
						t.Fatalf("delete %d: %v", id, err)
					}
					model = slices.Delete(model, i, i+1)
				},
				"": func(t *rapid.T) {
					all, err := table.List(ctx)
					if err != nil {
						t.Fatalf("list: %v", err)
					}
					if len(all) != len(model) {
						t.Fatalf("list length = %d, want %d", len(all), len(model))
					}
					for i := range all {
						if !todosEqual(all[i], model[i]) {
							t.Fatalf("list[%d] = %+v, want %+v", i, all[i], model[i])
						}
					}
				},
			})
		})
	})
}

func todosEqual(a, b *types.Todo) bool {
	if a.ID != b.ID || a.Title != b.Title || a.Completed != b.Completed {
		return false
	}
	if (a.Description == nil) != (b.Description == nil) {
		return false
	}
	return a.Description == nil || *a.Description == *b.Description
}
