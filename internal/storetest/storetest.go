// Package storetest holds the behavior every Store backend must share. Each
// backend's tests call Run with a constructor for an unattached store.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// NewStore returns a fresh, unattached Store.
type NewStore func() types.Store

// Run executes the contract suite against stores built by newStore and
// attached with the given backend name.
func Run(t *testing.T, backend string, newStore NewStore) {
	s := suite{backend: backend, newStore: newStore}

	t.Run("Lifecycle", s.testLifecycle)
	t.Run("Create", s.testCreate)
	t.Run("List", s.testList)
	t.Run("Get", s.testGet)
	t.Run("Update", s.testUpdate)
	t.Run("Delete", s.testDelete)
	t.Run("IDsNeverReused", s.testIDsNeverReused)
	t.Run("ConcurrentCreate", s.testConcurrentCreate)
	t.Run("Properties", s.testProperties)
}

type suite struct {
	backend  string
	newStore NewStore
}

// table attaches a new store and returns its todo table. The store is
// detached on cleanup.
func (s suite) table(t *testing.T) types.TodoTable {
	t.Helper()
	st := s.newStore()
	require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
	t.Cleanup(func() { st.Detach() })

	table, err := st.Todos()
	require.NoError(t, err)
	return table
}

func strPtr(s string) *string { return &s }

func (s suite) testLifecycle(t *testing.T) {
	t.Run("todos before attach returns ErrStoreDetached", func(t *testing.T) {
		st := s.newStore()
		_, err := st.Todos()
		assert.ErrorIs(t, err, types.ErrStoreDetached)
	})

	t.Run("attach twice returns ErrAlreadyAttached", func(t *testing.T) {
		st := s.newStore()
		require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
		defer st.Detach()
		assert.ErrorIs(t, st.Attach(types.Config{Backend: s.backend}), types.ErrAlreadyAttached)
	})

	t.Run("attach rejects invalid config", func(t *testing.T) {
		st := s.newStore()
		assert.ErrorIs(t, st.Attach(types.Config{}), types.ErrBackendEmpty)
	})

	t.Run("detach is idempotent", func(t *testing.T) {
		st := s.newStore()
		require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
		require.NoError(t, st.Detach())
		require.NoError(t, st.Detach())
	})

	t.Run("table operations after detach return ErrStoreDetached", func(t *testing.T) {
		ctx := context.Background()
		st := s.newStore()
		require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
		table, err := st.Todos()
		require.NoError(t, err)
		require.NoError(t, st.Detach())

		_, err = table.Create(ctx, types.CreatePayload{Title: "x"})
		assert.ErrorIs(t, err, types.ErrStoreDetached)
		_, err = table.List(ctx)
		assert.ErrorIs(t, err, types.ErrStoreDetached)
		_, err = table.Get(ctx, 1)
		assert.ErrorIs(t, err, types.ErrStoreDetached)
		_, err = table.Update(ctx, 1, types.UpdatePayload{})
		assert.ErrorIs(t, err, types.ErrStoreDetached)
		assert.ErrorIs(t, table.Delete(ctx, 1), types.ErrStoreDetached)
	})

	t.Run("reattach starts empty", func(t *testing.T) {
		ctx := context.Background()
		st := s.newStore()
		require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
		table, err := st.Todos()
		require.NoError(t, err)
		_, err = table.Create(ctx, types.CreatePayload{Title: "x"})
		require.NoError(t, err)
		require.NoError(t, st.Detach())

		require.NoError(t, st.Attach(types.Config{Backend: s.backend}))
		defer st.Detach()
		table, err = st.Todos()
		require.NoError(t, err)
		all, err := table.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)

		created, err := table.Create(ctx, types.CreatePayload{Title: "y"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), created.ID)
	})
}

func (s suite) testCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults", func(t *testing.T) {
		table := s.table(t)
		got, err := table.Create(ctx, types.CreatePayload{Title: "Buy milk"})
		require.NoError(t, err)
		assert.Equal(t, &types.Todo{ID: 1, Title: "Buy milk"}, got)
	})

	t.Run("all fields", func(t *testing.T) {
		table := s.table(t)
		got, err := table.Create(ctx, types.CreatePayload{
			Title:       "Walk dog",
			Description: strPtr("around the block"),
			Completed:   true,
		})
		require.NoError(t, err)
		assert.Equal(t, &types.Todo{
			ID:          1,
			Title:       "Walk dog",
			Description: strPtr("around the block"),
			Completed:   true,
		}, got)
	})

	t.Run("empty description is kept distinct from unset", func(t *testing.T) {
		table := s.table(t)
		created, err := table.Create(ctx, types.CreatePayload{Title: "x", Description: strPtr("")})
		require.NoError(t, err)

		got, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Description)
		assert.Equal(t, "", *got.Description)
	})

	t.Run("empty title is rejected without consuming an id", func(t *testing.T) {
		table := s.table(t)
		_, err := table.Create(ctx, types.CreatePayload{Title: ""})
		assert.ErrorIs(t, err, types.ErrInvalidTitle)

		got, err := table.Create(ctx, types.CreatePayload{Title: "ok"})
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.ID)
	})

	t.Run("ids increase from one", func(t *testing.T) {
		table := s.table(t)
		for i := 1; i <= 5; i++ {
			got, err := table.Create(ctx, types.CreatePayload{Title: fmt.Sprintf("t%d", i)})
			require.NoError(t, err)
			assert.Equal(t, int64(i), got.ID)
		}
	})
}

func (s suite) testList(t *testing.T) {
	ctx := context.Background()

	t.Run("empty table returns empty non-nil slice", func(t *testing.T) {
		table := s.table(t)
		got, err := table.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("insertion order", func(t *testing.T) {
		table := s.table(t)
		titles := []string{"first", "second", "third"}
		for _, title := range titles {
			_, err := table.Create(ctx, types.CreatePayload{Title: title})
			require.NoError(t, err)
		}

		got, err := table.List(ctx)
		require.NoError(t, err)
		require.Len(t, got, len(titles))
		for i, todo := range got {
			assert.Equal(t, int64(i+1), todo.ID)
			assert.Equal(t, titles[i], todo.Title)
		}
	})

	t.Run("returned records are copies", func(t *testing.T) {
		table := s.table(t)
		_, err := table.Create(ctx, types.CreatePayload{Title: "orig", Description: strPtr("d")})
		require.NoError(t, err)

		got, err := table.List(ctx)
		require.NoError(t, err)
		got[0].Title = "mutated"
		*got[0].Description = "mutated"

		again, err := table.Get(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "orig", again.Title)
		assert.Equal(t, "d", *again.Description)
	})
}

func (s suite) testGet(t *testing.T) {
	ctx := context.Background()

	t.Run("existing record", func(t *testing.T) {
		table := s.table(t)
		created, err := table.Create(ctx, types.CreatePayload{Title: "x"})
		require.NoError(t, err)

		got, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("never created id returns ErrNotFound", func(t *testing.T) {
		table := s.table(t)
		for _, id := range []int64{0, 1, -1, 42} {
			_, err := table.Get(ctx, id)
			assert.ErrorIs(t, err, types.ErrNotFound, "id %d", id)
		}
	})
}

func (s suite) testUpdate(t *testing.T) {
	ctx := context.Background()

	seed := func(t *testing.T) (types.TodoTable, *types.Todo) {
		table := s.table(t)
		created, err := table.Create(ctx, types.CreatePayload{Title: "Buy milk", Description: strPtr("2l")})
		require.NoError(t, err)
		return table, created
	}

	t.Run("empty payload leaves record unchanged", func(t *testing.T) {
		table, created := seed(t)
		got, err := table.Update(ctx, created.ID, types.UpdatePayload{})
		require.NoError(t, err)
		assert.Equal(t, created, got)

		stored, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, stored)
	})

	t.Run("only completed changes completed", func(t *testing.T) {
		table, created := seed(t)
		got, err := table.Update(ctx, created.ID, types.UpdatePayload{Completed: types.Some(true)})
		require.NoError(t, err)
		assert.True(t, got.Completed)
		assert.Equal(t, created.Title, got.Title)
		assert.Equal(t, created.Description, got.Description)

		stored, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("explicit false and empty description are applied", func(t *testing.T) {
		table, created := seed(t)
		_, err := table.Update(ctx, created.ID, types.UpdatePayload{Completed: types.Some(true)})
		require.NoError(t, err)

		got, err := table.Update(ctx, created.ID, types.UpdatePayload{
			Completed:   types.Some(false),
			Description: types.Some(""),
		})
		require.NoError(t, err)
		assert.False(t, got.Completed)
		require.NotNil(t, got.Description)
		assert.Equal(t, "", *got.Description)
	})

	t.Run("null description clears it", func(t *testing.T) {
		table, created := seed(t)
		got, err := table.Update(ctx, created.ID, types.UpdatePayload{Description: types.Null[string]()})
		require.NoError(t, err)
		assert.Nil(t, got.Description)

		stored, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, stored.Description)
	})

	t.Run("title", func(t *testing.T) {
		table, created := seed(t)
		got, err := table.Update(ctx, created.ID, types.UpdatePayload{Title: types.Some("Buy oat milk")})
		require.NoError(t, err)
		assert.Equal(t, "Buy oat milk", got.Title)
		assert.Equal(t, created.ID, got.ID)
	})

	t.Run("invalid payload leaves record unchanged", func(t *testing.T) {
		table, created := seed(t)
		_, err := table.Update(ctx, created.ID, types.UpdatePayload{
			Title:     types.Some(""),
			Completed: types.Some(true),
		})
		assert.ErrorIs(t, err, types.ErrInvalidTitle)

		stored, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, stored)
	})

	t.Run("null title and completed are left untouched", func(t *testing.T) {
		table, created := seed(t)
		_, err := table.Update(ctx, created.ID, types.UpdatePayload{Completed: types.Some(true)})
		require.NoError(t, err)

		got, err := table.Update(ctx, created.ID, types.UpdatePayload{
			Title:       types.Null[string](),
			Description: types.Some("1l"),
			Completed:   types.Null[bool](),
		})
		require.NoError(t, err)
		assert.Equal(t, &types.Todo{
			ID:          created.ID,
			Title:       created.Title,
			Description: strPtr("1l"),
			Completed:   true,
		}, got)

		stored, err := table.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, got, stored)
	})

	t.Run("payload of skipped nulls returns the record unchanged", func(t *testing.T) {
		table, created := seed(t)
		got, err := table.Update(ctx, created.ID, types.UpdatePayload{
			Title:     types.Null[string](),
			Completed: types.Null[bool](),
		})
		require.NoError(t, err)
		assert.Equal(t, created, got)
	})

	t.Run("missing id returns ErrNotFound", func(t *testing.T) {
		table, _ := seed(t)
		_, err := table.Update(ctx, 99, types.UpdatePayload{Completed: types.Some(true)})
		assert.ErrorIs(t, err, types.ErrNotFound)
	})
}

func (s suite) testDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes record without renumbering", func(t *testing.T) {
		table := s.table(t)
		for _, title := range []string{"a", "b", "c"} {
			_, err := table.Create(ctx, types.CreatePayload{Title: title})
			require.NoError(t, err)
		}

		require.NoError(t, table.Delete(ctx, 2))

		_, err := table.Get(ctx, 2)
		assert.ErrorIs(t, err, types.ErrNotFound)

		all, err := table.List(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, int64(1), all[0].ID)
		assert.Equal(t, int64(3), all[1].ID)
	})

	t.Run("missing id returns ErrNotFound", func(t *testing.T) {
		table := s.table(t)
		assert.ErrorIs(t, table.Delete(ctx, 1), types.ErrNotFound)
	})

	t.Run("second delete returns ErrNotFound", func(t *testing.T) {
		table := s.table(t)
		created, err := table.Create(ctx, types.CreatePayload{Title: "x"})
		require.NoError(t, err)
		require.NoError(t, table.Delete(ctx, created.ID))
		assert.ErrorIs(t, table.Delete(ctx, created.ID), types.ErrNotFound)
	})
}

// testIDsNeverReused covers the case where length-based numbering would
// collide: two records, delete the first, create a third.
func (s suite) testIDsNeverReused(t *testing.T) {
	ctx := context.Background()
	table := s.table(t)

	_, err := table.Create(ctx, types.CreatePayload{Title: "one"})
	require.NoError(t, err)
	_, err = table.Create(ctx, types.CreatePayload{Title: "two"})
	require.NoError(t, err)
	require.NoError(t, table.Delete(ctx, 1))

	third, err := table.Create(ctx, types.CreatePayload{Title: "three"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), third.ID)

	// Deleting the highest id must not free it either.
	require.NoError(t, table.Delete(ctx, 3))
	fourth, err := table.Create(ctx, types.CreatePayload{Title: "four"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), fourth.ID)

	two, err := table.Get(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "two", two.Title)
}

func (s suite) testConcurrentCreate(t *testing.T) {
	ctx := context.Background()
	table := s.table(t)

	const workers, perWorker = 8, 25
	ids := make(chan int64, workers*perWorker)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				todo, err := table.Create(ctx, types.CreatePayload{Title: fmt.Sprintf("w%d-%d", w, i)})
				if err != nil {
					t.Errorf("create: %v", err)
					return
				}
				ids <- todo.ID
			}
		}(w)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, workers*perWorker)

	all, err := table.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, workers*perWorker)
}
