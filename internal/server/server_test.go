package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/todos/internal/memory"
	"github.com/mesh-intelligence/todos/pkg/types"
)

// setupServer creates a Server over a fresh memory store.
func setupServer(t *testing.T) *Server {
	t.Helper()
	b := memory.NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendMemory}))
	t.Cleanup(func() { b.Detach() })

	table, err := b.Todos()
	require.NoError(t, err)
	return newServer(t, table)
}

func newServer(t *testing.T, table types.TodoTable) *Server {
	t.Helper()
	s, err := New(table, nil, DefaultOptions())
	require.NoError(t, err)
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeTodo(t *testing.T, rec *httptest.ResponseRecorder) types.Todo {
	t.Helper()
	var todo types.Todo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &todo))
	return todo
}

func decodeFieldErrors(t *testing.T, rec *httptest.ResponseRecorder) []FieldError {
	t.Helper()
	var body validationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Detail
}

func TestCreate(t *testing.T) {
	s := setupServer(t)

	rec := do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"id":1,"title":"Buy milk","description":null,"completed":false}`, rec.Body.String())

	rec = do(t, s, http.MethodPost, "/todos", `{"title":"Walk dog","description":"park","completed":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":2,"title":"Walk dog","description":"park","completed":true}`, rec.Body.String())
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantLoc  []string
		wantType string
	}{
		{name: "empty body", body: "", wantLoc: []string{"body"}, wantType: "missing"},
		{name: "malformed json", body: `{"title":`, wantLoc: []string{"body"}, wantType: "json_invalid"},
		{name: "missing title", body: `{}`, wantLoc: []string{"body", "title"}, wantType: "missing"},
		{name: "title wrong type", body: `{"title":5}`, wantLoc: []string{"body", "title"}, wantType: "type_error"},
		{name: "title null", body: `{"title":null}`, wantLoc: []string{"body", "title"}, wantType: "type_error"},
		{name: "empty title", body: `{"title":""}`, wantLoc: []string{"body", "title"}, wantType: "string_too_short"},
		{name: "completed wrong type", body: `{"title":"x","completed":"maybe"}`, wantLoc: []string{"body", "completed"}, wantType: "type_error"},
		{name: "description wrong type", body: `{"title":"x","description":5}`, wantLoc: []string{"body", "description"}, wantType: "type_error"},
		{name: "body not an object", body: `["Buy milk"]`, wantLoc: []string{"body"}, wantType: "type_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupServer(t)
			rec := do(t, s, http.MethodPost, "/todos", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

			fields := decodeFieldErrors(t, rec)
			require.Len(t, fields, 1, rec.Body.String())
			assert.Equal(t, tt.wantLoc, fields[0].Loc)
			assert.Equal(t, tt.wantType, fields[0].Type)
			assert.NotEmpty(t, fields[0].Msg)

			// Nothing was stored.
			list := do(t, s, http.MethodGet, "/todos", "")
			assert.JSONEq(t, `[]`, list.Body.String())
		})
	}
}

func TestCreateReportsEveryField(t *testing.T) {
	s := setupServer(t)
	rec := do(t, s, http.MethodPost, "/todos", `{"description":1,"completed":"nope"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	fields := decodeFieldErrors(t, rec)
	require.Len(t, fields, 3)
	assert.Equal(t, []string{"body", "completed"}, fields[0].Loc)
	assert.Equal(t, []string{"body", "description"}, fields[1].Loc)
	assert.Equal(t, []string{"body", "title"}, fields[2].Loc)
	assert.Equal(t, "missing", fields[2].Type)
}

func TestListEmpty(t *testing.T) {
	s := setupServer(t)
	rec := do(t, s, http.MethodGet, "/todos", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestGet(t *testing.T) {
	s := setupServer(t)
	do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk"}`)

	rec := do(t, s, http.MethodGet, "/todos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Buy milk", decodeTodo(t, rec).Title)

	rec = do(t, s, http.MethodGet, "/todos/2", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, rec.Body.String())
}

func TestInvalidPathID(t *testing.T) {
	s := setupServer(t)
	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		t.Run(method, func(t *testing.T) {
			rec := do(t, s, method, "/todos/abc", `{}`)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			fields := decodeFieldErrors(t, rec)
			require.Len(t, fields, 1)
			assert.Equal(t, []string{"path", "todo_id"}, fields[0].Loc)
			assert.Equal(t, "int_parsing", fields[0].Type)
		})
	}
}

func TestUpdate(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "empty payload changes nothing",
			body: `{}`,
			want: `{"id":1,"title":"Buy milk","description":"2l","completed":false}`,
		},
		{
			name: "only completed",
			body: `{"completed":true}`,
			want: `{"id":1,"title":"Buy milk","description":"2l","completed":true}`,
		},
		{
			name: "title and description",
			body: `{"title":"Buy oat milk","description":"1l"}`,
			want: `{"id":1,"title":"Buy oat milk","description":"1l","completed":false}`,
		},
		{
			name: "empty description is applied",
			body: `{"description":""}`,
			want: `{"id":1,"title":"Buy milk","description":"","completed":false}`,
		},
		{
			name: "null description clears",
			body: `{"description":null}`,
			want: `{"id":1,"title":"Buy milk","description":null,"completed":false}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupServer(t)
			do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk","description":"2l"}`)

			rec := do(t, s, http.MethodPut, "/todos/1", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.want, rec.Body.String())

			stored := do(t, s, http.MethodGet, "/todos/1", "")
			assert.JSONEq(t, tt.want, stored.Body.String())
		})
	}
}

func TestUpdateValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantLoc []string
	}{
		{name: "empty title", body: `{"title":""}`, wantLoc: []string{"body", "title"}},
		{name: "completed out of range", body: `{"completed":2}`, wantLoc: []string{"body", "completed"}},
		{name: "completed not a word", body: `{"completed":"maybe"}`, wantLoc: []string{"body", "completed"}},
		{name: "missing body", body: "", wantLoc: []string{"body"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupServer(t)
			do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk"}`)

			rec := do(t, s, http.MethodPut, "/todos/1", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			fields := decodeFieldErrors(t, rec)
			require.Len(t, fields, 1)
			assert.Equal(t, tt.wantLoc, fields[0].Loc)

			stored := do(t, s, http.MethodGet, "/todos/1", "")
			assert.JSONEq(t, `{"id":1,"title":"Buy milk","description":null,"completed":false}`, stored.Body.String())
		})
	}
}

func TestUpdateNullFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "null title and completed are skipped",
			body: `{"title":null,"completed":null}`,
			want: `{"id":1,"title":"Buy milk","description":"2l","completed":false}`,
		},
		{
			name: "every field sent with nulls for the unchanged ones",
			body: `{"title":null,"description":"1l","completed":true}`,
			want: `{"id":1,"title":"Buy milk","description":"1l","completed":true}`,
		},
		{
			name: "null description still clears",
			body: `{"title":null,"description":null,"completed":true}`,
			want: `{"id":1,"title":"Buy milk","description":null,"completed":true}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupServer(t)
			do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk","description":"2l"}`)

			rec := do(t, s, http.MethodPut, "/todos/1", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, tt.want, rec.Body.String())

			stored := do(t, s, http.MethodGet, "/todos/1", "")
			assert.JSONEq(t, tt.want, stored.Body.String())
		})
	}
}

func TestBooleanCoercion(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{`true`, true},
		{`1`, true},
		{`0`, false},
		{`"1"`, true},
		{`"yes"`, true},
		{`"Yes"`, true},
		{`"on"`, true},
		{`"t"`, true},
		{`"false"`, false},
		{`"no"`, false},
		{`"OFF"`, false},
		{`"n"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			s := setupServer(t)
			rec := do(t, s, http.MethodPost, "/todos", `{"title":"x","completed":`+tt.value+`}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decodeTodo(t, rec).Completed)

			rec = do(t, s, http.MethodPut, "/todos/1", `{"completed":`+tt.value+`}`)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.want, decodeTodo(t, rec).Completed)
		})
	}
}

func TestBodyTooLarge(t *testing.T) {
	s := setupServer(t)
	body := `{"title":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	rec := do(t, s, http.MethodPost, "/todos", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	fields := decodeFieldErrors(t, rec)
	require.Len(t, fields, 1)
	assert.Equal(t, []string{"body"}, fields[0].Loc)
	assert.Equal(t, "too_long", fields[0].Type)

	list := do(t, s, http.MethodGet, "/todos", "")
	assert.JSONEq(t, `[]`, list.Body.String())
}

func TestPathIDWrapsErrInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/todos/abc", nil)
	req.SetPathValue(idParam, "abc")
	_, err := pathID(req)
	assert.ErrorIs(t, err, types.ErrInvalidID)

	req.SetPathValue(idParam, "42")
	id, err := pathID(req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestUpdateNotFound(t *testing.T) {
	s := setupServer(t)
	rec := do(t, s, http.MethodPut, "/todos/7", `{"completed":true}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, rec.Body.String())
}

func TestDelete(t *testing.T) {
	s := setupServer(t)
	do(t, s, http.MethodPost, "/todos", `{"title":"Buy milk"}`)

	rec := do(t, s, http.MethodDelete, "/todos/1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Todo deleted successfully"}`, rec.Body.String())

	rec = do(t, s, http.MethodDelete, "/todos/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"detail":"Todo not found"}`, rec.Body.String())
}

func TestRouting(t *testing.T) {
	s := setupServer(t)

	t.Run("unknown path", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/nope", "")
		require.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"detail":"Not Found"}`, rec.Body.String())
	})

	t.Run("nested path under an id", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/todos/1/extra", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("wrong method on collection", func(t *testing.T) {
		rec := do(t, s, http.MethodPatch, "/todos", "")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "GET, POST", rec.Header().Get("Allow"))
		assert.JSONEq(t, `{"detail":"Method Not Allowed"}`, rec.Body.String())
	})

	t.Run("wrong method on item", func(t *testing.T) {
		rec := do(t, s, http.MethodPost, "/todos/1", "")
		require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
		assert.Equal(t, "DELETE, GET, PUT", rec.Header().Get("Allow"))
	})

	t.Run("health", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/healthz", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	})
}

func TestRequestID(t *testing.T) {
	s := setupServer(t)

	t.Run("generated when absent", func(t *testing.T) {
		rec := do(t, s, http.MethodGet, "/todos", "")
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})

	t.Run("client value is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("oversized client value is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/todos", nil)
		req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLen+1))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
	})
}

// faultyTable fails or panics on every call.
type faultyTable struct {
	err   error
	panic bool
}

func (f faultyTable) fail() error {
	if f.panic {
		panic("table exploded")
	}
	return f.err
}

func (f faultyTable) Create(context.Context, types.CreatePayload) (*types.Todo, error) {
	return nil, f.fail()
}

func (f faultyTable) List(context.Context) ([]*types.Todo, error) { return nil, f.fail() }

func (f faultyTable) Get(context.Context, int64) (*types.Todo, error) { return nil, f.fail() }

func (f faultyTable) Update(context.Context, int64, types.UpdatePayload) (*types.Todo, error) {
	return nil, f.fail()
}

func (f faultyTable) Delete(context.Context, int64) error { return f.fail() }

func TestInternalErrors(t *testing.T) {
	t.Run("store error", func(t *testing.T) {
		s := newServer(t, faultyTable{err: errors.New("disk on fire")})
		rec := do(t, s, http.MethodGet, "/todos", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
		assert.NotContains(t, rec.Body.String(), "disk on fire")
	})

	t.Run("detached store", func(t *testing.T) {
		s := newServer(t, faultyTable{err: types.ErrStoreDetached})
		rec := do(t, s, http.MethodGet, "/todos/1", "")
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("panic", func(t *testing.T) {
		s := newServer(t, faultyTable{panic: true})
		rec := do(t, s, http.MethodDelete, "/todos/1", "")
		require.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"detail":"Internal Server Error"}`, rec.Body.String())
	})
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	opts := DefaultOptions()
	opts.Addr = ""
	assert.ErrorIs(t, opts.Validate(), types.ErrAddrEmpty)

	opts = DefaultOptions()
	opts.ShutdownTimeout = 0
	assert.ErrorIs(t, opts.Validate(), types.ErrTimeoutInvalid)

	_, err := New(faultyTable{}, nil, opts)
	assert.ErrorIs(t, err, types.ErrTimeoutInvalid)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	skipShort(t)
	s := setupServer(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	resp, err := http.Post("http://"+ln.Addr().String()+"/todos", "application/json",
		strings.NewReader(`{"title":"over the wire"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func skipShort(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("opens a TCP listener")
	}
}
