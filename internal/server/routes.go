package server

import (
	"maps"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// idParam is the path wildcard holding a todo id.
const idParam = "todo_id"

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/todos", byMethod(map[string]http.HandlerFunc{
		http.MethodPost: s.handleCreate,
		http.MethodGet:  s.handleList,
	}))
	mux.Handle("/todos/{todo_id}", byMethod(map[string]http.HandlerFunc{
		http.MethodGet:    s.handleGet,
		http.MethodPut:    s.handleUpdate,
		http.MethodDelete: s.handleDelete,
	}))
	mux.Handle("/healthz", byMethod(map[string]http.HandlerFunc{
		http.MethodGet: s.handleHealth,
	}))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: msgNotFound})
	})
	return mux
}

// byMethod dispatches on the request method and answers 405 with an Allow
// header for anything else.
func byMethod(handlers map[string]http.HandlerFunc) http.HandlerFunc {
	allow := strings.Join(slices.Sorted(maps.Keys(handlers)), ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.Method]
		if !ok {
			w.Header().Set("Allow", allow)
			writeJSON(w, http.StatusMethodNotAllowed, detailResponse{Detail: msgMethodNotAllowed})
			return
		}
		h(w, r)
	}
}

// pathID parses the todo id wildcard.
func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(idParam), 10, 64)
	if err != nil {
		ve := invalid("int_parsing",
			"Input should be a valid integer, unable to parse string as an integer",
			"path", idParam)
		ve.Err = types.ErrInvalidID
		return 0, ve
	}
	return id, nil
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var p types.CreatePayload
	if err := decodeBody(w, r, s.schemas.create, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	todo, err := s.table.Create(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Debug("todo created", "id", todo.ID)
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	todos, err := s.table.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	todo, err := s.table.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var p types.UpdatePayload
	if err := decodeBody(w, r, s.schemas.update, &p); err != nil {
		s.writeError(w, r, err)
		return
	}
	todo, err := s.table.Update(r.Context(), id, p)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Debug("todo updated", "id", id)
	writeJSON(w, http.StatusOK, todo)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.table.Delete(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.requestLogger(r).Debug("todo deleted", "id", id)
	writeJSON(w, http.StatusOK, messageResponse{Message: msgTodoDeleted})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
