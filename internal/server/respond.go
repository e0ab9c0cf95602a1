package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mesh-intelligence/todos/pkg/types"
)

// Fixed response messages.
const (
	msgTodoNotFound     = "Todo not found"
	msgTodoDeleted      = "Todo deleted successfully"
	msgNotFound         = "Not Found"
	msgMethodNotAllowed = "Method Not Allowed"
	msgInternal         = "Internal Server Error"
)

type detailResponse struct {
	Detail string `json:"detail"`
}

type validationResponse struct {
	Detail []FieldError `json:"detail"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and body. Unrecognized errors are logged
// and reported as 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: ve.Fields})
	case errors.Is(err, types.ErrNotFound):
		writeJSON(w, http.StatusNotFound, detailResponse{Detail: msgTodoNotFound})
	case errors.Is(err, types.ErrInvalidTitle):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: []FieldError{
			{Loc: []string{"body", "title"}, Msg: err.Error(), Type: "string_too_short"},
		}})
	default:
		s.requestLogger(r).Error("request failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, detailResponse{Detail: msgInternal})
	}
}
