package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aegisx-platform/budget-service/internal/apperr"
)

type errorBody struct {
	Error   string              `json:"error"`
	Details []apperr.FieldError `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Error: msg})
}

// writeError отдаёт ошибку клиенту как есть — таксономия не глотается.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound   *apperr.NotFoundError
		conflict   *apperr.ConflictError
		transition *apperr.InvalidTransitionError
		immutable  *apperr.ImmutableStateError
		validation *apperr.ValidationError
	)
	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   "validation failed",
			Details: validation.Fields,
		})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: conflict.Error()})
	case errors.As(err, &transition):
		writeJSON(w, http.StatusConflict, errorBody{Error: transition.Error()})
	case errors.As(err, &immutable):
		writeJSON(w, http.StatusLocked, errorBody{Error: immutable.Error()})
	default:
		h.log.Error("command failed", "method", r.Method, "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
