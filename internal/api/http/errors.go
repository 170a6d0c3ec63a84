package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/paceboard/paceboard/internal/lesson"
	"github.com/paceboard/paceboard/internal/rbac"
)

func actorFrom(r *http.Request) lesson.Actor {
	return lesson.Actor{
		ID:   rbac.SubjectFromContext(r.Context()),
		Role: rbac.RoleFromContext(r.Context()),
	}
}

func respond(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine errors onto HTTP statuses. Students get a generic
// retry message on transient failures; teachers configuring the system get
// the specific validation reason back.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, lesson.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lesson.ErrFrozen):
		http.Error(w, "session is frozen", http.StatusForbidden)
	case errors.Is(err, lesson.ErrForbidden):
		http.Error(w, "forbidden", http.StatusForbidden)
	case errors.Is(err, lesson.ErrTransient):
		http.Error(w, "not saved, try again", http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}
