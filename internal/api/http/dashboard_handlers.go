package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paceboard/paceboard/internal/lesson"
)

// BoardHandler serves the reconciled per-student per-slide grid. Dashboards
// and heatmaps render it directly; assessment callers read the same view.
func BoardHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cells, err := svc.Board(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		if cells == nil {
			cells = []lesson.MergedCell{}
		}
		respond(w, cells)
	}
}

func GetPacingHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg, err := svc.GetPacing(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, cfg)
	}
}
