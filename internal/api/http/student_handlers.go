package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/paceboard/paceboard/internal/lesson"
)

// SaveWorkingStateHandler is the autosave path: partial document plus the
// drawing side artifacts, merged into the student's working copy.
func SaveWorkingStateHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Doc         map[string]any `json:"doc"`
			DrawingPath string         `json:"drawing_path"`
			DrawingText string         `json:"drawing_text"`
			Snapshot    string         `json:"snapshot"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		ws, err := svc.SaveWorkingState(r.Context(), actorFrom(r),
			chi.URLParam(r, "sessionID"), chi.URLParam(r, "slideID"),
			req.Doc, req.DrawingPath, req.DrawingText, req.Snapshot)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, ws)
	}
}

func SubmitResponseHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Doc map[string]any `json:"doc"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		rec, err := svc.SubmitResponse(r.Context(), actorFrom(r),
			chi.URLParam(r, "sessionID"), chi.URLParam(r, "slideID"), req.Doc)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, rec)
	}
}

func NavigateHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Current   int `json:"current"`
			Requested int `json:"requested"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		target, err := svc.Navigate(r.Context(), actorFrom(r),
			chi.URLParam(r, "sessionID"), req.Current, req.Requested)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, map[string]int{"index": target})
	}
}

func VisibleBlocksHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		blocks, err := svc.VisibleBlocks(r.Context(), actorFrom(r),
			chi.URLParam(r, "sessionID"), chi.URLParam(r, "slideID"))
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, blocks)
	}
}

func GetSessionHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := svc.GetSession(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, struct {
			lesson.Session
			TimerRemaining int `json:"timer_remaining"`
		}{sess, sess.TimerRemaining(time.Now())})
	}
}
