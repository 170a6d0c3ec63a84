package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/paceboard/paceboard/internal/lesson"
)

func CreateLessonHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Title      string `json:"title"`
			SlideCount int    `json:"slide_count"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		l, err := svc.CreateLesson(r.Context(), actorFrom(r), req.Title, req.SlideCount)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, l)
	}
}

func GetLessonHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l, err := svc.GetLesson(r.Context(), chi.URLParam(r, "lessonID"))
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, l)
	}
}

// PutSchemaHandler accepts any JSON object as the slide's response schema;
// normalization decides what survives. The normalized schema is echoed back.
func PutSchemaHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		schema, err := svc.PutSlideSchema(r.Context(), actorFrom(r),
			chi.URLParam(r, "lessonID"), chi.URLParam(r, "slideID"), raw)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, schema)
	}
}

func CreateSessionHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			LessonID string `json:"lesson_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.LessonID == "" {
			http.Error(w, "lesson_id required", http.StatusBadRequest)
			return
		}
		sess, err := svc.CreateSession(r.Context(), actorFrom(r), req.LessonID)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, sess)
	}
}

// UpdatePacingHandler applies a partial pacing update: only fields present
// in the body are touched, and an explicit null clears a field.
func UpdatePacingHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cfg, err := svc.UpdatePacing(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), raw)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, cfg)
	}
}

func RevealBlocksHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			BlockIDs []string `json:"block_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cfg, err := svc.RevealBlocks(r.Context(), actorFrom(r),
			chi.URLParam(r, "sessionID"), chi.URLParam(r, "slideID"), req.BlockIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, cfg)
	}
}

func FreezeHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Frozen bool `json:"frozen"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sess, err := svc.SetFrozen(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), req.Frozen)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, sess)
	}
}

func PacingModeHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Mode string `json:"mode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sess, err := svc.SetPacingMode(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), req.Mode)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, sess)
	}
}

func TimerHandler(svc *lesson.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Action  string `json:"action"` // start|pause|stop
			Seconds int    `json:"seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		sess, err := svc.Timer(r.Context(), actorFrom(r), chi.URLParam(r, "sessionID"), req.Action, req.Seconds)
		if err != nil {
			writeError(w, err)
			return
		}
		respond(w, sess)
	}
}
