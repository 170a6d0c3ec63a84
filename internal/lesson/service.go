package lesson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paceboard/paceboard/internal/realtime"
	syncx "github.com/paceboard/paceboard/internal/sync"
)

// EventSink receives one audit event per state-affecting write. Append
// failures are logged, never surfaced: the write already succeeded.
type EventSink interface {
	Append(ctx context.Context, e syncx.Event) error
}

// Service is the write/read orchestrator for the pacing and response engine.
// Every write follows the same shape: normalize, gate (role and freeze,
// checked at write-commit time), persist the whole record atomically, then
// append an audit event and fan out an invalidation — both best-effort.
type Service struct {
	store    Store
	notifier realtime.Notifier
	events   EventSink
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewService(store Store, notifier realtime.Notifier, events EventSink, log *zap.SugaredLogger) *Service {
	if notifier == nil {
		notifier = realtime.Nop()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, notifier: notifier, events: events, log: log, now: time.Now}
}

func transient(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrTransient, err)
}

// ---- teacher operations ----

func (s *Service) CreateLesson(ctx context.Context, actor Actor, title string, slideCount int) (Lesson, error) {
	if !actor.CanInstruct() {
		return Lesson{}, ErrForbidden
	}
	if slideCount <= 0 {
		slideCount = 1
	}
	l := Lesson{
		ID:         uuid.NewString(),
		Title:      title,
		SlideCount: slideCount,
		CreatedAt:  s.now().Unix(),
	}
	if err := s.store.PutLesson(ctx, l); err != nil {
		return Lesson{}, transient("create lesson", err)
	}
	return l, nil
}

func (s *Service) GetLesson(ctx context.Context, id string) (Lesson, error) {
	return s.store.GetLesson(ctx, id)
}

// PutSlideSchema normalizes and stores a slide's response schema. The
// normalized form is returned so the teacher UI can show what actually took
// effect (dropped blocks, assigned ids).
func (s *Service) PutSlideSchema(ctx context.Context, actor Actor, lessonID, slideID string, raw map[string]any) (SlideSchema, error) {
	if !actor.CanInstruct() {
		return SlideSchema{}, ErrForbidden
	}
	if _, err := s.store.GetLesson(ctx, lessonID); err != nil {
		return SlideSchema{}, err
	}
	schema := NormalizeSchema(raw)
	now := s.now().Unix()
	if err := s.store.PutSchema(ctx, lessonID, slideID, schema, now); err != nil {
		return SlideSchema{}, transient("save schema", err)
	}
	s.record(ctx, syncx.EventSchemaUpdated, syncx.Key(lessonID, slideID), schema)
	s.notify(ctx, realtime.Event{Type: realtime.EventSchemaChanged, LessonID: lessonID, SlideID: slideID})
	return schema, nil
}

func (s *Service) CreateSession(ctx context.Context, actor Actor, lessonID string) (Session, error) {
	if !actor.CanInstruct() {
		return Session{}, ErrForbidden
	}
	if _, err := s.store.GetLesson(ctx, lessonID); err != nil {
		return Session{}, err
	}
	now := s.now().Unix()
	sess := Session{
		ID:         uuid.NewString(),
		LessonID:   lessonID,
		PacingMode: PacingInstructor,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.PutSession(ctx, sess); err != nil {
		return Session{}, transient("create session", err)
	}
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (Session, error) {
	return s.store.GetSession(ctx, id)
}

// UpdatePacing applies a partial pacing update. Fields absent from raw stay
// untouched; present-but-null fields are cleared.
func (s *Service) UpdatePacing(ctx context.Context, actor Actor, sessionID string, raw map[string]json.RawMessage) (PacingConfig, error) {
	if !actor.CanInstruct() {
		return PacingConfig{}, ErrForbidden
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return PacingConfig{}, err
	}
	cfg, err := s.store.GetPacing(ctx, sessionID)
	if err != nil {
		return PacingConfig{}, transient("load pacing", err)
	}
	cfg, err = ApplyPacingUpdate(cfg, raw)
	if err != nil {
		return PacingConfig{}, err
	}
	if err := s.store.PutPacing(ctx, sessionID, cfg, s.now().Unix()); err != nil {
		return PacingConfig{}, transient("save pacing", err)
	}
	s.record(ctx, syncx.EventPacingUpdated, sessionID, cfg)
	s.notify(ctx, realtime.Event{Type: realtime.EventPacingChanged, LessonID: sess.LessonID, SessionID: sessionID})
	return cfg, nil
}

// RevealBlocks sets the per-slide visible-block override for a slide. The
// override replaces the schema's default-visible set for that slide only.
func (s *Service) RevealBlocks(ctx context.Context, actor Actor, sessionID, slideID string, blockIDs []string) (PacingConfig, error) {
	if !actor.CanInstruct() {
		return PacingConfig{}, ErrForbidden
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return PacingConfig{}, err
	}
	cfg, err := s.store.GetPacing(ctx, sessionID)
	if err != nil {
		return PacingConfig{}, transient("load pacing", err)
	}
	if cfg.RevealedBlocks == nil {
		cfg.RevealedBlocks = map[string][]string{}
	}
	cfg.RevealedBlocks[slideID] = dedupeStrings(blockIDs, 0)
	if err := s.store.PutPacing(ctx, sessionID, cfg, s.now().Unix()); err != nil {
		return PacingConfig{}, transient("save pacing", err)
	}
	s.record(ctx, syncx.EventPacingUpdated, syncx.Key(sessionID, slideID), cfg)
	s.notify(ctx, realtime.Event{Type: realtime.EventPacingChanged, LessonID: sess.LessonID, SessionID: sessionID, SlideID: slideID})
	return cfg, nil
}

func (s *Service) GetPacing(ctx context.Context, sessionID string) (PacingConfig, error) {
	if _, err := s.store.GetSession(ctx, sessionID); err != nil {
		return PacingConfig{}, err
	}
	return s.store.GetPacing(ctx, sessionID)
}

func (s *Service) SetFrozen(ctx context.Context, actor Actor, sessionID string, frozen bool) (Session, error) {
	return s.mutateSession(ctx, actor, sessionID, func(sess *Session) error {
		sess.Frozen = frozen
		return nil
	})
}

func (s *Service) SetPacingMode(ctx context.Context, actor Actor, sessionID, mode string) (Session, error) {
	if mode != PacingInstructor && mode != PacingStudent {
		return Session{}, fmt.Errorf("unknown pacing mode %q", mode)
	}
	return s.mutateSession(ctx, actor, sessionID, func(sess *Session) error {
		sess.PacingMode = mode
		return nil
	})
}

// Timer drives the session countdown: start (with optional seconds, resuming
// the paused remainder when omitted), pause, or stop.
func (s *Service) Timer(ctx context.Context, actor Actor, sessionID, action string, seconds int) (Session, error) {
	return s.mutateSession(ctx, actor, sessionID, func(sess *Session) error {
		switch action {
		case "start":
			sess.StartTimer(s.now(), seconds)
		case "pause":
			sess.PauseTimer(s.now())
		case "stop":
			sess.StopTimer()
		default:
			return fmt.Errorf("unknown timer action %q", action)
		}
		return nil
	})
}

func (s *Service) mutateSession(ctx context.Context, actor Actor, sessionID string, mutate func(*Session) error) (Session, error) {
	if !actor.CanInstruct() {
		return Session{}, ErrForbidden
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	if err := mutate(&sess); err != nil {
		return Session{}, err
	}
	sess.UpdatedAt = s.now().Unix()
	if err := s.store.PutSession(ctx, sess); err != nil {
		return Session{}, transient("save session", err)
	}
	s.record(ctx, syncx.EventSessionUpdated, sessionID, sess)
	s.notify(ctx, realtime.Event{Type: realtime.EventSessionChanged, LessonID: sess.LessonID, SessionID: sessionID})
	return sess, nil
}

// ---- student operations ----

// SaveWorkingState is the autosave path. The raw partial document is merged
// into the stored working copy; non-empty drawing fields replace the stored
// ones. Rejected outright while the session is frozen.
func (s *Service) SaveWorkingState(ctx context.Context, actor Actor, sessionID, slideID string, raw map[string]any, drawingPath, drawingText, snapshot string) (WorkingState, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return WorkingState{}, err
	}
	if sess.Frozen && !actor.CanInstruct() {
		return WorkingState{}, ErrFrozen
	}
	w, err := s.store.GetWorkingState(ctx, sessionID, slideID, actor.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return WorkingState{}, transient("load working state", err)
		}
		w = WorkingState{SessionID: sessionID, SlideID: slideID, UserID: actor.ID}
	}
	now := s.now().Unix()
	w.Doc = MergeDocument(w.Doc, raw, now)
	if drawingPath != "" {
		w.DrawingPath = drawingPath
	}
	if drawingText != "" {
		w.DrawingText = drawingText
	}
	if snapshot != "" {
		w.Snapshot = snapshot
	}
	w.UpdatedAt = now
	if err := s.store.PutWorkingState(ctx, w); err != nil {
		return WorkingState{}, transient("save working state", err)
	}
	s.record(ctx, syncx.EventWorkingSaved, syncx.Key(sessionID, slideID, actor.ID), w.Doc)
	s.notify(ctx, realtime.Event{Type: realtime.EventSlideStateChanged, LessonID: sess.LessonID, SessionID: sessionID, SlideID: slideID})
	return w, nil
}

// SubmitResponse is the explicit-submit path: the merged document gets a
// submission marker and becomes the durable response record.
func (s *Service) SubmitResponse(ctx context.Context, actor Actor, sessionID, slideID string, raw map[string]any) (ResponseRecord, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return ResponseRecord{}, err
	}
	if sess.Frozen && !actor.CanInstruct() {
		return ResponseRecord{}, ErrFrozen
	}
	r, err := s.store.GetResponse(ctx, sessionID, slideID, actor.ID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return ResponseRecord{}, transient("load response", err)
		}
		r = ResponseRecord{SessionID: sessionID, SlideID: slideID, UserID: actor.ID}
	}
	now := s.now().Unix()
	r.Doc = MergeDocument(r.Doc, raw, now)
	r.Doc.LastSubmittedAt = now
	r.UpdatedAt = now
	if err := s.store.PutResponse(ctx, r); err != nil {
		return ResponseRecord{}, transient("save response", err)
	}
	s.record(ctx, syncx.EventResponseSubmitted, syncx.Key(sessionID, slideID, actor.ID), r.Doc)
	s.notify(ctx, realtime.Event{Type: realtime.EventSlideStateChanged, LessonID: sess.LessonID, SessionID: sessionID, SlideID: slideID})
	return r, nil
}

// Navigate adjudicates a slide-navigation request. The result is clamped to
// the lesson's slide range and snapped to the allowed-slide set; a rejected
// move answers with the caller's current slide, not an error.
func (s *Service) Navigate(ctx context.Context, actor Actor, sessionID string, current, requested int) (int, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	l, err := s.store.GetLesson(ctx, sess.LessonID)
	if err != nil {
		return 0, err
	}
	if requested < 1 {
		requested = 1
	}
	if requested > l.SlideCount {
		requested = l.SlideCount
	}
	if actor.CanInstruct() {
		return requested, nil
	}
	cfg, err := s.store.GetPacing(ctx, sessionID)
	if err != nil {
		return 0, transient("load pacing", err)
	}
	return ResolveNavigationTarget(requested, current, cfg.AllowedSlides), nil
}

// ---- read paths ----

// VisibleBlocks returns the blocks the actor may currently see on a slide.
// Teachers always see the full schema.
func (s *Service) VisibleBlocks(ctx context.Context, actor Actor, sessionID, slideID string) ([]Block, error) {
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	schema, err := s.store.GetSchema(ctx, sess.LessonID, slideID)
	if err != nil {
		return nil, err
	}
	if actor.CanInstruct() {
		return schema.Blocks, nil
	}
	cfg, err := s.store.GetPacing(ctx, sessionID)
	if err != nil {
		return nil, transient("load pacing", err)
	}
	return ResolveVisibleBlocks(schema, slideID, cfg), nil
}

// Board produces the reconciled per-student per-slide grid for dashboards,
// heatmaps and assessment readers. Cells are sorted by (user, slide) so the
// output is stable.
func (s *Service) Board(ctx context.Context, actor Actor, sessionID string) ([]MergedCell, error) {
	if !actor.CanInstruct() {
		return nil, ErrForbidden
	}
	sess, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	responses, err := s.store.ListResponses(ctx, sessionID)
	if err != nil {
		return nil, transient("list responses", err)
	}
	working, err := s.store.ListWorkingStates(ctx, sessionID)
	if err != nil {
		return nil, transient("list working states", err)
	}
	schemas, err := s.store.GetSchemas(ctx, sess.LessonID)
	if err != nil {
		return nil, transient("load schemas", err)
	}
	cells := Reconcile(responses, working, schemas)
	out := make([]MergedCell, 0, len(cells))
	for _, c := range cells {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].SlideID < out[j].SlideID
	})
	return out, nil
}

// ---- best-effort side effects ----

func (s *Service) record(ctx context.Context, typ, key string, data any) {
	if s.events == nil {
		return
	}
	buf, err := json.Marshal(data)
	if err != nil {
		buf = []byte("{}")
	}
	if err := s.events.Append(ctx, syncx.Event{Type: typ, Key: key, DataJSON: string(buf)}); err != nil {
		s.log.Warnw("event log append failed", "type", typ, "key", key, "error", err)
	}
}

func (s *Service) notify(ctx context.Context, ev realtime.Event) {
	ev.At = s.now().Unix()
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warnw("notify failed", "type", ev.Type, "session", ev.SessionID, "error", err)
	}
}
