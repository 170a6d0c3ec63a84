package lesson

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLStore persists the engine's records over database/sql. Documents,
// schemas and pacing configs are stored as JSON blobs and re-normalized on
// read, so rows written by older shapes stay readable.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

func (s *SQLStore) PutLesson(ctx context.Context, l Lesson) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lessons (id, title, slide_count, created_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (id) DO UPDATE SET title=EXCLUDED.title, slide_count=EXCLUDED.slide_count`,
		l.ID, l.Title, l.SlideCount, l.CreatedAt)
	return err
}

func (s *SQLStore) GetLesson(ctx context.Context, id string) (Lesson, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, slide_count, created_at FROM lessons WHERE id=$1`, id)
	var l Lesson
	if err := row.Scan(&l.ID, &l.Title, &l.SlideCount, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Lesson{}, fmt.Errorf("lesson %s: %w", id, ErrNotFound)
		}
		return Lesson{}, err
	}
	return l, nil
}

func (s *SQLStore) PutSchema(ctx context.Context, lessonID, slideID string, schema SlideSchema, at int64) error {
	buf, err := json.Marshal(schema)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO slide_schemas (lesson_id, slide_id, schema_json, updated_at)
		 VALUES ($1,$2,$3,$4)
		 ON CONFLICT (lesson_id, slide_id) DO UPDATE SET schema_json=EXCLUDED.schema_json, updated_at=EXCLUDED.updated_at`,
		lessonID, slideID, string(buf), at)
	return err
}

func (s *SQLStore) GetSchema(ctx context.Context, lessonID, slideID string) (SlideSchema, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT schema_json FROM slide_schemas WHERE lesson_id=$1 AND slide_id=$2`, lessonID, slideID)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SlideSchema{}, fmt.Errorf("slide %s: %w", slideID, ErrNotFound)
		}
		return SlideSchema{}, err
	}
	return decodeSchema(blob), nil
}

func (s *SQLStore) GetSchemas(ctx context.Context, lessonID string) (map[string]SlideSchema, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slide_id, schema_json FROM slide_schemas WHERE lesson_id=$1`, lessonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]SlideSchema{}
	for rows.Next() {
		var slideID, blob string
		if err := rows.Scan(&slideID, &blob); err != nil {
			return nil, err
		}
		out[slideID] = decodeSchema(blob)
	}
	return out, rows.Err()
}

func decodeSchema(blob string) SlideSchema {
	var raw map[string]any
	_ = json.Unmarshal([]byte(blob), &raw)
	return NormalizeSchema(raw)
}

func (s *SQLStore) PutSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, lesson_id, pacing_mode, frozen, timer_running, timer_ends_at, timer_remaining_sec, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 ON CONFLICT (id) DO UPDATE SET
		   pacing_mode=EXCLUDED.pacing_mode, frozen=EXCLUDED.frozen,
		   timer_running=EXCLUDED.timer_running, timer_ends_at=EXCLUDED.timer_ends_at,
		   timer_remaining_sec=EXCLUDED.timer_remaining_sec, updated_at=EXCLUDED.updated_at`,
		sess.ID, sess.LessonID, sess.PacingMode, sess.Frozen, sess.TimerRunning,
		sess.TimerEndsAt, sess.TimerRemainingSec, sess.CreatedAt, sess.UpdatedAt)
	return err
}

func (s *SQLStore) GetSession(ctx context.Context, id string) (Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, lesson_id, pacing_mode, frozen, timer_running, timer_ends_at, timer_remaining_sec, created_at, updated_at
		 FROM sessions WHERE id=$1`, id)
	var sess Session
	if err := row.Scan(&sess.ID, &sess.LessonID, &sess.PacingMode, &sess.Frozen, &sess.TimerRunning,
		&sess.TimerEndsAt, &sess.TimerRemainingSec, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, fmt.Errorf("session %s: %w", id, ErrNotFound)
		}
		return Session{}, err
	}
	return sess, nil
}

func (s *SQLStore) GetPacing(ctx context.Context, sessionID string) (PacingConfig, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT config_json FROM pacing_configs WHERE session_id=$1`, sessionID)
	var blob string
	if err := row.Scan(&blob); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return PacingConfig{}, nil // pacing starts empty
		}
		return PacingConfig{}, err
	}
	var cfg PacingConfig
	if err := json.Unmarshal([]byte(blob), &cfg); err != nil {
		return PacingConfig{}, nil
	}
	return cfg, nil
}

func (s *SQLStore) PutPacing(ctx context.Context, sessionID string, cfg PacingConfig, at int64) error {
	buf, err := json.Marshal(cfg)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO pacing_configs (session_id, config_json, updated_at)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (session_id) DO UPDATE SET config_json=EXCLUDED.config_json, updated_at=EXCLUDED.updated_at`,
		sessionID, string(buf), at)
	return err
}

func (s *SQLStore) GetResponse(ctx context.Context, sessionID, slideID, userID string) (ResponseRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_json, updated_at FROM responses WHERE session_id=$1 AND slide_id=$2 AND user_id=$3`,
		sessionID, slideID, userID)
	r := ResponseRecord{SessionID: sessionID, SlideID: slideID, UserID: userID}
	var blob string
	if err := row.Scan(&blob, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ResponseRecord{}, fmt.Errorf("response %s/%s/%s: %w", sessionID, slideID, userID, ErrNotFound)
		}
		return ResponseRecord{}, err
	}
	r.Doc, _ = ParseDocument(blob)
	return r, nil
}

func (s *SQLStore) PutResponse(ctx context.Context, r ResponseRecord) error {
	blob, ok := MarshalDocument(r.Doc)
	if !ok {
		return nil // nothing persistable; never write empty placeholders
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (session_id, slide_id, user_id, doc_json, updated_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (session_id, slide_id, user_id) DO UPDATE SET doc_json=EXCLUDED.doc_json, updated_at=EXCLUDED.updated_at`,
		r.SessionID, r.SlideID, r.UserID, blob, r.UpdatedAt)
	return err
}

func (s *SQLStore) ListResponses(ctx context.Context, sessionID string) ([]ResponseRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slide_id, user_id, doc_json, updated_at FROM responses WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ResponseRecord
	for rows.Next() {
		r := ResponseRecord{SessionID: sessionID}
		var blob string
		if err := rows.Scan(&r.SlideID, &r.UserID, &blob, &r.UpdatedAt); err != nil {
			return nil, err
		}
		r.Doc, _ = ParseDocument(blob)
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetWorkingState(ctx context.Context, sessionID, slideID, userID string) (WorkingState, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT doc_json, drawing_path, drawing_text, snapshot_json, updated_at
		 FROM working_states WHERE session_id=$1 AND slide_id=$2 AND user_id=$3`,
		sessionID, slideID, userID)
	w := WorkingState{SessionID: sessionID, SlideID: slideID, UserID: userID}
	var blob string
	if err := row.Scan(&blob, &w.DrawingPath, &w.DrawingText, &w.Snapshot, &w.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return WorkingState{}, fmt.Errorf("working state %s/%s/%s: %w", sessionID, slideID, userID, ErrNotFound)
		}
		return WorkingState{}, err
	}
	w.Doc, _ = ParseDocument(blob)
	return w, nil
}

func (s *SQLStore) PutWorkingState(ctx context.Context, w WorkingState) error {
	blob, _ := MarshalDocument(w.Doc)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO working_states (session_id, slide_id, user_id, doc_json, drawing_path, drawing_text, snapshot_json, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (session_id, slide_id, user_id) DO UPDATE SET
		   doc_json=EXCLUDED.doc_json, drawing_path=EXCLUDED.drawing_path,
		   drawing_text=EXCLUDED.drawing_text, snapshot_json=EXCLUDED.snapshot_json,
		   updated_at=EXCLUDED.updated_at`,
		w.SessionID, w.SlideID, w.UserID, blob, w.DrawingPath, w.DrawingText, w.Snapshot, w.UpdatedAt)
	return err
}

func (s *SQLStore) ListWorkingStates(ctx context.Context, sessionID string) ([]WorkingState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slide_id, user_id, doc_json, drawing_path, drawing_text, snapshot_json, updated_at
		 FROM working_states WHERE session_id=$1`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorkingState
	for rows.Next() {
		w := WorkingState{SessionID: sessionID}
		var blob string
		if err := rows.Scan(&w.SlideID, &w.UserID, &blob, &w.DrawingPath, &w.DrawingText, &w.Snapshot, &w.UpdatedAt); err != nil {
			return nil, err
		}
		w.Doc, _ = ParseDocument(blob)
		out = append(out, w)
	}
	return out, rows.Err()
}
