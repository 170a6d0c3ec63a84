package lesson

import "context"

// Lesson is the deck a session runs against. SlideCount bounds navigation.
type Lesson struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SlideCount int    `json:"slide_count"`
	CreatedAt  int64  `json:"created_at,omitempty"`
}

// Actor is the authenticated caller as supplied by the identity layer.
type Actor struct {
	ID   string
	Role string // "student" | "teacher" | "admin"
}

func (a Actor) CanInstruct() bool {
	return a.Role == "teacher" || a.Role == "admin"
}

// Store is the persistence contract. Upserts are atomic per key and every
// stored record carries a monotonically comparable updated_at. Lookups for
// missing rows return ErrNotFound, except GetPacing which returns the empty
// config (pacing starts empty and is only ever narrowed by the teacher).
type Store interface {
	PutLesson(ctx context.Context, l Lesson) error
	GetLesson(ctx context.Context, id string) (Lesson, error)

	PutSchema(ctx context.Context, lessonID, slideID string, s SlideSchema, at int64) error
	GetSchema(ctx context.Context, lessonID, slideID string) (SlideSchema, error)
	GetSchemas(ctx context.Context, lessonID string) (map[string]SlideSchema, error)

	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (Session, error)

	GetPacing(ctx context.Context, sessionID string) (PacingConfig, error)
	PutPacing(ctx context.Context, sessionID string, cfg PacingConfig, at int64) error

	GetResponse(ctx context.Context, sessionID, slideID, userID string) (ResponseRecord, error)
	PutResponse(ctx context.Context, r ResponseRecord) error
	ListResponses(ctx context.Context, sessionID string) ([]ResponseRecord, error)

	GetWorkingState(ctx context.Context, sessionID, slideID, userID string) (WorkingState, error)
	PutWorkingState(ctx context.Context, w WorkingState) error
	ListWorkingStates(ctx context.Context, sessionID string) ([]WorkingState, error)
}
