// Package realtime fans out invalidation events to clients subscribed by
// room. Delivery is best-effort: the engine stays correct with zero
// subscribers, and callers must never fail a write because a notification
// could not be sent.
package realtime

import "context"

const (
	EventSlideStateChanged = "slide.state_changed"
	EventPacingChanged     = "pacing.changed"
	EventSessionChanged    = "session.changed"
	EventSchemaChanged     = "schema.changed"
)

type Event struct {
	Type      string `json:"type"`
	LessonID  string `json:"lesson_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	SlideID   string `json:"slide_id,omitempty"`
	At        int64  `json:"at,omitempty"`
}

// Rooms lists the channels this event fans out to: one per known scope, or
// the global broadcast channel when neither lesson nor session is known.
func (e Event) Rooms() []string {
	var rooms []string
	if e.LessonID != "" {
		rooms = append(rooms, "lesson:"+e.LessonID)
	}
	if e.SessionID != "" {
		rooms = append(rooms, "session:"+e.SessionID)
	}
	if len(rooms) == 0 {
		rooms = []string{"broadcast"}
	}
	return rooms
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }
func (nopNotifier) Close() error                        { return nil }

// Nop returns a Notifier that drops every event.
func Nop() Notifier { return nopNotifier{} }
