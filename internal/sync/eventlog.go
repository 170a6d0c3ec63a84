package syncx

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

const (
	EventWorkingSaved      = "WorkingStateSaved"
	EventResponseSubmitted = "ResponseSubmitted"
	EventPacingUpdated     = "PacingUpdated"
	EventSessionUpdated    = "SessionUpdated"
	EventSchemaUpdated     = "SchemaUpdated"
)

// Event is one append-only audit row. Key is the natural key of the record
// the event concerns (session|slide|user for per-student writes).
type Event struct {
	Offset    int64
	SiteID    string
	Type      string
	Key       string
	DataJSON  string
	CreatedAt int64
}

// Key builds the natural key for a record tuple.
func Key(parts ...string) string { return strings.Join(parts, "|") }

type EventRepo struct{ db *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{db: db} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = "local"
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Since returns events after offset, oldest first, for replay or export.
func (r *EventRepo) Since(ctx context.Context, offset int64, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT offset, site_id, typ, key, data, created_at FROM event_log
		 WHERE offset > $1 ORDER BY offset ASC LIMIT $2`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.Offset, &e.SiteID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
