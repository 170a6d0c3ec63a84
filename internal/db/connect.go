package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:paceboard.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/paceboard?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
PRAGMA foreign_keys=ON;

CREATE TABLE IF NOT EXISTS lessons (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slide_count INTEGER NOT NULL DEFAULT 1,
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS slide_schemas (
  lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  schema_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (lesson_id, slide_id)
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  pacing_mode TEXT NOT NULL DEFAULT 'instructor',
  frozen INTEGER NOT NULL DEFAULT 0,
  timer_running INTEGER NOT NULL DEFAULT 0,
  timer_ends_at INTEGER NOT NULL DEFAULT 0,
  timer_remaining_sec INTEGER NOT NULL DEFAULT 0,
  created_at INTEGER NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS pacing_configs (
  session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
  config_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  doc_json TEXT NOT NULL,
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (session_id, slide_id, user_id)
);

CREATE TABLE IF NOT EXISTS working_states (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  doc_json TEXT NOT NULL DEFAULT '',
  drawing_path TEXT NOT NULL DEFAULT '',
  drawing_text TEXT NOT NULL DEFAULT '',
  snapshot_json TEXT NOT NULL DEFAULT '',
  updated_at INTEGER NOT NULL,
  PRIMARY KEY (session_id, slide_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset INTEGER PRIMARY KEY AUTOINCREMENT, -- BIGSERIAL in Postgres
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,                         -- e.g., ResponseSubmitted
  key TEXT NOT NULL,                         -- natural key: session|slide|user
  data TEXT NOT NULL,                        -- JSON payload
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS lessons (
  id TEXT PRIMARY KEY,
  title TEXT NOT NULL,
  slide_count INTEGER NOT NULL DEFAULT 1,
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS slide_schemas (
  lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  schema_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (lesson_id, slide_id)
);

CREATE TABLE IF NOT EXISTS sessions (
  id TEXT PRIMARY KEY,
  lesson_id TEXT NOT NULL REFERENCES lessons(id) ON DELETE CASCADE,
  pacing_mode TEXT NOT NULL DEFAULT 'instructor',
  frozen BOOLEAN NOT NULL DEFAULT FALSE,
  timer_running BOOLEAN NOT NULL DEFAULT FALSE,
  timer_ends_at BIGINT NOT NULL DEFAULT 0,
  timer_remaining_sec INTEGER NOT NULL DEFAULT 0,
  created_at BIGINT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS pacing_configs (
  session_id TEXT PRIMARY KEY REFERENCES sessions(id) ON DELETE CASCADE,
  config_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS responses (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  doc_json TEXT NOT NULL,
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (session_id, slide_id, user_id)
);

CREATE TABLE IF NOT EXISTS working_states (
  session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
  slide_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  doc_json TEXT NOT NULL DEFAULT '',
  drawing_path TEXT NOT NULL DEFAULT '',
  drawing_text TEXT NOT NULL DEFAULT '',
  snapshot_json TEXT NOT NULL DEFAULT '',
  updated_at BIGINT NOT NULL,
  PRIMARY KEY (session_id, slide_id, user_id)
);

CREATE TABLE IF NOT EXISTS event_log (
  offset BIGSERIAL PRIMARY KEY,
  site_id TEXT NOT NULL DEFAULT 'local',
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`
