package persistence

import (
	"context"
	"database/sql"
	"time"

	"github.com/petrijr/disparo/pkg/api"
)

// SQLiteHistoryStore is an append-only HistoryStore backed by SQLite.
type SQLiteHistoryStore struct {
	db *sql.DB
}

// Ensure SQLiteHistoryStore implements HistoryStore.
var _ HistoryStore = (*SQLiteHistoryStore)(nil)

// NewSQLiteHistoryStore initializes the run_events table in the given
// database and returns a new SQLiteHistoryStore.
func NewSQLiteHistoryStore(db *sql.DB) (*SQLiteHistoryStore, error) {
	s := &SQLiteHistoryStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteHistoryStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS run_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL,
			at INTEGER NOT NULL,
			type TEXT NOT NULL,
			function TEXT,
			step TEXT,
			detail TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_run_events_run_id ON run_events(run_id);
	`)
	return err
}

func (s *SQLiteHistoryStore) AppendEvent(ctx context.Context, ev api.RunEvent) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_events (run_id, at, type, function, step, detail)
		VALUES (?, ?, ?, ?, ?, ?)`,
		ev.RunID,
		at.UnixNano(),
		string(ev.Type),
		ev.Function,
		ev.Step,
		ev.Detail,
	)
	return err
}

func (s *SQLiteHistoryStore) ListEvents(ctx context.Context, runID string) ([]api.RunEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, at, type, function, step, detail
		FROM run_events
		WHERE run_id = ?
		ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []api.RunEvent
	for rows.Next() {
		var ev api.RunEvent
		var at int64
		var typeStr string
		if err := rows.Scan(&ev.RunID, &at, &typeStr, &ev.Function, &ev.Step, &ev.Detail); err != nil {
			return nil, err
		}
		ev.At = time.Unix(0, at)
		ev.Type = api.RunEventType(typeStr)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
