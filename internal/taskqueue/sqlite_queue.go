package taskqueue

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/petrijr/disparo/internal/persistence"
	"github.com/petrijr/disparo/pkg/api"
)

// SQLiteQueue is a persistent task queue implementation backed by
// SQLite. It uses simple FIFO semantics based on an auto-incrementing
// id, with NotBefore gating eligibility.
type SQLiteQueue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewSQLiteQueue initializes the tasks table in the given DB and
// returns a new queue with the default poll interval.
func NewSQLiteQueue(db *sql.DB) (*SQLiteQueue, error) {
	return NewSQLiteQueueWithPollInterval(db, defaultPollInterval)
}

// NewSQLiteQueueWithPollInterval is like NewSQLiteQueue but with an
// explicit interval between eligibility polls when the queue is empty.
func NewSQLiteQueueWithPollInterval(db *sql.DB, pollInterval time.Duration) (*SQLiteQueue, error) {
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	q := &SQLiteQueue{
		db:           db,
		pollInterval: pollInterval,
	}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT,
			event_name TEXT NOT NULL,
			event_data BLOB,
			enqueued_at INTEGER NOT NULL,
			not_before INTEGER NOT NULL,
			attempts INTEGER NOT NULL
		);
	`)
	return err
}

// Ensure SQLiteQueue implements Queue.
var _ Queue = (*SQLiteQueue)(nil)

func (q *SQLiteQueue) Enqueue(ctx context.Context, t Task) error {
	eventData, err := persistence.EncodeValue(t.Event.Data)
	if err != nil {
		return err
	}

	now := time.Now()
	enqueuedAt := now.UnixNano()

	var notBefore int64
	if t.NotBefore.IsZero() {
		notBefore = enqueuedAt
	} else {
		notBefore = t.NotBefore.UnixNano()
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO tasks (task_id, event_name, event_data, enqueued_at, not_before, attempts)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Event.Name,
		eventData,
		enqueuedAt,
		notBefore,
		t.Attempts,
	)
	return err
}

func (q *SQLiteQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		now := time.Now().UnixNano()

		tx, err := q.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}

		var (
			id          int64
			taskID      sql.NullString
			eventName   string
			eventData   []byte
			enqueuedInt int64
			notBefore   int64
			attempts    int
		)

		row := tx.QueryRowContext(ctx, `
			SELECT id, task_id, event_name, event_data, enqueued_at, not_before, attempts
			FROM tasks
			WHERE not_before <= ?
			ORDER BY not_before, id
			LIMIT 1`, now)
		err = row.Scan(&id, &taskID, &eventName, &eventData, &enqueuedInt, &notBefore, &attempts)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				_ = tx.Rollback()
				// Nothing available: sleep a bit and retry.
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(q.pollInterval):
					continue
				}
			}
			_ = tx.Rollback()
			return nil, err
		}

		// Delete the row we just claimed.
		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id); err != nil {
			_ = tx.Rollback()
			return nil, err
		}

		if err := tx.Commit(); err != nil {
			return nil, err
		}

		dataVal, err := persistence.DecodeValue(eventData)
		if err != nil {
			return nil, err
		}

		task := &Task{
			ID:         taskID.String,
			Event:      api.Event{Name: eventName},
			EnqueuedAt: time.Unix(0, enqueuedInt),
			NotBefore:  time.Unix(0, notBefore),
			Attempts:   attempts,
		}
		if m, ok := dataVal.(map[string]any); ok {
			task.Event.Data = m
		}

		return task, nil
	}
}

func (q *SQLiteQueue) Len() int {
	var n int
	err := q.db.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&n)
	if err != nil {
		return 0
	}
	return n
}
