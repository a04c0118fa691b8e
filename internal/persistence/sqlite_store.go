package persistence

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/petrijr/disparo/pkg/api"
)

// SQLiteRunStore is a RunStore backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the
// driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteRunStore struct {
	db *sql.DB
}

// Ensure SQLiteRunStore implements RunStore.
var _ RunStore = (*SQLiteRunStore)(nil)

// NewSQLiteRunStore initializes the required schema in the given
// database and returns a new SQLiteRunStore.
func NewSQLiteRunStore(db *sql.DB) (*SQLiteRunStore, error) {
	s := &SQLiteRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			function TEXT NOT NULL,
			event_name TEXT NOT NULL,
			event_data BLOB,
			status TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			output BLOB,
			steps BLOB,
			error TEXT,
			created_at INTEGER NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteRunStore) SaveRun(run *api.FunctionRun) error {
	eventData, output, steps, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, function, event_name, event_data, status, current_step, output, steps, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Function,
		run.Event.Name,
		eventData,
		string(run.Status),
		run.CurrentStep,
		output,
		steps,
		errStr,
		run.CreatedAt.UnixNano(),
	)
	return err
}

func (s *SQLiteRunStore) UpdateRun(run *api.FunctionRun) error {
	eventData, output, steps, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET function = ?, event_name = ?, event_data = ?, status = ?, current_step = ?, output = ?, steps = ?, error = ?
		WHERE id = ?`,
		run.Function,
		run.Event.Name,
		eventData,
		string(run.Status),
		run.CurrentStep,
		output,
		steps,
		errStr,
		run.ID,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrRunNotFound
	}

	return nil
}

func (s *SQLiteRunStore) GetRun(id string) (*api.FunctionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, function, event_name, event_data, status, current_step, output, steps, error, created_at
		FROM runs
		WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return run, nil
}

func (s *SQLiteRunStore) ListRuns(filter RunFilter) ([]*api.FunctionRun, error) {
	query := `
		SELECT id, function, event_name, event_data, status, current_step, output, steps, error, created_at
		FROM runs`
	var args []any
	var clauses []string

	if filter.Function != "" {
		clauses = append(clauses, "function = ?")
		args = append(args, filter.Function)
	}
	if filter.Event != "" {
		clauses = append(clauses, "event_name = ?")
		args = append(args, filter.Event)
	}
	if filter.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, string(filter.Status))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY rowid"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*api.FunctionRun

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func encodeRunColumns(run *api.FunctionRun) (eventData, output, steps []byte, errStr string, err error) {
	eventData, err = EncodeValue(run.Event.Data)
	if err != nil {
		return nil, nil, nil, "", err
	}
	output, err = EncodeValue(run.Output)
	if err != nil {
		return nil, nil, nil, "", err
	}
	steps, err = EncodeSteps(run.Steps)
	if err != nil {
		return nil, nil, nil, "", err
	}
	if run.Err != nil {
		errStr = run.Err.Error()
	}
	return eventData, output, steps, errStr, nil
}

func scanRun(row rowScanner) (*api.FunctionRun, error) {
	var run api.FunctionRun
	var statusStr string
	var eventData, output, steps []byte
	var errStr sql.NullString
	var createdAt int64

	if err := row.Scan(
		&run.ID,
		&run.Function,
		&run.Event.Name,
		&eventData,
		&statusStr,
		&run.CurrentStep,
		&output,
		&steps,
		&errStr,
		&createdAt,
	); err != nil {
		return nil, err
	}

	run.Status = api.Status(statusStr)
	run.CreatedAt = time.Unix(0, createdAt)

	dataVal, err := DecodeValue(eventData)
	if err != nil {
		return nil, err
	}
	if m, ok := dataVal.(map[string]any); ok {
		run.Event.Data = m
	}

	outVal, err := DecodeValue(output)
	if err != nil {
		return nil, err
	}
	run.Output = outVal

	stepVals, err := DecodeSteps(steps)
	if err != nil {
		return nil, err
	}
	run.Steps = stepVals

	if errStr.Valid && errStr.String != "" {
		run.Err = errors.New(errStr.String)
	}

	return &run, nil
}
