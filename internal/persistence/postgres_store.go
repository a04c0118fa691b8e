package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/petrijr/disparo/pkg/api"
)

// PostgresRunStore is a RunStore backed by PostgreSQL.
//
// It expects an *sql.DB opened with a Postgres driver (for example the
// pgx stdlib adapter):
//
//	import _ "github.com/jackc/pgx/v5/stdlib"
//	db, err := sql.Open("pgx", dsn)
type PostgresRunStore struct {
	db *sql.DB
}

// Ensure PostgresRunStore implements RunStore.
var _ RunStore = (*PostgresRunStore)(nil)

// NewPostgresRunStore initializes the required schema in the given
// database and returns a new PostgresRunStore.
func NewPostgresRunStore(db *sql.DB) (*PostgresRunStore, error) {
	s := &PostgresRunStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresRunStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			seq BIGSERIAL,
			id TEXT PRIMARY KEY,
			function TEXT NOT NULL,
			event_name TEXT NOT NULL,
			event_data BYTEA,
			status TEXT NOT NULL,
			current_step INTEGER NOT NULL,
			output BYTEA,
			steps BYTEA,
			error TEXT,
			created_at BIGINT NOT NULL
		);`,
	)
	return err
}

func (s *PostgresRunStore) SaveRun(run *api.FunctionRun) error {
	eventData, output, steps, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO runs (id, function, event_name, event_data, status, current_step, output, steps, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
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

func (s *PostgresRunStore) UpdateRun(run *api.FunctionRun) error {
	eventData, output, steps, errStr, err := encodeRunColumns(run)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		UPDATE runs
		SET function = $1, event_name = $2, event_data = $3, status = $4, current_step = $5, output = $6, steps = $7, error = $8
		WHERE id = $9`,
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

func (s *PostgresRunStore) GetRun(id string) (*api.FunctionRun, error) {
	row := s.db.QueryRow(`
		SELECT id, function, event_name, event_data, status, current_step, output, steps, error, created_at
		FROM runs
		WHERE id = $1`,
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

func (s *PostgresRunStore) ListRuns(filter RunFilter) ([]*api.FunctionRun, error) {
	query := `
		SELECT id, function, event_name, event_data, status, current_step, output, steps, error, created_at
		FROM runs`
	var args []any
	var clauses []string

	if filter.Function != "" {
		args = append(args, filter.Function)
		clauses = append(clauses, fmt.Sprintf("function = $%d", len(args)))
	}
	if filter.Event != "" {
		args = append(args, filter.Event)
		clauses = append(clauses, fmt.Sprintf("event_name = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		clauses = append(clauses, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(clauses) > 0 {
		query = query + " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY seq"

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
