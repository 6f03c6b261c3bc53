package automation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Journal page sizes.
const (
	defaultListLimit = 20
	maxListLimit     = 500
)

// TaskRun is one journal entry: a single Task.Run call and its outcome.
type TaskRun struct {
	ID         string    `json:"id"`
	Task       TaskName  `json:"task"`
	Signal     string    `json:"signal"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`

	// CombatDone is the combat counter when the run finished.
	CombatDone int `json:"combat_done"`
}

// Failed reports whether the run ended with an error.
func (r TaskRun) Failed() bool { return r.Error != "" }

// Repository persists the task-run journal. The journal is history only;
// no scheduling decision reads it.
type Repository interface {
	Create(ctx context.Context, run *TaskRun) error
	GetByID(ctx context.Context, id string) (*TaskRun, error)
	ListRecent(ctx context.Context, limit int) ([]TaskRun, error)
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

const taskRunColumns = `id, task, signal, error, started_at, finished_at, duration_ms, combat_done`

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a journal entry.
func (r *SQLiteRepository) Create(ctx context.Context, run *TaskRun) error {
	query := `INSERT INTO task_runs (` + taskRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		string(run.Task),
		run.Signal,
		nullableString(run.Error),
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.DurationMS,
		run.CombatDone,
	)
	if err != nil {
		return fmt.Errorf("inserting task run: %w", err)
	}
	return nil
}

// GetByID retrieves a journal entry by ID.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*TaskRun, error) {
	query := `SELECT ` + taskRunColumns + ` FROM task_runs WHERE id = ?`

	run, err := scanTaskRun(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying task run: %w", err)
	}
	return run, nil
}

// ListRecent returns the newest entries first. limit is clamped to [1, 500]
// and defaults to 20.
func (r *SQLiteRepository) ListRecent(ctx context.Context, limit int) ([]TaskRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	query := `SELECT ` + taskRunColumns + ` FROM task_runs ORDER BY started_at DESC, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying task runs: %w", err)
	}
	defer rows.Close()

	runs := []TaskRun{}
	for rows.Next() {
		run, scanErr := scanTaskRun(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scanning task run: %w", scanErr)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating task runs: %w", err)
	}
	return runs, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaskRun(scanner rowScanner) (*TaskRun, error) {
	var run TaskRun
	var task, startedAt, finishedAt string
	var errText sql.NullString

	err := scanner.Scan(
		&run.ID,
		&task,
		&run.Signal,
		&errText,
		&startedAt,
		&finishedAt,
		&run.DurationMS,
		&run.CombatDone,
	)
	if err != nil {
		return nil, err
	}

	run.Task = TaskName(task)
	if errText.Valid {
		run.Error = errText.String
	}
	if run.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(timeLayout, finishedAt); err != nil {
		return nil, fmt.Errorf("parsing finished_at: %w", err)
	}
	return &run, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
