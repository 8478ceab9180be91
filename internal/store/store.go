package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Store struct {
	DB *sql.DB
}

func New(db *sql.DB) *Store { return &Store{DB: db} }

// Task lifecycle states. Transitions only ever move forward; completed
// and failed are terminal.
const (
	TaskStateSubmitted     = "submitted"
	TaskStateWorking       = "working"
	TaskStateInputRequired = "input-required"
	TaskStateCompleted     = "completed"
	TaskStateFailed        = "failed"
)

// Task kinds.
const (
	TaskKindInitial    = "initial"
	TaskKindRefinement = "refinement"
)

var stateRank = map[string]int{
	TaskStateSubmitted:     0,
	TaskStateWorking:       1,
	TaskStateInputRequired: 2,
	TaskStateCompleted:     2,
	TaskStateFailed:        2,
}

// IsTerminal reports whether a task state accepts no further transitions.
func IsTerminal(state string) bool {
	return state == TaskStateCompleted || state == TaskStateFailed || state == TaskStateInputRequired
}

// Task is one asynchronous plan generation run.
type Task struct {
	ID        string
	ContextID string
	Kind      string
	Status    string
	Metadata  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProgressEntry is one audit log line for a task.
type ProgressEntry struct {
	ID        int64
	TaskID    string
	State     string
	Message   string
	CreatedAt time.Time
}

// CreateTask inserts a new task in the submitted state and returns it.
func (s *Store) CreateTask(ctx context.Context, contextID, kind string) (Task, error) {
	t := Task{ID: uuid.NewString(), ContextID: contextID, Kind: kind, Status: TaskStateSubmitted}
	err := s.DB.QueryRowContext(ctx, `
INSERT INTO tasks (id, context_id, kind, status, created_at, updated_at)
VALUES ($1,$2,$3,$4,NOW(),NOW())
RETURNING created_at, updated_at`, t.ID, contextID, kind, t.Status).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return Task{}, fmt.Errorf("creating task: %w", err)
	}
	return t, nil
}

// GetTask fetches a task by id. The bool reports whether it exists.
func (s *Store) GetTask(ctx context.Context, id string) (Task, bool, error) {
	var t Task
	var metaBytes []byte
	err := s.DB.QueryRowContext(ctx, `
SELECT id, context_id, kind, status, metadata, created_at, updated_at
FROM tasks WHERE id=$1`, id).
		Scan(&t.ID, &t.ContextID, &t.Kind, &t.Status, &metaBytes, &t.CreatedAt, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return Task{}, false, nil
	}
	if err != nil {
		return Task{}, false, err
	}
	if len(metaBytes) > 0 {
		_ = json.Unmarshal(metaBytes, &t.Metadata)
	}
	return t, true, nil
}

// SetTaskStatus advances a task to the given state. Backward transitions
// and transitions out of a terminal state are rejected.
func (s *Store) SetTaskStatus(ctx context.Context, id, status string) error {
	newRank, ok := stateRank[status]
	if !ok {
		return fmt.Errorf("unknown task state: %s", status)
	}
	var current string
	if err := s.DB.QueryRowContext(ctx, `SELECT status FROM tasks WHERE id=$1`, id).Scan(&current); err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("task %s not found", id)
		}
		return err
	}
	if IsTerminal(current) {
		return fmt.Errorf("task %s is already %s", id, current)
	}
	if newRank < stateRank[current] {
		return fmt.Errorf("cannot move task %s from %s back to %s", id, current, status)
	}
	_, err := s.DB.ExecContext(ctx, `UPDATE tasks SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	return err
}

// SetTaskMetadata attaches arbitrary metadata to the task, replacing any
// previous value.
func (s *Store) SetTaskMetadata(ctx context.Context, id string, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal task metadata: %w", err)
	}
	_, err = s.DB.ExecContext(ctx, `UPDATE tasks SET metadata=$2, updated_at=NOW() WHERE id=$1`, id, raw)
	return err
}

// AppendProgress records one audit log entry for a task.
func (s *Store) AppendProgress(ctx context.Context, taskID, state, message string) error {
	_, err := s.DB.ExecContext(ctx, `
INSERT INTO task_progress (task_id, state, message, created_at)
VALUES ($1,$2,$3,NOW())`, taskID, state, message)
	return err
}

// ListProgress returns a task's audit log in insertion order.
func (s *Store) ListProgress(ctx context.Context, taskID string) ([]ProgressEntry, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, task_id, state, message, created_at
FROM task_progress WHERE task_id=$1 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ProgressEntry
	for rows.Next() {
		var e ProgressEntry
		if err := rows.Scan(&e.ID, &e.TaskID, &e.State, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListTasksByContext returns all tasks for a conversation, newest first.
func (s *Store) ListTasksByContext(ctx context.Context, contextID string) ([]Task, error) {
	rows, err := s.DB.QueryContext(ctx, `
SELECT id, context_id, kind, status, created_at, updated_at
FROM tasks WHERE context_id=$1 ORDER BY created_at DESC`, contextID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Task
	for rows.Next() {
		var t Task
		if err := rows.Scan(&t.ID, &t.ContextID, &t.Kind, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
