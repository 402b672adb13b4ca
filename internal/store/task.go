package store

import (
	"context"
	"database/sql"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// CreateTask inserts a new task in TaskTodo status.
func (s *Store) CreateTask(ctx context.Context, projectID, title string) (*Task, error) {
	t := &Task{
		ID:        newRowID(),
		ProjectID: projectID,
		Title:     title,
		Status:    TaskTodo,
		CreatedAt: timefmt.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, project_id, title, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		t.ID, t.ProjectID, t.Title, string(t.Status), nowStr())
	if err != nil {
		return nil, storeErr(err, "create task")
	}
	return t, nil
}

// AssignTask sets a task's assignee and advances its status.
func (s *Store) AssignTask(ctx context.Context, taskID, agentID string, status TaskStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET assignee_agent_id = ?, status = ? WHERE id = ?`,
		agentID, string(status), taskID)
	if err != nil {
		return storeErr(err, "assign task")
	}
	return nil
}

// SetTaskStatus transitions a task through todo/doing/done.
func (s *Store) SetTaskStatus(ctx context.Context, taskID string, status TaskStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET status = ? WHERE id = ?`, string(status), taskID)
	if err != nil {
		return storeErr(err, "set task status")
	}
	return nil
}

// ListTasks returns a project's tasks, optionally narrowed to one
// status. An empty status lists all tasks.
func (s *Store) ListTasks(ctx context.Context, projectID string, status TaskStatus) ([]*Task, error) {
	query := `SELECT id, project_id, title, status, assignee_agent_id, created_at FROM tasks WHERE project_id = ?`
	args := []any{projectID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "list tasks")
	}
	defer rows.Close()

	var out []*Task
	for rows.Next() {
		t, err := scanTaskRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate tasks")
	}
	return out, nil
}

func scanTaskRow(rows *sql.Rows) (*Task, error) {
	var t Task
	var status, createdAt string
	var assignee sql.NullString
	if err := rows.Scan(&t.ID, &t.ProjectID, &t.Title, &status, &assignee, &createdAt); err != nil {
		return nil, storeErr(err, "scan task row")
	}
	t.Status = TaskStatus(status)
	if assignee.Valid {
		v := assignee.String
		t.AssigneeAgentID = &v
	}
	t.CreatedAt, _ = timefmt.Parse(createdAt)
	return &t, nil
}
