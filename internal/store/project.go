package store

import (
	"context"
	"database/sql"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// CreateProject inserts a new project. name must already have passed
// validate.ValidateName; the (project_id, project_name) uniqueness
// invariant is enforced by the schema and surfaced as CodeInvalidInput.
func (s *Store) CreateProject(ctx context.Context, name string) (*Project, error) {
	p := &Project{ID: newRowID(), Name: name, CreatedAt: timefmt.Now()}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, name, created_at) VALUES (?, ?, ?)`,
		p.ID, p.Name, nowStr())
	if err != nil {
		return nil, storeErr(err, "create project")
	}
	return p, nil
}

// GetProjectByName looks up a project by its unique name.
func (s *Store) GetProjectByName(ctx context.Context, name string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE name = ?`, name)
	return scanProject(row)
}

// GetProject looks up a project by id.
func (s *Store) GetProject(ctx context.Context, projectID string) (*Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM projects WHERE id = ?`, projectID)
	return scanProject(row)
}

// DeleteProject removes a project and, via ON DELETE CASCADE, every
// agent/session/message/broadcast/task beneath it (invariant 1).
func (s *Store) DeleteProject(ctx context.Context, projectID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, projectID)
	if err != nil {
		return storeErr(err, "delete project")
	}
	return nil
}

func scanProject(row *sql.Row) (*Project, error) {
	var p Project
	var createdAt string
	if err := row.Scan(&p.ID, &p.Name, &createdAt); err != nil {
		return nil, storeErr(err, "scan project")
	}
	p.CreatedAt, _ = timefmt.Parse(createdAt)
	return &p, nil
}
