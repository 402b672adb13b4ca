package store

import (
	"context"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// CreateBroadcast records a fan-out operation's target list before any
// per-target attempt begins, giving every later message a correlation id
// to point back at (spec §4.9).
func (s *Store) CreateBroadcast(ctx context.Context, projectID string, mode BroadcastMode, targets []string) (*Broadcast, error) {
	b := &Broadcast{
		ID:        newRowID(),
		ProjectID: projectID,
		Mode:      mode,
		Targets:   targets,
		CreatedAt: timefmt.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO broadcasts (id, project_id, mode, targets, created_at) VALUES (?, ?, ?, ?, ?)`,
		b.ID, b.ProjectID, string(b.Mode), marshalTargets(b.Targets), nowStr())
	if err != nil {
		return nil, storeErr(err, "create broadcast")
	}
	return b, nil
}

// GetBroadcast looks up a broadcast by id.
func (s *Store) GetBroadcast(ctx context.Context, broadcastID string) (*Broadcast, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, mode, targets, created_at FROM broadcasts WHERE id = ?`, broadcastID)
	var b Broadcast
	var mode, targets, createdAt string
	if err := row.Scan(&b.ID, &b.ProjectID, &mode, &targets, &createdAt); err != nil {
		return nil, storeErr(err, "scan broadcast")
	}
	b.Mode = BroadcastMode(mode)
	b.Targets = unmarshalTargets(targets)
	b.CreatedAt, _ = timefmt.Parse(createdAt)
	return &b, nil
}

// ListBroadcasts returns a project's broadcasts, most recent first.
func (s *Store) ListBroadcasts(ctx context.Context, projectID string, limit int) ([]*Broadcast, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project_id, mode, targets, created_at FROM broadcasts
		 WHERE project_id = ? ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, storeErr(err, "list broadcasts")
	}
	defer rows.Close()

	var out []*Broadcast
	for rows.Next() {
		var b Broadcast
		var mode, targets, createdAt string
		if err := rows.Scan(&b.ID, &b.ProjectID, &mode, &targets, &createdAt); err != nil {
			return nil, storeErr(err, "scan broadcast row")
		}
		b.Mode = BroadcastMode(mode)
		b.Targets = unmarshalTargets(targets)
		b.CreatedAt, _ = timefmt.Parse(createdAt)
		out = append(out, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate broadcasts")
	}
	return out, nil
}
