package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// CreateSessionParams is the input to CreateSession. ProviderSessionID is
// nil for providers with no resumable native token at creation time.
type CreateSessionParams struct {
	ProjectID         string
	AgentID           string
	ProviderKey       string
	ProviderSessionID *string
}

// CreateSession opens a new session row in SessionActive status.
func (s *Store) CreateSession(ctx context.Context, p CreateSessionParams) (*Session, error) {
	now := timefmt.Now()
	sess := &Session{
		ID:                newRowID(),
		ProjectID:         p.ProjectID,
		AgentID:           p.AgentID,
		ProviderKey:       p.ProviderKey,
		ProviderSessionID: p.ProviderSessionID,
		Status:            SessionActive,
		CreatedAt:         now,
		LastActivity:      &now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ProjectID, sess.AgentID, sess.ProviderKey, sess.ProviderSessionID,
		string(sess.Status), nowStr(), nowStr())
	if err != nil {
		return nil, storeErr(err, "create session")
	}
	return sess, nil
}

// GetSession looks up a session by its conversation id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity
		 FROM sessions WHERE id = ?`, sessionID)
	return scanSession(row)
}

// FindActiveSessionByAgent returns the most recently active session for
// an agent. The Session Resolver does not use it: Resolve creates a new
// session whenever no conversation id is supplied.
func (s *Store) FindActiveSessionByAgent(ctx context.Context, projectID, agentID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity
		 FROM sessions WHERE project_id = ? AND agent_id = ? AND status = ?
		 ORDER BY last_activity DESC LIMIT 1`, projectID, agentID, string(SessionActive))
	return scanSession(row)
}

// ListSessions returns sessions matching filter, most recently active
// first. A zero-value Status defaults to SessionActive; a zero Limit
// defaults to 50.
func (s *Store) ListSessions(ctx context.Context, projectID string, filter SessionListFilter) ([]*Session, error) {
	status := filter.Status
	if status == "" {
		status = SessionActive
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var clauses []string
	args := []any{projectID}
	clauses = append(clauses, "project_id = ?")

	clauses = append(clauses, "status = ?")
	args = append(args, string(status))

	if filter.Agent != "" {
		clauses = append(clauses, "agent_id IN (SELECT id FROM agents WHERE project_id = ? AND name = ?)")
		args = append(args, projectID, filter.Agent)
	}
	if filter.ProviderKey != "" {
		clauses = append(clauses, "provider_key = ?")
		args = append(args, filter.ProviderKey)
	}

	query := fmt.Sprintf(
		`SELECT id, project_id, agent_id, provider_key, provider_session_id, status, created_at, last_activity
		 FROM sessions WHERE %s ORDER BY last_activity DESC LIMIT ? OFFSET ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "list sessions")
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate sessions")
	}
	return out, nil
}

// TouchSession advances last_activity to now, called after every message
// sent through an existing session.
func (s *Store) TouchSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity = ? WHERE id = ?`, nowStr(), sessionID)
	if err != nil {
		return storeErr(err, "touch session")
	}
	return nil
}

// SetSessionProviderID records the provider-native session/conversation
// token once a provider reports one (e.g. a chat id observed in a
// one-shot's output, or a replacement token after a resume fallback).
func (s *Store) SetSessionProviderID(ctx context.Context, sessionID, providerSessionID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET provider_session_id = ? WHERE id = ?`, providerSessionID, sessionID)
	if err != nil {
		return storeErr(err, "set session provider id")
	}
	return nil
}

// MarkSessionStatus sets a session's status, e.g. to invalid when the
// provider rejects a resume token and back to active once a replacement
// token is recorded (spec §4.7 fallback path).
func (s *Store) MarkSessionStatus(ctx context.Context, sessionID string, status SessionStatus) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE id = ?`, string(status), sessionID)
	if err != nil {
		return storeErr(err, "mark session status")
	}
	return nil
}

// CleanupExpiredSessions marks every active session idle for longer than
// idleSeconds as expired, returning how many rows were affected.
func (s *Store) CleanupExpiredSessions(ctx context.Context, idleSeconds int64) (int64, error) {
	cutoff := timefmt.Now().Add(-durationFromSeconds(idleSeconds))
	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET status = ? WHERE status = ? AND last_activity < ?`,
		string(SessionExpired), string(SessionActive), timefmt.Format(cutoff))
	if err != nil {
		return 0, storeErr(err, "cleanup expired sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeErr(err, "cleanup expired sessions rows affected")
	}
	return n, nil
}

func scanSession(row *sql.Row) (*Session, error) {
	var sess Session
	var providerSessionID sql.NullString
	var status, createdAt string
	var lastActivity sql.NullString
	if err := row.Scan(&sess.ID, &sess.ProjectID, &sess.AgentID, &sess.ProviderKey,
		&providerSessionID, &status, &createdAt, &lastActivity); err != nil {
		return nil, storeErr(err, "scan session")
	}
	applySessionScan(&sess, providerSessionID, status, createdAt, lastActivity)
	return &sess, nil
}

func scanSessionRow(rows *sql.Rows) (*Session, error) {
	var sess Session
	var providerSessionID sql.NullString
	var status, createdAt string
	var lastActivity sql.NullString
	if err := rows.Scan(&sess.ID, &sess.ProjectID, &sess.AgentID, &sess.ProviderKey,
		&providerSessionID, &status, &createdAt, &lastActivity); err != nil {
		return nil, storeErr(err, "scan session row")
	}
	applySessionScan(&sess, providerSessionID, status, createdAt, lastActivity)
	return &sess, nil
}

func applySessionScan(sess *Session, providerSessionID sql.NullString, status, createdAt string, lastActivity sql.NullString) {
	if providerSessionID.Valid {
		v := providerSessionID.String
		sess.ProviderSessionID = &v
	}
	sess.Status = SessionStatus(status)
	sess.CreatedAt, _ = timefmt.Parse(createdAt)
	if lastActivity.Valid {
		t, _ := timefmt.Parse(lastActivity.String)
		sess.LastActivity = &t
	}
}
