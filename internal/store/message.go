package store

import (
	"context"
	"database/sql"

	"github.com/multiagents/multiagents/internal/timefmt"
)

// AppendMessageParams is the input to AppendMessage.
type AppendMessageParams struct {
	SessionID   string
	Sender      MessageSender
	Content     string
	BroadcastID *string
}

// AppendMessage records one turn of a session. Messages are append-only;
// nothing ever updates or deletes a row here directly (cascade delete
// from the owning session is the only removal path).
func (s *Store) AppendMessage(ctx context.Context, p AppendMessageParams) (*Message, error) {
	m := &Message{
		ID:          newRowID(),
		SessionID:   p.SessionID,
		Sender:      p.Sender,
		Content:     p.Content,
		BroadcastID: p.BroadcastID,
		CreatedAt:   timefmt.Now(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, sender, content, broadcast_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, string(m.Sender), m.Content, m.BroadcastID, nowStr())
	if err != nil {
		return nil, storeErr(err, "append message")
	}
	return m, nil
}

// ListMessages returns a session's messages in chronological order. A
// zero limit means "no limit".
func (s *Store) ListMessages(ctx context.Context, sessionID string, limit int) ([]*Message, error) {
	query := `SELECT id, session_id, sender, content, broadcast_id, created_at
	          FROM messages WHERE session_id = ? ORDER BY created_at ASC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeErr(err, "list messages")
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate messages")
	}
	return out, nil
}

// ListMessagesByBroadcast returns every per-target message recorded
// under a broadcast id. The Broadcast Coordinator does not call it; it
// builds its aggregated result from the dispatch it ran.
func (s *Store) ListMessagesByBroadcast(ctx context.Context, broadcastID string) ([]*Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, sender, content, broadcast_id, created_at
		 FROM messages WHERE broadcast_id = ? ORDER BY created_at ASC`, broadcastID)
	if err != nil {
		return nil, storeErr(err, "list messages by broadcast")
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		m, err := scanMessageRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(err, "iterate broadcast messages")
	}
	return out, nil
}

func scanMessageRow(rows *sql.Rows) (*Message, error) {
	var m Message
	var sender, createdAt string
	var broadcastID sql.NullString
	if err := rows.Scan(&m.ID, &m.SessionID, &sender, &m.Content, &broadcastID, &createdAt); err != nil {
		return nil, storeErr(err, "scan message row")
	}
	m.Sender = MessageSender(sender)
	if broadcastID.Valid {
		v := broadcastID.String
		m.BroadcastID = &v
	}
	m.CreatedAt, _ = timefmt.Parse(createdAt)
	return &m, nil
}
