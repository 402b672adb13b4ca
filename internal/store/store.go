package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/multiagents/multiagents/internal/errs"
	"github.com/multiagents/multiagents/internal/id"
	"github.com/multiagents/multiagents/internal/timefmt"
)

// ErrNotFound is returned (wrapped) when a lookup by id/name finds no row.
var ErrNotFound = errors.New("not found")

// Store owns every persistent row. All methods are safe for concurrent
// use; the underlying *sql.DB is capped at one connection (see Open), so
// writers serialize naturally and busy_timeout absorbs the rest.
type Store struct {
	db *sql.DB
}

// New wraps an already-open, already-migrated database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// withTx runs fn inside a serializable-for-our-purposes transaction:
// SQLite transactions are always serialized against the single writer
// connection, which is what invariant 6 (no duplicate (project, name) on
// races) relies on.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr(err, "begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return storeErr(err, "commit transaction")
	}
	return nil
}

// storeErr classifies a raw database/sql error into the taxonomy. Unique
// constraint violations are the one case the CLI should treat as a usage
// error rather than an infrastructure failure.
func storeErr(err error, context string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", context, ErrNotFound)
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") {
		return errs.WithDetail(errs.CodeInvalidInput, msg, "%s: name already in use", context)
	}
	return errs.WithDetail(errs.CodeStoreError, msg, "%s", context)
}

func marshalTools(tools []string) string {
	if tools == nil {
		tools = []string{}
	}
	b, _ := json.Marshal(tools)
	return string(b)
}

func unmarshalTools(raw string) []string {
	var tools []string
	if raw == "" {
		return nil
	}
	_ = json.Unmarshal([]byte(raw), &tools)
	return tools
}

func marshalTargets(targets []string) string {
	if targets == nil {
		targets = []string{}
	}
	b, _ := json.Marshal(targets)
	return string(b)
}

func unmarshalTargets(raw string) []string {
	var targets []string
	_ = json.Unmarshal([]byte(raw), &targets)
	return targets
}

func nowStr() string {
	return timefmt.Format(timefmt.Now())
}

func newRowID() string {
	return id.Generate()
}

func durationFromSeconds(s int64) time.Duration {
	return time.Duration(s) * time.Second
}
