package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/watchr/internal/history"
)

// Sink writes history events to SQLite database.
type Sink struct {
	db    *sql.DB
	table string
}

// New creates a new SQLite history sink writing to table.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "sqlite://:memory:"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func New(dsn, table string) (*Sink, error) {
	if err := history.ValidTable(table); err != nil {
		return nil, err
	}
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}

	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	sink := &Sink{db: db, table: table}
	if err := sink.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return sink, nil
}

func (s *Sink) ensureSchema(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s(
			timestamp TIMESTAMP NOT NULL DEFAULT (CURRENT_TIMESTAMP),
			event TEXT NOT NULL,
			inspection TEXT NOT NULL,
			reason TEXT,
			message TEXT,
			pid INTEGER NOT NULL DEFAULT 0
		);`, s.table),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS idx_%[1]s_inspection ON %[1]s(inspection);`, s.table),
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *Sink) Send(ctx context.Context, e history.Event) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s(timestamp, event, inspection, reason, message, pid)
		VALUES(?, ?, ?, ?, ?, ?);`, s.table),
		e.OccurredAt.UTC(), string(e.Type), e.Inspection, history.Nullable(e.Reason), history.Nullable(e.Message), e.PID)
	return err
}

// Count returns how many events of type t were recorded for inspection.
func (s *Sink) Count(ctx context.Context, inspection string, t history.EventType) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE inspection = ? AND event = ?;`, s.table),
		inspection, string(t)).Scan(&n)
	return n, err
}

func (s *Sink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
