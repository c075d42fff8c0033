package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/loykin/watchr/internal/history"
)

func restart(name, reason string) history.Event {
	return history.Event{
		Type:       history.EventRestart,
		OccurredAt: time.Now().UTC(),
		Inspection: name,
		Reason:     reason,
		Message:    "Process with pid 4242 not found",
		PID:        4242,
	}
}

func TestSQLiteSink_FileDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	sink, err := New("sqlite://"+path, history.DefaultTable)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if err := sink.Send(ctx, restart("cron", "process_gone")); err != nil {
			t.Fatalf("Send: %v", err)
		}
	}
	if err := sink.Send(ctx, history.Event{Type: history.EventRecover, OccurredAt: time.Now(), Inspection: "cron"}); err != nil {
		t.Fatalf("Send recover: %v", err)
	}

	n, err := sink.Count(ctx, "cron", history.EventRestart)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 3 {
		t.Fatalf("restart count = %d, want 3", n)
	}
	n, err = sink.Count(ctx, "cron", history.EventRecover)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("recover count = %d, want 1", n)
	}
}

func TestSQLiteSink_SchemaSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	first, err := New(path, history.DefaultTable)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Send(context.Background(), restart("syslog", "cmdline_mismatch")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	_ = first.Close()

	second, err := New(path, history.DefaultTable)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = second.Close() }()
	n, err := second.Count(context.Background(), "syslog", history.EventRestart)
	if err != nil || n != 1 {
		t.Fatalf("Count after reopen = %d, %v; want 1", n, err)
	}
}

func TestSQLiteSink_InMemoryNullableFields(t *testing.T) {
	sink, err := New("sqlite://:memory:", history.DefaultTable)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx := context.Background()
	if err := sink.Send(ctx, history.Event{Type: history.EventRestart, OccurredAt: time.Now(), Inspection: "sshd"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var reason, message any
	if err := sink.db.QueryRowContext(ctx, `SELECT reason, message FROM watchr_events WHERE inspection = ?`, "sshd").Scan(&reason, &message); err != nil {
		t.Fatalf("query: %v", err)
	}
	if reason != nil || message != nil {
		t.Fatalf("expected NULL reason/message, got %v / %v", reason, message)
	}
}

func TestSQLiteSink_CancelledContext(t *testing.T) {
	sink, err := New(":memory:", history.DefaultTable)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sink.Send(ctx, restart("cron", "pid_unreadable")); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestSQLiteSink_EmptyDSN(t *testing.T) {
	if _, err := New("  ", history.DefaultTable); err == nil {
		t.Fatalf("expected error for empty DSN")
	}
}

func TestSQLiteSink_CustomTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.db")
	sink, err := New(path, "cron_events")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer func() { _ = sink.Close() }()
	ctx := context.Background()
	if err := sink.Send(ctx, restart("cron", "process_gone")); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var n int
	if err := sink.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cron_events;`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("expected one row in cron_events, got %d err=%v", n, err)
	}
}

func TestSQLiteSink_RejectsBadTable(t *testing.T) {
	for _, table := range []string{"", "events; DROP TABLE x", "1events"} {
		if _, err := New(":memory:", table); err == nil {
			t.Fatalf("expected error for table %q", table)
		}
	}
}
