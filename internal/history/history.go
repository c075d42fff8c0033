package history

import (
	"context"
	"fmt"
	"regexp"
	"time"
)

// DefaultTable is the table (or search index) events are written to when
// the destination does not name one.
const DefaultTable = "watchr_events"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTable reports whether name can be used as an unquoted SQL identifier.
func ValidTable(name string) error {
	if !tableName.MatchString(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// EventType defines the kind of sentinel event.
type EventType string

const (
	// EventRestart is emitted each time a sentinel runs its restart sequence.
	EventRestart EventType = "restart"
	// EventRecover is emitted when an unhealthy target checks healthy again.
	EventRecover EventType = "recover"
)

// Event is one restart/recovery record exported to external systems.
// Sinks only ever receive events; the supervisor never reads them back.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Inspection string    `json:"inspection"`
	Reason     string    `json:"reason,omitempty"`  // machine readable reason code
	Message    string    `json:"message,omitempty"` // human readable cause
	PID        int       `json:"pid,omitempty"`     // last pid read from the pid file, 0 if none
}

// Sink is a destination for history events (analytics/statistics systems).
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}

// Nullable returns nil for empty strings so SQL sinks store NULL.
func Nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
