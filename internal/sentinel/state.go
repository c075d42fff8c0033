package sentinel

import (
	"fmt"
	"time"
)

type Health int

const (
	Healthy Health = iota
	Unhealthy
)

func (h Health) String() string {
	if h == Unhealthy {
		return "unhealthy"
	}
	return "healthy"
}

// ReasonCode classifies why a target was judged unhealthy.
type ReasonCode string

const (
	ReasonPIDUnreadable     ReasonCode = "pid_unreadable"
	ReasonPIDInvalid        ReasonCode = "pid_invalid"
	ReasonProcessGone       ReasonCode = "process_gone"
	ReasonCmdlineUnreadable ReasonCode = "cmdline_unreadable"
	ReasonCmdlineMismatch   ReasonCode = "cmdline_mismatch"
	ReasonSocketMissing     ReasonCode = "socket_missing"
)

// Reason is the cause handed to Restart.
type Reason struct {
	Code    ReasonCode
	Message string
}

func (r Reason) String() string { return r.Message }

// Verdict is the outcome of one health evaluation. Reason is nil when healthy.
type Verdict struct {
	Health Health
	Reason *Reason
	PID    int
}

func healthy(pid int) Verdict {
	return Verdict{Health: Healthy, PID: pid}
}

func unhealthy(pid int, code ReasonCode, format string, args ...any) Verdict {
	return Verdict{
		Health: Unhealthy,
		PID:    pid,
		Reason: &Reason{Code: code, Message: fmt.Sprintf(format, args...)},
	}
}

// State is an immutable snapshot of a sentinel's health. The zero value is
// healthy and never checked, so the first tick is always due.
type State struct {
	Health        Health
	LastCheckedAt time.Time
}

// Interval returns the re-check interval that applies in this state.
func (s State) Interval(good, bad time.Duration) time.Duration {
	if s.Health == Unhealthy {
		return bad
	}
	return good
}

// Due reports whether strictly more than the applicable interval has
// elapsed since the last check.
func (s State) Due(now time.Time, good, bad time.Duration) bool {
	if s.LastCheckedAt.IsZero() {
		return true
	}
	return now.Sub(s.LastCheckedAt) > s.Interval(good, bad)
}

// Next is the state after a check at now produced v.
func (s State) Next(v Verdict, now time.Time) State {
	return State{Health: v.Health, LastCheckedAt: now}
}
