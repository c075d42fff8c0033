package sentinel

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/watchr/internal/command"
	"github.com/loykin/watchr/internal/detector"
	"github.com/loykin/watchr/internal/history"
	"github.com/loykin/watchr/internal/logger"
	"github.com/loykin/watchr/internal/metrics"
)

// DefaultSinkTimeout bounds a single history export.
const DefaultSinkTimeout = 5 * time.Second

// Deps are the collaborators of a Sentinel. Zero fields get working defaults.
type Deps struct {
	Probe       detector.Probe
	Executor    command.Executor
	Sinks       []history.Sink
	Logger      *slog.Logger
	Now         func() time.Time
	SinkTimeout time.Duration
}

// Sentinel watches one target and restarts it when it is unhealthy.
// Ticks are serialized, so a target never has two checks or two restarts
// in flight.
type Sentinel struct {
	cfg   Config
	check Check
	deps  Deps
	log   *slog.Logger

	// mu serializes ticks and restarts; stateMu only guards state so
	// readers never wait on a running command.
	mu      sync.Mutex
	stateMu sync.RWMutex
	state   State
}

// New validates cfg and builds a Sentinel. Validation failures are
// returned as *ConfigError.
func New(cfg Config, deps Deps) (*Sentinel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Probe == nil {
		deps.Probe = detector.System{}
	}
	if deps.Executor == nil {
		deps.Executor = command.NewRunner(logger.Config{}, deps.Logger)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.SinkTimeout <= 0 {
		deps.SinkTimeout = DefaultSinkTimeout
	}
	return &Sentinel{
		cfg:   cfg,
		check: cfg.check(),
		deps:  deps,
		log:   deps.Logger.With("inspection", cfg.Name),
	}, nil
}

func (s *Sentinel) Name() string { return s.cfg.Name }

func (s *Sentinel) Config() Config { return s.cfg }

// State returns the current health snapshot.
func (s *Sentinel) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Sentinel) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Status is a read-only view of a sentinel for status endpoints.
type Status struct {
	Name          string    `json:"name"`
	Health        string    `json:"health"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	Interval      string    `json:"interval"`
}

func (s *Sentinel) Status() Status {
	st := s.State()
	return Status{
		Name:          s.cfg.Name,
		Health:        st.Health.String(),
		LastCheckedAt: st.LastCheckedAt,
		Interval:      st.Interval(s.cfg.Interval, s.cfg.BadInterval).String(),
	}
}

// Tick runs a health check if one is due and restarts the target when the
// check fails. It reports whether a check was performed.
func (s *Sentinel) Tick(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.deps.Now()
	prev := s.State()
	if !prev.Due(now, s.cfg.Interval, s.cfg.BadInterval) {
		return false
	}

	start := time.Now()
	v := s.check.Evaluate(ctx, s.deps.Probe)
	if ctx.Err() != nil {
		// shutting down; a failure here says nothing about the target
		return false
	}
	metrics.ObserveCheck(s.cfg.Name, v.Health == Healthy, time.Since(start).Seconds())

	s.setState(prev.Next(v, now))
	s.log.Debug("health checked", "health", v.Health.String(), "pid", v.PID)

	if v.Reason != nil {
		s.restart(ctx, *v.Reason, v.PID)
		return true
	}
	if prev.Health == Unhealthy {
		s.log.Info(fmt.Sprintf("%s recovered", s.cfg.Name), "pid", v.PID)
		s.export(ctx, history.Event{
			Type:       history.EventRecover,
			OccurredAt: now.UTC(),
			Inspection: s.cfg.Name,
			PID:        v.PID,
		})
	}
	s.sample(ctx, v.PID)
	return true
}

// Restart runs the restart sequence for r regardless of the current state.
func (s *Sentinel) Restart(ctx context.Context, r Reason) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restart(ctx, r, 0)
}

// restart reports the event, then runs stop (best effort) and start. It does
// not wait for the target to come back; the next check at the bad interval does.
func (s *Sentinel) restart(ctx context.Context, r Reason, pid int) {
	s.log.Warn(fmt.Sprintf("%s restart. Reason - %s", s.cfg.Name, r.Message), "reason", string(r.Code), "pid", pid)
	metrics.IncRestart(s.cfg.Name, string(r.Code))
	s.export(ctx, history.Event{
		Type:       history.EventRestart,
		OccurredAt: s.deps.Now().UTC(),
		Inspection: s.cfg.Name,
		Reason:     string(r.Code),
		Message:    r.Message,
		PID:        pid,
	})

	if s.cfg.Stop != nil {
		s.run(ctx, "stop", *s.cfg.Stop)
	}
	s.run(ctx, "start", s.cfg.Start)
}

func (s *Sentinel) run(ctx context.Context, kind string, spec command.Spec) {
	code, err := s.deps.Executor.Run(ctx, s.cfg.Name, spec)
	switch {
	case err != nil:
		metrics.IncCommand(s.cfg.Name, kind, "error")
		s.log.Error("command failed", "kind", kind, "command", spec.String(), "error", err)
	case code != 0:
		metrics.IncCommand(s.cfg.Name, kind, "nonzero")
		s.log.Warn("command exited non-zero", "kind", kind, "command", spec.String(), "exit_code", code)
	default:
		metrics.IncCommand(s.cfg.Name, kind, "ok")
	}
}

func (s *Sentinel) export(ctx context.Context, e history.Event) {
	for _, sink := range s.deps.Sinks {
		sctx, cancel := context.WithTimeout(ctx, s.deps.SinkTimeout)
		if err := sink.Send(sctx, e); err != nil {
			s.log.Warn("history export failed", "event", string(e.Type), "error", err)
		}
		cancel()
	}
}

func (s *Sentinel) sample(ctx context.Context, pid int) {
	sampler, ok := s.deps.Probe.(detector.UsageSampler)
	if !ok || pid <= 0 {
		return
	}
	u, err := sampler.Usage(ctx, pid)
	if err != nil {
		s.log.Debug("usage sample failed", "pid", pid, "error", err)
		return
	}
	metrics.SetUsage(s.cfg.Name, u.RSS, u.CPUPercent)
}
