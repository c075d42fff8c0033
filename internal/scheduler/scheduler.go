package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/loykin/watchr/internal/metrics"
	"github.com/loykin/watchr/internal/sentinel"
)

// DefaultQuantum is the fixed cadence of the scheduling loop.
const DefaultQuantum = time.Second

// Ticker is one scheduled target. *sentinel.Sentinel implements it.
type Ticker interface {
	Name() string
	Tick(ctx context.Context) bool
}

type Options struct {
	// Quantum is the pause between two cycles (default 1s).
	Quantum time.Duration
	// Concurrent runs each target on its own ticker instead of one
	// sequential loop; a slow target then no longer delays the others.
	Concurrent bool
	Logger     *slog.Logger
}

// Scheduler drives a fixed set of targets until its context is cancelled.
type Scheduler struct {
	targets []Ticker
	opts    Options
	log     *slog.Logger
}

// New builds a Scheduler over targets. Names must be unique; targets are
// visited in name order.
func New(targets []Ticker, opts Options) (*Scheduler, error) {
	if opts.Quantum <= 0 {
		opts.Quantum = DefaultQuantum
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	seen := make(map[string]struct{}, len(targets))
	sorted := make([]Ticker, 0, len(targets))
	for _, t := range targets {
		if _, dup := seen[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate inspection %q", t.Name())
		}
		seen[t.Name()] = struct{}{}
		sorted = append(sorted, t)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name() < sorted[j].Name() })
	return &Scheduler{targets: sorted, opts: opts, log: opts.Logger}, nil
}

// FromConfigs builds one sentinel per config and a Scheduler over them.
// The first construction error is returned unchanged (a *sentinel.ConfigError).
func FromConfigs(cfgs []sentinel.Config, deps sentinel.Deps, opts Options) (*Scheduler, error) {
	targets := make([]Ticker, 0, len(cfgs))
	for _, c := range cfgs {
		s, err := sentinel.New(c, deps)
		if err != nil {
			return nil, err
		}
		targets = append(targets, s)
	}
	return New(targets, opts)
}

// Names returns the target names in visiting order.
func (s *Scheduler) Names() []string {
	out := make([]string, len(s.targets))
	for i, t := range s.targets {
		out[i] = t.Name()
	}
	return out
}

// Statuses returns a snapshot of every target that reports one.
func (s *Scheduler) Statuses() []sentinel.Status {
	out := make([]sentinel.Status, 0, len(s.targets))
	for _, t := range s.targets {
		if r, ok := t.(interface{ Status() sentinel.Status }); ok {
			out = append(out, r.Status())
		}
	}
	return out
}

// Cycle ticks every target once, in order.
func (s *Scheduler) Cycle(ctx context.Context) {
	start := time.Now()
	for _, t := range s.targets {
		if ctx.Err() != nil {
			return
		}
		t.Tick(ctx)
	}
	metrics.ObserveCycle(time.Since(start).Seconds())
}

// Run blocks until ctx is cancelled. Cancellation is a clean stop and
// returns nil.
func (s *Scheduler) Run(ctx context.Context) error {
	metrics.SetSentinels(len(s.targets))
	s.log.Info("scheduler started", "inspections", len(s.targets), "quantum", s.opts.Quantum, "concurrent", s.opts.Concurrent)
	defer s.log.Info("scheduler stopped")
	if s.opts.Concurrent {
		return s.runConcurrent(ctx)
	}

	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}
		s.Cycle(ctx)
		timer.Reset(s.opts.Quantum)
	}
}

func (s *Scheduler) runConcurrent(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, t := range s.targets {
		g.Go(func() error {
			tk := time.NewTicker(s.opts.Quantum)
			defer tk.Stop()
			for {
				t.Tick(gctx)
				select {
				case <-gctx.Done():
					return nil
				case <-tk.C:
				}
			}
		})
	}
	return g.Wait()
}
