//go:build !windows

package sentinel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/loykin/watchr/internal/command"
	"github.com/loykin/watchr/internal/detector"
	"github.com/loykin/watchr/internal/history"
)

type fakeProbe struct {
	mu       sync.Mutex
	pid      int
	pidErr   error
	cmdlines map[int]string
	cmdErr   error
	paths    map[string]bool
	reads    int
}

func (p *fakeProbe) ReadPID(string) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reads++
	return p.pid, p.pidErr
}

func (p *fakeProbe) Cmdline(_ context.Context, pid int) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmdErr != nil {
		return "", p.cmdErr
	}
	cmd, ok := p.cmdlines[pid]
	if !ok {
		return "", fmt.Errorf("pid %d: %w", pid, detector.ErrProcessNotFound)
	}
	return cmd, nil
}

func (p *fakeProbe) Exists(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paths[path]
}

func (p *fakeProbe) Reads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reads
}

func (p *fakeProbe) set(fn func(p *fakeProbe)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(p)
}

type fakeExecutor struct {
	mu    sync.Mutex
	calls []string
	code  int
	err   error
}

func (e *fakeExecutor) Run(_ context.Context, _ string, s command.Spec) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, s.String())
	return e.code, e.err
}

func (e *fakeExecutor) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

type fakeSink struct {
	mu     sync.Mutex
	events []history.Event
	err    error
}

func (s *fakeSink) Send(_ context.Context, e history.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *fakeSink) Events() []history.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]history.Event(nil), s.events...)
}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock { return &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

var errPermission = errors.New("permission denied")

// script writes an executable shell script and returns its path.
func script(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return p
}

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fixture struct {
	probe *fakeProbe
	exec  *fakeExecutor
	sink  *fakeSink
	clock *clock
	cfg   Config
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	stop := command.Spec{Path: script(t, "stop.sh"), Args: []string{"stop"}}
	return &fixture{
		probe: &fakeProbe{pid: 100, cmdlines: map[int]string{100: "/usr/sbin/rsyslogd -n"}, paths: map[string]bool{}},
		exec:  &fakeExecutor{},
		sink:  &fakeSink{},
		clock: newClock(),
		cfg: Config{
			Name:        "syslog",
			PIDFile:     "/var/run/rsyslogd.pid",
			Start:       command.Spec{Path: script(t, "start.sh"), Args: []string{"start"}},
			Stop:        &stop,
			Cmdline:     "rsyslogd",
			Interval:    DefaultInterval,
			BadInterval: DefaultBadInterval,
		},
	}
}

func (f *fixture) build(t *testing.T) *Sentinel {
	t.Helper()
	s, err := New(f.cfg, Deps{
		Probe:    f.probe,
		Executor: f.exec,
		Sinks:    []history.Sink{f.sink},
		Logger:   quietLogger(),
		Now:      f.clock.Now,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}
