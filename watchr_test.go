package watchr

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func requireUnix(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires Unix-like environment")
	}
}

type recordingExecutor struct {
	mu    sync.Mutex
	calls []string
}

func (e *recordingExecutor) Run(_ context.Context, _ string, c Command) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, c.String())
	return 0, nil
}

func TestFacadeSchedulerRestartsMissingTarget(t *testing.T) {
	requireUnix(t)
	start, err := ParseCommand("/bin/sh -c true")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	exec := &recordingExecutor{}
	sch, err := NewScheduler([]Inspection{{
		Name:        "ghost",
		PIDFile:     filepath.Join(t.TempDir(), "ghost.pid"),
		Start:       start,
		Interval:    time.Hour,
		BadInterval: time.Hour,
	}}, Deps{Executor: exec}, Options{Quantum: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	sch.Cycle(context.Background())
	if len(exec.calls) != 1 || exec.calls[0] != "/bin/sh -c true" {
		t.Fatalf("unexpected calls: %v", exec.calls)
	}
	st := sch.Statuses()
	if len(st) != 1 || st[0].Health != "unhealthy" {
		t.Fatalf("unexpected status: %+v", st)
	}
}

func TestFacadeConfigError(t *testing.T) {
	_, err := NewSentinel(Inspection{Name: "x", PIDFile: "/run/x.pid"}, Deps{})
	if _, ok := err.(*ConfigError); !ok {
		t.Fatalf("expected *ConfigError, got %T %v", err, err)
	}
}

func TestFacadeLoadConfig(t *testing.T) {
	p := filepath.Join(t.TempDir(), "w.toml")
	data := "[inspections.cron]\npid_file = \"/var/run/crond.pid\"\nstart_exec = \"/etc/init.d/cronie start\"\n"
	if err := os.WriteFile(p, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := LoadConfig(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(c.Inspections) != 1 || c.Inspections[0].Start.Path != "/etc/init.d/cronie" {
		t.Fatalf("unexpected config: %+v", c.Inspections)
	}
}

func TestFacadeHistorySink(t *testing.T) {
	s, err := NewHistorySink("sqlite://:memory:")
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if err := s.Send(context.Background(), HistoryEvent{Type: "restart", OccurredAt: time.Now(), Inspection: "x"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if c, ok := s.(io.Closer); ok {
		_ = c.Close()
	}
}

func TestFacadeMetrics(t *testing.T) {
	if err := RegisterMetrics(prometheus.NewRegistry()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := RegisterMetricsDefault(); err != nil {
		t.Fatalf("register default: %v", err)
	}
	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "go_goroutines") {
		t.Fatalf("expected default collectors in output")
	}
}
