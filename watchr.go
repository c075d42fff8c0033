package watchr

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/watchr/internal/command"
	cfg "github.com/loykin/watchr/internal/config"
	"github.com/loykin/watchr/internal/history"
	"github.com/loykin/watchr/internal/history/factory"
	"github.com/loykin/watchr/internal/metrics"
	"github.com/loykin/watchr/internal/scheduler"
	"github.com/loykin/watchr/internal/sentinel"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Inspection = sentinel.Config

type Deps = sentinel.Deps

type Sentinel = sentinel.Sentinel

type State = sentinel.State

type Status = sentinel.Status

type ConfigError = sentinel.ConfigError

type Scheduler = scheduler.Scheduler

type Options = scheduler.Options

type Command = command.Spec

type Executor = command.Executor

type HistorySink = history.Sink

type HistoryEvent = history.Event

type Config = cfg.Config

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// ParseCommand turns a command line into a Command the way the config file does.
func ParseCommand(line string) (Command, error) { return command.Parse(line) }

func NewSentinel(c Inspection, d Deps) (*Sentinel, error) { return sentinel.New(c, d) }

// NewScheduler builds one sentinel per inspection and a scheduler over them.
func NewScheduler(inspections []Inspection, d Deps, o Options) (*Scheduler, error) {
	return scheduler.FromConfigs(inspections, d, o)
}

// NewHistorySink opens a history sink from a DSN (sqlite, postgres,
// clickhouse or opensearch).
func NewHistorySink(dsn string) (HistorySink, error) { return factory.NewSinkFromDSN(dsn) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }
func MetricsHandler() http.Handler                  { return metrics.Handler() }
