package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Package-level Prometheus collectors. They are registered via Register.
var (
	regOK atomic.Bool

	checksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchr",
			Subsystem: "sentinel",
			Name:      "checks_total",
			Help:      "Number of health evaluations by result.",
		}, []string{"name", "result"},
	)
	checkDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "watchr",
			Subsystem: "sentinel",
			Name:      "check_duration_seconds",
			Help:      "Time spent in one health evaluation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"},
	)
	restartsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchr",
			Subsystem: "sentinel",
			Name:      "restarts_total",
			Help:      "Number of restarts triggered, by reason code.",
		}, []string{"name", "reason"},
	)
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "watchr",
			Subsystem: "sentinel",
			Name:      "commands_total",
			Help:      "Number of stop/start command invocations by outcome (ok, nonzero, error).",
		}, []string{"name", "kind", "outcome"},
	)
	healthy = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "watchr",
			Subsystem: "sentinel",
			Name:      "healthy",
			Help:      "1 when the last evaluation was healthy, 0 otherwise.",
		}, []string{"name"},
	)
	residentMemory = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "watchr",
			Subsystem: "target",
			Name:      "resident_memory_bytes",
			Help:      "Resident set size of the monitored process at its last healthy check.",
		}, []string{"name"},
	)
	cpuPercent = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "watchr",
			Subsystem: "target",
			Name:      "cpu_percent",
			Help:      "CPU percent of the monitored process at its last healthy check.",
		}, []string{"name"},
	)
	cycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "watchr",
			Subsystem: "scheduler",
			Name:      "cycle_duration_seconds",
			Help:      "Time spent ticking every sentinel once.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	sentinels = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "watchr",
			Subsystem: "scheduler",
			Name:      "sentinels",
			Help:      "Number of sentinels driven by the scheduler.",
		},
	)
)

// Register registers all metrics with the provided registerer.
// It is safe to call multiple times; subsequent calls after success are no-ops.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{checksTotal, checkDuration, restartsTotal, commandsTotal, healthy, residentMemory, cpuPercent, cycleDuration, sentinels}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			// If already registered, ignore (allows double Register with default registry)
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler returns an http.Handler that serves Prometheus metrics for the DefaultGatherer.
func Handler() http.Handler { return promhttp.Handler() }

// HandlerFor serves metrics from g instead of the default gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Below are lightweight helpers used by internal packages to record metrics.
// They no-op if Register hasn't been called.

func ObserveCheck(name string, ok bool, seconds float64) {
	if !regOK.Load() {
		return
	}
	result := "healthy"
	v := 1.0
	if !ok {
		result = "unhealthy"
		v = 0
	}
	checksTotal.WithLabelValues(name, result).Inc()
	checkDuration.WithLabelValues(name).Observe(seconds)
	healthy.WithLabelValues(name).Set(v)
}

func IncRestart(name, reason string) {
	if regOK.Load() {
		restartsTotal.WithLabelValues(name, reason).Inc()
	}
}

func IncCommand(name, kind, outcome string) {
	if regOK.Load() {
		commandsTotal.WithLabelValues(name, kind, outcome).Inc()
	}
}

func SetUsage(name string, rss uint64, cpu float64) {
	if regOK.Load() {
		residentMemory.WithLabelValues(name).Set(float64(rss))
		cpuPercent.WithLabelValues(name).Set(cpu)
	}
}

func ObserveCycle(seconds float64) {
	if regOK.Load() {
		cycleDuration.Observe(seconds)
	}
}

func SetSentinels(n int) {
	if regOK.Load() {
		sentinels.Set(float64(n))
	}
}
