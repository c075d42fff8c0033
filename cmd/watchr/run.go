package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loykin/watchr/internal/command"
	"github.com/loykin/watchr/internal/config"
	"github.com/loykin/watchr/internal/detector"
	"github.com/loykin/watchr/internal/history"
	"github.com/loykin/watchr/internal/history/factory"
	"github.com/loykin/watchr/internal/metrics"
	"github.com/loykin/watchr/internal/scheduler"
	"github.com/loykin/watchr/internal/sentinel"
	"github.com/loykin/watchr/internal/server"
)

func runSupervisor(ctx context.Context, path string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log := cfg.Log.NewSlogger()
	slog.SetDefault(log)

	sinks, closeSinks, err := openSinks(cfg.History)
	if err != nil {
		return err
	}
	defer closeSinks()

	sch, err := scheduler.FromConfigs(cfg.Inspections, sentinel.Deps{
		Probe:       detector.System{},
		Executor:    command.NewRunner(cfg.Log, log),
		Sinks:       sinks,
		Logger:      log,
		SinkTimeout: cfg.History.Timeout,
	}, scheduler.Options{
		Quantum:    cfg.Scheduler.Tick,
		Concurrent: cfg.Scheduler.Concurrent,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		srv, err := server.NewServer(cfg.Metrics.Listen, server.NewRouter(sch, ""), log)
		if err != nil {
			return fmt.Errorf("metrics listen %s: %w", cfg.Metrics.Listen, err)
		}
		log.Info("metrics server listening", "addr", srv.Addr())
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(sctx)
		}()
	}

	return sch.Run(ctx)
}

func openSinks(hc config.HistoryConfig) ([]history.Sink, func(), error) {
	if !hc.Enabled {
		return nil, func() {}, nil
	}
	sinks, closeFn, err := factory.OpenAll(hc.Destinations())
	if err != nil {
		return nil, closeFn, fmt.Errorf("history sink: %w", err)
	}
	if len(sinks) == 0 {
		return nil, closeFn, nil
	}
	return sinks, closeFn, nil
}

// checkConfig loads path and builds every sentinel without starting the loop.
func checkConfig(w io.Writer, path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	sch, err := scheduler.FromConfigs(cfg.Inspections, sentinel.Deps{}, scheduler.Options{})
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "INSPECTION\tPID FILE\tSTART\tSTOP\tINTERVAL\tBAD INTERVAL")
	for _, c := range cfg.Inspections {
		stopCmd := "-"
		if c.Stop != nil {
			stopCmd = c.Stop.String()
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", c.Name, c.PIDFile, c.Start.String(), stopCmd, c.Interval, c.BadInterval)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "%s: %d inspection(s) OK\n", path, len(sch.Names()))
	return err
}
