package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/loykin/watchr/internal/command"
	"github.com/loykin/watchr/internal/logger"
	"github.com/loykin/watchr/internal/sentinel"
)

// Inspection option keys.
const (
	OptPIDFile     = "pid_file"
	OptStartExec   = "start_exec"
	OptStopExec    = "stop_exec"
	OptCmdline     = "cmdline"
	OptUnixSocket  = "unix_socket"
	OptInterval    = "interval"
	OptBadInterval = "bad_interval"
)

const (
	DefaultMetricsListen  = ":9100"
	DefaultHistoryTimeout = 5 * time.Second
)

var ErrNoInspections = errors.New("no inspections defined")

// FileConfig holds the global sections of the TOML file.
//
//	[log.slog]     level, format, color, timestamps, source, output
//	[log.file]     dir, stdout, stderr, max_size_mb, max_backups, max_age_days, compress
//	[metrics]      enabled, listen
//	[history]      enabled, dsn, timeout
//	[scheduler]    tick, concurrent
//	[inspections.<name>] pid_file, start_exec, stop_exec, cmdline, unix_socket, interval, bad_interval
type FileConfig struct {
	Log       logger.Config   `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	History   HistoryConfig   `mapstructure:"history"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

type HistoryConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DSN and DSNs both name destinations; every one of them receives each event.
	DSN     string        `mapstructure:"dsn"`
	DSNs    []string      `mapstructure:"dsns"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Destinations returns the configured DSNs, DSN first, without blanks.
func (h HistoryConfig) Destinations() []string {
	var out []string
	for _, d := range append([]string{h.DSN}, h.DSNs...) {
		if d = strings.TrimSpace(d); d != "" {
			out = append(out, d)
		}
	}
	return out
}

type SchedulerConfig struct {
	Tick       time.Duration `mapstructure:"tick"`
	Concurrent bool          `mapstructure:"concurrent"`
}

// Config is a fully loaded configuration file.
type Config struct {
	Path string
	FileConfig
	Inspections []sentinel.Config
}

// MissingOptionError reports a required inspection option that is absent.
type MissingOptionError struct {
	File    string
	Section string
	Option  string
}

func (e *MissingOptionError) Error() string {
	return fmt.Sprintf("Config option error in %s. Section [%s], option %q not found", e.File, e.Section, e.Option)
}

// Load reads path, applies defaults and WATCHR_* environment overrides to the
// global sections, and turns every [inspections.<name>] table into a
// sentinel.Config. Inspection errors are *MissingOptionError or
// *sentinel.ConfigError. Executables are not checked here; sentinel.New does.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	v.SetEnvPrefix("WATCHR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}

	sections := v.GetStringMap("inspections")
	if len(sections) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoInspections)
	}
	names := make([]string, 0, len(sections))
	for name := range sections {
		names = append(names, name)
	}
	sort.Strings(names)

	out := &Config{Path: path, FileConfig: fc}
	for _, name := range names {
		raw, ok := sections[name].(map[string]any)
		if !ok {
			return nil, &sentinel.ConfigError{Inspection: name, Msg: "section must be a table"}
		}
		sc, err := inspection(path, name, raw)
		if err != nil {
			return nil, err
		}
		out.Inspections = append(out.Inspections, sc)
	}
	return out, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.slog.level", string(logger.LevelInfo))
	v.SetDefault("log.slog.format", string(logger.FormatText))
	v.SetDefault("log.slog.color", false)
	v.SetDefault("log.slog.timestamps", true)
	v.SetDefault("log.slog.source", false)
	v.SetDefault("log.slog.output", "stderr")
	v.SetDefault("log.file.dir", "")
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.dsn", "")
	v.SetDefault("history.timeout", DefaultHistoryTimeout)
	v.SetDefault("scheduler.tick", time.Second)
	v.SetDefault("scheduler.concurrent", false)
}

func inspection(file, name string, raw map[string]any) (sentinel.Config, error) {
	fail := func(msg string, err error) (sentinel.Config, error) {
		return sentinel.Config{}, &sentinel.ConfigError{Inspection: name, Msg: msg, Err: err}
	}
	str := func(key string) (string, bool, error) {
		val, ok := raw[key]
		if !ok {
			return "", false, nil
		}
		s, err := cast.ToStringE(val)
		if err != nil {
			return "", true, fmt.Errorf("%s must be a string", key)
		}
		return strings.TrimSpace(s), true, nil
	}
	required := func(key string) (string, error) {
		s, ok, err := str(key)
		if err != nil {
			return "", err
		}
		if !ok || s == "" {
			return "", &MissingOptionError{File: file, Section: name, Option: key}
		}
		return s, nil
	}

	cfg := sentinel.Config{Name: name}
	var err error
	if cfg.PIDFile, err = required(OptPIDFile); err != nil {
		return missingOr(err, fail)
	}
	startLine, err := required(OptStartExec)
	if err != nil {
		return missingOr(err, fail)
	}
	if cfg.Start, err = command.Parse(startLine); err != nil {
		return fail(fmt.Sprintf("%s: %v", OptStartExec, err), err)
	}
	if stopLine, ok, err := str(OptStopExec); err != nil {
		return fail(err.Error(), err)
	} else if ok && stopLine != "" {
		stop, err := command.Parse(stopLine)
		if err != nil {
			return fail(fmt.Sprintf("%s: %v", OptStopExec, err), err)
		}
		cfg.Stop = &stop
	}
	if cfg.Cmdline, _, err = str(OptCmdline); err != nil {
		return fail(err.Error(), err)
	}
	if cfg.Socket, _, err = str(OptUnixSocket); err != nil {
		return fail(err.Error(), err)
	}

	if cfg.Interval, err = seconds(raw, OptInterval, sentinel.DefaultInterval); err != nil {
		return fail(err.Error(), err)
	}
	if cfg.BadInterval, err = seconds(raw, OptBadInterval, sentinel.DefaultBadInterval); err != nil {
		return fail(err.Error(), err)
	}
	return cfg, nil
}

func missingOr(err error, fail func(string, error) (sentinel.Config, error)) (sentinel.Config, error) {
	var mo *MissingOptionError
	if errors.As(err, &mo) {
		return sentinel.Config{}, mo
	}
	return fail(err.Error(), err)
}

var (
	ErrIntervalNotInteger = errors.New("interval must be integer")
	ErrIntervalRange      = errors.New("interval out of range")
)

// maxSeconds is the largest number of seconds a time.Duration can hold.
const maxSeconds = math.MaxInt64 / int64(time.Second)

// seconds reads an integer number of seconds. Strings are read as base 10.
// Sign checks are left to sentinel.Config.Validate so both entry points
// report them the same way.
func seconds(raw map[string]any, key string, def time.Duration) (time.Duration, error) {
	val, ok := raw[key]
	if !ok {
		return def, nil
	}
	var n int64
	switch x := val.(type) {
	case bool:
		return 0, ErrIntervalNotInteger
	case string:
		v, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			if errors.Is(err, strconv.ErrRange) {
				return 0, ErrIntervalRange
			}
			return 0, ErrIntervalNotInteger
		}
		n = v
	case float64:
		if x != math.Trunc(x) {
			return 0, ErrIntervalNotInteger
		}
		if math.Abs(x) > float64(maxSeconds) {
			return 0, ErrIntervalRange
		}
		n = int64(x)
	default:
		v, err := cast.ToInt64E(val)
		if err != nil {
			return 0, ErrIntervalNotInteger
		}
		n = v
	}
	if n > maxSeconds || n < -maxSeconds {
		return 0, ErrIntervalRange
	}
	return time.Duration(n) * time.Second, nil
}
