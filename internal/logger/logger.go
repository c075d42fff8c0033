package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config combines the supervisor's own structured logging (Slog) with the
// file destinations used for start/stop command output (File).
type Config struct {
	Slog SlogConfig `mapstructure:"slog"`
	File FileConfig `mapstructure:"file"`
}

// SlogConfig configures the *slog.Logger returned by NewSlogger.
// Output is "stderr" (default), "stdout" or a file path; file output is
// rotated with the FileConfig rotation parameters.
type SlogConfig struct {
	Level      Level  `mapstructure:"level"`
	Format     Format `mapstructure:"format"`
	Color      bool   `mapstructure:"color"`
	TimeStamps bool   `mapstructure:"timestamps"`
	Source     bool   `mapstructure:"source"`
	Output     string `mapstructure:"output"`
}

// FileConfig describes where start/stop command output is written.
// If StdoutPath/StderrPath are empty, and Dir is set, files will be
// Dir/<name>.stdout.log and Dir/<name>.stderr.log
// Rotation parameters follow lumberjack semantics.
type FileConfig struct {
	Dir        string `mapstructure:"dir"`         // base directory for logs
	StdoutPath string `mapstructure:"stdout"`      // explicit stdout path overrides Dir
	StderrPath string `mapstructure:"stderr"`      // explicit stderr path overrides Dir
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // megabytes before rotation (default 10)
	MaxBackups int    `mapstructure:"max_backups"` // number of backups to keep (default 3)
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"` // Gzip rotated files
}

// Enabled reports whether command output should be captured at all.
func (f FileConfig) Enabled() bool {
	return f.Dir != "" || f.StdoutPath != "" || f.StderrPath != ""
}

// ProcessFiles opens the stdout and stderr destinations for the named
// inspection's commands. They are real files handed to the child, so a
// daemon the command leaves behind keeps writing to them after it exits.
// A destination that has outgrown MaxSizeMB is rotated before it is opened.
// Either file is nil when no destination is configured for it.
func (c Config) ProcessFiles(name string) (*os.File, *os.File, error) {
	stdout, stderr, err := c.processPaths(name)
	if err != nil {
		return nil, nil, err
	}
	outF, err := c.File.open(stdout)
	if err != nil {
		return nil, nil, err
	}
	if stderr == stdout {
		return outF, outF, nil
	}
	errF, err := c.File.open(stderr)
	if err != nil {
		if outF != nil {
			_ = outF.Close()
		}
		return nil, nil, err
	}
	return outF, errF, nil
}

func (c Config) processPaths(name string) (string, string, error) {
	stdout := c.File.StdoutPath
	stderr := c.File.StderrPath
	if c.File.Dir != "" {
		if err := os.MkdirAll(c.File.Dir, 0o750); err != nil {
			return "", "", fmt.Errorf("create log dir %s: %w", c.File.Dir, err)
		}
		if stdout == "" {
			stdout = filepath.Join(c.File.Dir, fmt.Sprintf("%s.stdout.log", name))
		}
		if stderr == "" {
			stderr = filepath.Join(c.File.Dir, fmt.Sprintf("%s.stderr.log", name))
		}
	}
	return stdout, stderr, nil
}

const megabyte = 1024 * 1024

func (f FileConfig) open(path string) (*os.File, error) {
	if path == "" {
		return nil, nil
	}
	if info, err := os.Stat(path); err == nil && info.Size() >= int64(valOr(f.MaxSizeMB, DefaultMaxSizeMB))*megabyte {
		r := f.rotating(path)
		if err := r.Rotate(); err != nil {
			return nil, fmt.Errorf("rotate %s: %w", path, err)
		}
		_ = r.Close()
	}
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return fh, nil
}

func (f FileConfig) rotating(path string) *lj.Logger {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(f.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(f.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(f.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   f.Compress,
	}
}

// NewSlogger builds the application logger described by c.Slog.
func (c Config) NewSlogger() *slog.Logger {
	return slog.New(c.NewHandler(c.output()))
}

// NewHandler builds the slog handler for w. Exposed so tests can capture output.
func (c Config) NewHandler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{
		Level:     c.Slog.Level.slogLevel(),
		AddSource: c.Slog.Source,
	}
	if !c.Slog.TimeStamps {
		opts.ReplaceAttr = dropTime
	}
	switch c.Slog.Format {
	case FormatJSON:
		return slog.NewJSONHandler(w, opts)
	default:
		if c.Slog.Color {
			return NewColorTextHandler(w, opts, c.Slog.TimeStamps)
		}
		return slog.NewTextHandler(w, opts)
	}
}

func (c Config) output() io.Writer {
	switch strings.ToLower(strings.TrimSpace(c.Slog.Output)) {
	case "", "stderr":
		return os.Stderr
	case "stdout":
		return os.Stdout
	default:
		return c.File.rotating(c.Slog.Output)
	}
}

func (l Level) slogLevel() slog.Level {
	switch Level(strings.ToLower(string(l))) {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn, "warning":
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
