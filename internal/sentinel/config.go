package sentinel

import (
	"errors"
	"fmt"
	"time"

	"github.com/loykin/watchr/internal/command"
)

const (
	DefaultInterval    = 10 * time.Second
	DefaultBadInterval = 3 * time.Second
)

// Config describes one inspection: how to find the target process, how to
// judge it, and how to bring it back.
type Config struct {
	Name    string
	PIDFile string
	Start   command.Spec
	Stop    *command.Spec // optional, run before Start on restart
	Cmdline string        // optional substring of the process command line
	Socket  string        // optional path that must exist

	Interval    time.Duration // between checks while healthy
	BadInterval time.Duration // between checks while unhealthy
}

// ConfigError is a fatal construction error scoped to one inspection.
type ConfigError struct {
	Inspection string
	Msg        string
	Err        error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("Inspection [%s]. %s", e.Inspection, e.Msg)
}

func (e *ConfigError) Unwrap() error { return e.Err }

var ErrBadInterval = errors.New("interval must be greater than 0")

// Validate checks the executables and intervals. It touches the filesystem
// and is meant to run once, before the sentinel is built.
func (c Config) Validate() error {
	if c.PIDFile == "" {
		return c.fail(errors.New("pid_file is required"))
	}
	if err := c.Start.Validate(); err != nil {
		return c.fail(err)
	}
	if c.Stop != nil {
		if err := c.Stop.Validate(); err != nil {
			return c.fail(err)
		}
	}
	if c.Interval <= 0 || c.BadInterval <= 0 {
		return c.fail(ErrBadInterval)
	}
	return nil
}

func (c Config) fail(err error) *ConfigError {
	return &ConfigError{Inspection: c.Name, Msg: err.Error(), Err: err}
}

// check returns the health check described by c.
func (c Config) check() Check {
	return Check{PIDFile: c.PIDFile, Cmdline: c.Cmdline, Socket: c.Socket}
}
