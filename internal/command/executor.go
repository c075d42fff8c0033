package command

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/loykin/watchr/internal/logger"
)

// DefaultWaitDelay bounds how long Run waits for output pipes after the
// command itself exited (init scripts often leave a daemon holding them).
const DefaultWaitDelay = 5 * time.Second

// Executor runs a command to completion and reports its exit status.
// A non-zero exit is not an error; err is set only when the command could
// not be run at all.
type Executor interface {
	Run(ctx context.Context, name string, s Spec) (int, error)
}

// Runner is the os/exec backed Executor. Command output goes to the
// files described by Logs.File, or is discarded.
type Runner struct {
	Logs      logger.Config
	Logger    *slog.Logger
	WaitDelay time.Duration
}

func NewRunner(logs logger.Config, l *slog.Logger) *Runner {
	if l == nil {
		l = slog.Default()
	}
	return &Runner{Logs: logs, Logger: l, WaitDelay: DefaultWaitDelay}
}

func (r *Runner) Run(ctx context.Context, name string, s Spec) (int, error) {
	cmd := s.Command(ctx)
	configureSysProcAttr(cmd)
	cmd.WaitDelay = r.WaitDelay
	if r.Logs.File.Enabled() {
		outF, errF, err := r.Logs.ProcessFiles(name)
		if err != nil {
			r.Logger.Warn("command output capture disabled", "inspection", name, "error", err)
		}
		// the child gets its own copies of the descriptors
		if outF != nil {
			cmd.Stdout = outF
			defer func() { _ = outF.Close() }()
		}
		if errF != nil {
			cmd.Stderr = errF
			if errF != outF {
				defer func() { _ = errF.Close() }()
			}
		}
	}

	start := time.Now()
	err := cmd.Run()
	r.Logger.Debug("command finished", "inspection", name, "command", s.String(), "elapsed", time.Since(start), "error", err)
	if err == nil {
		return 0, nil
	}
	if errors.Is(err, exec.ErrWaitDelay) {
		// exited cleanly; something it spawned still holds stdout/stderr
		return 0, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode(), nil
	}
	return -1, err
}
