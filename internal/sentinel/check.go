package sentinel

import (
	"context"
	"errors"
	"strings"

	"github.com/loykin/watchr/internal/detector"
)

// Check is the health predicate of one inspection.
type Check struct {
	PIDFile string
	Cmdline string
	Socket  string
}

// Evaluate runs the checks in order: pid file, process command line,
// cmdline match, socket. The first failure decides the verdict.
func (c Check) Evaluate(ctx context.Context, probe detector.Probe) Verdict {
	pid, err := probe.ReadPID(c.PIDFile)
	if err != nil {
		if errors.Is(err, detector.ErrInvalidPID) {
			return unhealthy(0, ReasonPIDInvalid, "Cannot read pid file from %s: %v", c.PIDFile, err)
		}
		return unhealthy(0, ReasonPIDUnreadable, "Cannot open pid file %s: %v", c.PIDFile, err)
	}

	cmd, err := probe.Cmdline(ctx, pid)
	if err != nil {
		if errors.Is(err, detector.ErrProcessNotFound) {
			return unhealthy(pid, ReasonProcessGone, "Cannot read cmdline of pid %d: process not found", pid)
		}
		return unhealthy(pid, ReasonCmdlineUnreadable, "Cannot read cmdline of pid %d: %v", pid, err)
	}

	if c.Cmdline != "" && !strings.Contains(cmd, c.Cmdline) {
		return unhealthy(pid, ReasonCmdlineMismatch, "Not match cmdline '%s'", c.Cmdline)
	}
	if c.Socket != "" && !probe.Exists(c.Socket) {
		return unhealthy(pid, ReasonSocketMissing, "Socket '%s' not exists", c.Socket)
	}
	return healthy(pid)
}
