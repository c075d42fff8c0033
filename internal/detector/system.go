package detector

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// System is the Probe backed by the local filesystem and process table.
type System struct{}

var _ Probe = System{}
var _ UsageSampler = System{}

func (System) ReadPID(path string) (int, error) { return ReadPIDFile(path) }

func (System) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (System) Cmdline(ctx context.Context, pid int) (string, error) {
	p, err := lookup(ctx, pid)
	if err != nil {
		return "", err
	}
	cmd, err := p.CmdlineWithContext(ctx)
	if err != nil {
		return "", classify(pid, err)
	}
	return cmd, nil
}

func (System) Usage(ctx context.Context, pid int) (Usage, error) {
	p, err := lookup(ctx, pid)
	if err != nil {
		return Usage{}, err
	}
	var u Usage
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return Usage{}, classify(pid, err)
	}
	u.RSS = mem.RSS
	cpu, err := p.CPUPercentWithContext(ctx)
	if err != nil {
		return Usage{}, classify(pid, err)
	}
	u.CPUPercent = cpu
	return u, nil
}

func lookup(ctx context.Context, pid int) (*gopsproc.Process, error) {
	if pid <= 0 || pid > math.MaxInt32 {
		return nil, fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	p, err := gopsproc.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil, classify(pid, err)
	}
	return p, nil
}

// classify maps "no such process" style failures onto ErrProcessNotFound and
// leaves everything else (permissions, I/O) as is.
func classify(pid int, err error) error {
	if errors.Is(err, gopsproc.ErrorProcessNotRunning) || errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("pid %d: %w", pid, ErrProcessNotFound)
	}
	return fmt.Errorf("pid %d: %w", pid, err)
}
