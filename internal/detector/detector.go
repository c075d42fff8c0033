package detector

import (
	"context"
	"errors"
)

var (
	// ErrInvalidPID is returned when a pid file does not hold a positive integer.
	ErrInvalidPID = errors.New("invalid pid")
	// ErrProcessNotFound is returned when the process table has no entry for a pid.
	ErrProcessNotFound = errors.New("process not found")
)

// Probe reads the liveness facts a health check is built from.
// Implementations must be safe for concurrent use.
type Probe interface {
	// ReadPID returns the pid recorded in the pid file at path.
	ReadPID(path string) (int, error)
	// Cmdline returns the space separated command line of pid.
	Cmdline(ctx context.Context, pid int) (string, error)
	// Exists reports whether path exists (socket files included).
	Exists(path string) bool
}

// Usage is a point-in-time resource sample of one process.
type Usage struct {
	RSS        uint64
	CPUPercent float64
}

// UsageSampler is implemented by probes that can also sample resource usage.
type UsageSampler interface {
	Usage(ctx context.Context, pid int) (Usage, error)
}
