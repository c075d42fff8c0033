package detector

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// ReadPIDFile reads the pid recorded in path. Only the first line is
// considered, surrounding whitespace is ignored, and the pid must be positive.
func ReadPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return ParsePID(string(data))
}

// ParsePID parses pid file contents.
func ParsePID(data string) (int, error) {
	first, _, _ := strings.Cut(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	first = strings.TrimSpace(first)
	pid, err := strconv.Atoi(first)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPID, first)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("%w: pid must be positive, got %d", ErrInvalidPID, pid)
	}
	if pid > math.MaxInt32 {
		return 0, fmt.Errorf("%w: pid %d out of range", ErrInvalidPID, pid)
	}
	return pid, nil
}
