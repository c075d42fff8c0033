//go:build !windows

package command

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/watchr/internal/logger"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunner_ExitCodes(t *testing.T) {
	r := NewRunner(logger.Config{}, discardLogger())
	ctx := context.Background()

	code, err := r.Run(ctx, "ok", Spec{Path: "/bin/sh", Args: []string{"-c", "exit 0"}})
	require.NoError(t, err)
	assert.Equal(t, 0, code)

	code, err = r.Run(ctx, "fail", Spec{Path: "/bin/sh", Script: "exit 3"})
	require.NoError(t, err, "non-zero exit is reported as status, not error")
	assert.Equal(t, 3, code)

	code, err = r.Run(ctx, "missing", Spec{Path: "/definitely/not/here"})
	require.Error(t, err)
	assert.Equal(t, -1, code)
}

func TestRunner_CapturesOutput(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(logger.Config{File: logger.FileConfig{Dir: dir}}, discardLogger())

	_, err := r.Run(context.Background(), "cron", Spec{Path: "/bin/sh", Script: "echo started; echo oops 1>&2"})
	require.NoError(t, err)

	out, err := os.ReadFile(filepath.Join(dir, "cron.stdout.log"))
	require.NoError(t, err)
	assert.Equal(t, "started", strings.TrimSpace(string(out)))
	errOut, err := os.ReadFile(filepath.Join(dir, "cron.stderr.log"))
	require.NoError(t, err)
	assert.Equal(t, "oops", strings.TrimSpace(string(errOut)))
}

func TestRunner_DaemonKeepsWritingAfterExit(t *testing.T) {
	dir := t.TempDir()
	r := NewRunner(logger.Config{File: logger.FileConfig{Dir: dir}}, discardLogger())
	r.WaitDelay = 200 * time.Millisecond

	start := time.Now()
	// the background job inherits stdout and writes after the command returned
	code, err := r.Run(context.Background(), "daemon", Spec{Path: "/bin/sh", Script: "(sleep 1; echo late) & echo forked"})
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.Less(t, time.Since(start), 900*time.Millisecond, "Run must not wait for the background job")

	path := filepath.Join(dir, "daemon.stdout.log")
	assert.Eventually(t, func() bool {
		out, err := os.ReadFile(path)
		return err == nil && strings.Contains(string(out), "late")
	}, 3*time.Second, 50*time.Millisecond)
	out, _ := os.ReadFile(path)
	assert.Equal(t, "forked\nlate\n", string(out))
}

func TestRunner_ContextCancel(t *testing.T) {
	r := NewRunner(logger.Config{}, discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start := time.Now()
	code, _ := r.Run(ctx, "slow", Spec{Path: "/bin/sleep", Args: []string{"5"}})
	assert.Equal(t, -1, code, "killed commands have no exit status")
	assert.Less(t, time.Since(start), 3*time.Second)
}
