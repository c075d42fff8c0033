package command

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
)

var (
	ErrEmptyCommand  = errors.New("empty command")
	ErrExecNotFound  = errors.New("exec not found")
	ErrNotExecutable = errors.New("is not executable")
)

// shellMeta are the characters that make a command line a shell script
// rather than a plain argv.
const shellMeta = "|&;<>*?`$(){}[]~"

// Spec is a structured command: an executable path plus its arguments.
// Lines using shell operators keep the whole line in Script and run
// through /bin/sh -c; Path still names the first executable so it can be
// validated like any other command.
type Spec struct {
	Path   string   `json:"path"`
	Args   []string `json:"args,omitempty"`
	Script string   `json:"script,omitempty"`
}

// Parse turns a configured command line into a Spec. It is the only place
// command text is split; everything downstream works on the Spec.
func Parse(line string) (Spec, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Spec{}, ErrEmptyCommand
	}
	words, err := shellquote.Split(line)
	if !strings.ContainsAny(line, shellMeta) {
		if err != nil {
			return Spec{}, fmt.Errorf("parse %q: %w", line, err)
		}
		if len(words) == 0 {
			return Spec{}, ErrEmptyCommand
		}
		return Spec{Path: words[0], Args: words[1:]}, nil
	}

	// the shell does the real parsing; only the executable is needed here
	var first string
	if err == nil && len(words) > 0 {
		first = words[0]
	} else {
		first = strings.Fields(line)[0]
	}
	if i := strings.IndexAny(first, shellMeta); i >= 0 {
		first = first[:i]
	}
	if first == "" {
		return Spec{}, fmt.Errorf("parse %q: %w", line, ErrEmptyCommand)
	}
	return Spec{Path: first, Script: line}, nil
}

// Validate checks that Path is an existing regular file the current user may execute.
func (s Spec) Validate() error {
	if s.Path == "" {
		return ErrEmptyCommand
	}
	info, err := os.Stat(s.Path)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("%s %w", s.Path, ErrExecNotFound)
	}
	if !executable(s.Path, info) {
		return fmt.Errorf("%s %w", s.Path, ErrNotExecutable)
	}
	return nil
}

// IsShell reports whether the command runs through /bin/sh.
func (s Spec) IsShell() bool { return s.Script != "" }

func (s Spec) String() string {
	if s.Script != "" {
		return s.Script
	}
	return shellquote.Join(append([]string{s.Path}, s.Args...)...)
}

// Command builds the *exec.Cmd for this spec bound to ctx.
func (s Spec) Command(ctx context.Context) *exec.Cmd {
	if s.Script != "" {
		// #nosec G204
		return exec.CommandContext(ctx, "/bin/sh", "-c", s.Script)
	}
	// #nosec G204
	return exec.CommandContext(ctx, s.Path, s.Args...)
}
