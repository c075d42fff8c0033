//go:build !windows

package command

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureSysProcAttr places the command in its own process group so a
// terminal signal aimed at the supervisor does not reach restarted services.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func executable(path string, _ os.FileInfo) bool {
	return unix.Access(path, unix.X_OK) == nil
}
