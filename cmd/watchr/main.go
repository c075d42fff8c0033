package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	root := buildRoot(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var errNoConfig = errors.New("config file must be given as the first argument")

func buildRoot(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "watchr [config.toml]",
		Short: "Minimal process supervisor",
		Long: `watchr watches processes through their pid files and restarts them
when they disappear, run the wrong command line, or lose their socket.

Config file example:

  [inspections.cron]
  cmdline = "crond"
  pid_file = "/var/run/crond.pid"
  start_exec = "/etc/init.d/cronie start"
  stop_exec = "/etc/init.d/cronie stop ; /etc/init.d/cronie zap"
  interval = 15
  bad_interval = 2

  [inspections.syslog]
  pid_file = "/var/run/rsyslogd.pid"
  start_exec = "/etc/init.d/rsyslog start"

Examples:
  watchr /etc/watchr.toml           # same as "watchr run"
  watchr check /etc/watchr.toml     # validate and exit`,
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Usage()
				return errNoConfig
			}
			return runSupervisor(cmd.Context(), args[0])
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		createRunCommand(),
		createCheckCommand(),
		createVersionCommand(),
	)
	return root
}

func createRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run <config.toml>",
		Short: "Load the config and supervise every inspection until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(cmd.Context(), args[0])
		},
	}
}

func createCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config.toml>",
		Short: "Validate the config and print the inspections it defines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return checkConfig(cmd.OutOrStdout(), args[0])
		},
	}
}

func createVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "watchr %s\n", version)
		},
	}
}
