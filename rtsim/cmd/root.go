// Package cmd provides the command-line interface of rtsim.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/rtsim/config"
)

// errNotSchedulable makes the process exit with status 1 after the verdict
// has been printed.
var errNotSchedulable = errors.New("task set is not schedulable")

type rootOptions struct {
	envFiles  []string
	logLevel  string
	logFormat string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "rtsim",
		Short: "rtsim simulates periodic real-time tasks on one processor.",
		Long: `rtsim simulates periodic real-time tasks on one processor ` +
			`under Earliest Deadline First or Rate Monotonic scheduling, ` +
			`preemptive or not, and reports deadline misses, lateness, ` +
			`and response times.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return config.LoadEnv(opts.envFiles...)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&opts.envFiles, "env-file", nil,
		"Load environment variables from these files (default ./.env)")
	flags.StringVar(&opts.logLevel, "log-level", config.DefaultLogLevel,
		"Log level: debug, info, warn, or error")
	flags.StringVar(&opts.logFormat, "log-format", config.DefaultLogFormat,
		"Log format: text or json")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newCompareCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
		newShowCmd(opts),
	)

	return rootCmd
}

// Execute runs the command line and exits the process.
func Execute() {
	err := newRootCmd().Execute()
	if err != nil {
		if !errors.Is(err, errNotSchedulable) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}

		atexit.Exit(1)
	}

	atexit.Exit(0)
}
