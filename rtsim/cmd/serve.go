package cmd

import (
	"fmt"

	"github.com/pkg/browser"
	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/monitoring"
	"github.com/sarchlab/rtsim/render"
)

type serveOptions struct {
	simOptions

	open bool
}

func newServeCmd(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve <config>",
		Short: "Run the comparison and serve the results over HTTP.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, args[0])
		},
	}

	opts.addSimulationFlags(cmd)
	opts.addMonitorPortFlag(cmd)
	cmd.Flags().BoolVar(&opts.open, "open", false,
		"Open the monitor in a web browser")

	return cmd
}

func (o *serveOptions) run(
	cmd *cobra.Command,
	root *rootOptions,
	path string,
) error {
	c, err := loadConfig(cmd, root, &o.simOptions, path)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, c, false)

	m := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(c.MonitorPort)

	addr, err := m.StartServer()
	if err != nil {
		return err
	}

	url := "http://" + addr
	if o.open {
		if err := browser.OpenURL(url); err != nil {
			logger.Warn("cannot open browser", "url", url, "error", err)
		}
	}

	runs, err := runComparison(c, m)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := render.Comparison(out, resultsOf(runs)); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nResults served at %s\n", url)

	return serveUntilInterrupted(cmd.Context(), m, logger)
}
