package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/config"
	"github.com/sarchlab/rtsim/datarecording"
	"github.com/sarchlab/rtsim/monitoring"
	"github.com/sarchlab/rtsim/render"
)

type showOptions struct {
	runID       string
	timeline    bool
	gantt       bool
	monitor     bool
	monitorPort int
}

func newShowCmd(root *rootOptions) *cobra.Command {
	opts := &showOptions{}

	cmd := &cobra.Command{
		Use:   "show <database>",
		Short: "Print the results recorded by run --record or compare --record.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, args[0])
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.runID, "run", "", "Only show the run with this ID")
	flags.BoolVarP(&opts.timeline, "timeline", "t", false,
		"Show the execution timeline")
	flags.BoolVar(&opts.gantt, "gantt", false, "Show a Gantt chart")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the runs over HTTP and wait for an interrupt")
	flags.IntVar(&opts.monitorPort, "monitor-port", config.DefaultMonitorPort,
		"Port of the monitoring server (0: random)")

	return cmd
}

func (o *showOptions) run(
	cmd *cobra.Command,
	root *rootOptions,
	path string,
) error {
	c := config.Default()
	c.LogLevel = root.logLevel
	c.LogFormat = root.logFormat
	logger := newLogger(cmd, c, false)

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	stored, err := datarecording.LoadResults(cmd.Context(), reader)
	if err != nil {
		return err
	}

	runs := make([]comparedRun, 0, len(stored))
	for _, s := range stored {
		if o.runID == "" || s.ID == o.runID {
			runs = append(runs, comparedRun{id: s.ID, result: s.Result})
		}
	}

	if len(runs) == 0 {
		return fmt.Errorf("no recorded run in %s matches %q", path, o.runID)
	}

	out := cmd.OutOrStdout()
	for _, r := range runs {
		if err := o.printRun(out, r); err != nil {
			return err
		}
	}

	if len(runs) > 1 {
		if err := render.Comparison(out, resultsOf(runs)); err != nil {
			return err
		}
	}

	if !o.monitor {
		return nil
	}

	m := monitoring.NewMonitor().
		WithLogger(logger).
		WithPortNumber(o.monitorPort)

	for _, r := range runs {
		m.RegisterResult(r.id, r.result)
	}

	addr, err := m.StartServer()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nResults served at http://%s\n", addr)

	return serveUntilInterrupted(cmd.Context(), m, logger)
}

func (o *showOptions) printRun(w io.Writer, r comparedRun) error {
	fmt.Fprintf(w, "Run %s: %s\n", r.id, r.result.Label())
	fmt.Fprintf(w, "Tasks: %d\n", len(r.result.Tasks))
	fmt.Fprintf(w, "Horizon: %d time units\n\n", r.result.Horizon)

	if err := render.Summary(w, r.result); err != nil {
		return err
	}

	if o.timeline {
		fmt.Fprintln(w)
		render.Timeline(w, r.result.Timeline, render.DefaultTimelineLimit)
	}

	if o.gantt {
		fmt.Fprintln(w)
		render.Gantt(w, r.result, 0)
	}

	fmt.Fprintln(w)

	return nil
}
