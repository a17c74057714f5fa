package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/config"
	"github.com/sarchlab/rtsim/datarecording"
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/monitoring"
	"github.com/sarchlab/rtsim/render"
	"github.com/sarchlab/rtsim/tracing"
)

type runOptions struct {
	simOptions

	verbose   bool
	timeline  bool
	gantt     bool
	record    string
	traceCSV  string
	traceJSON string
	monitor   bool
}

func newRunCmd(root *rootOptions) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Simulate a task set with one scheduling algorithm.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, args[0])
		},
	}

	opts.addAlgorithmFlag(cmd)
	opts.addSimulationFlags(cmd)
	opts.addPreemptionFlag(cmd)
	opts.addMonitorPortFlag(cmd)

	flags := cmd.Flags()
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Log every job event")
	flags.BoolVarP(&opts.timeline, "timeline", "t", false,
		"Show the execution timeline")
	flags.BoolVar(&opts.gantt, "gantt", false, "Show a Gantt chart")
	flags.StringVar(&opts.record, "record", "",
		"Record the result into <path>.sqlite3")
	flags.StringVar(&opts.traceCSV, "trace-csv", "",
		"Write job events into a CSV file")
	flags.StringVar(&opts.traceJSON, "trace-json", "",
		"Write job events into a JSON file")
	flags.BoolVar(&opts.monitor, "monitor", false,
		"Serve the run over HTTP and wait for an interrupt")

	return cmd
}

// A finisher completes an output once the run has ended.
type finisher func(result *engine.Result) error

func (o *runOptions) run(
	cmd *cobra.Command,
	root *rootOptions,
	path string,
) error {
	c, err := loadConfig(cmd, root, &o.simOptions, path)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, c, o.verbose)

	builder, err := c.Builder()
	if err != nil {
		return err
	}

	p, err := c.PolicyImpl()
	if err != nil {
		return err
	}

	e := builder.Build()
	runID := datarecording.NewRunID()

	finishers, err := o.attachOutputs(e, runID, logger)
	if err != nil {
		return err
	}

	var m *monitoring.Monitor
	if o.monitor {
		m = monitoring.NewMonitor().
			WithLogger(logger).
			WithPortNumber(c.MonitorPort)

		if _, err := m.StartServer(); err != nil {
			return err
		}

		e.AcceptHook(monitoring.NewProgressTracker(m, runID, p.Name()))
	}

	out := cmd.OutOrStdout()
	printRunHeader(out, c, p.Name())

	result, err := e.Run()
	if err != nil {
		return err
	}

	logger.Debug("simulation finished",
		"run", runID,
		"released", result.Statistics.Released,
		"missed", result.Statistics.Missed)

	var errs []error
	for _, f := range finishers {
		errs = append(errs, f(result))
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := o.printResult(out, result); err != nil {
		return err
	}

	if m != nil {
		return serveUntilInterrupted(cmd.Context(), m, logger)
	}

	return nil
}

func (o *runOptions) attachOutputs(
	e *engine.Engine,
	runID string,
	logger *slog.Logger,
) ([]finisher, error) {
	var finishers []finisher

	if o.verbose {
		tracing.CollectTrace(e, tracing.NewLogTracer(logger))
	}

	if o.traceCSV != "" {
		w := tracing.NewCSVTraceWriter(o.traceCSV)
		if err := w.Init(); err != nil {
			return nil, err
		}

		tracing.CollectTrace(e, tracing.NewEventTracer(w, nil))
		finishers = append(finishers, func(*engine.Result) error {
			logger.Info("trace written", "file", w.Path())
			return w.Close()
		})
	}

	if o.traceJSON != "" {
		w, err := tracing.NewJSONFileTraceWriter(o.traceJSON)
		if err != nil {
			return nil, err
		}

		tracing.CollectTrace(e, tracing.NewEventTracer(w, nil))
		finishers = append(finishers, func(*engine.Result) error {
			logger.Info("trace written", "file", o.traceJSON)
			return w.Close()
		})
	}

	if o.record != "" {
		recorder, err := datarecording.New(o.record)
		if err != nil {
			return nil, err
		}

		dbTracer := tracing.NewDBTracer(runID, recorder)
		tracing.CollectTrace(e, dbTracer)

		finishers = append(finishers, func(result *engine.Result) error {
			datarecording.RecordResult(recorder, runID, result)
			dbTracer.Terminate()
			logger.Info("result recorded",
				"file", o.record+".sqlite3", "run", runID)

			return recorder.Close()
		})
	}

	return finishers, nil
}

func printRunHeader(w io.Writer, c config.Config, policyName string) {
	fmt.Fprintln(w, "Real-time Simulation Starting")
	fmt.Fprintf(w, "Algorithm: %s (%s)\n", policyName, modeName(c.Preemptive))
	fmt.Fprintf(w, "Tasks: %d\n", len(c.Tasks))
	fmt.Fprintf(w, "Horizon: %d time units\n\n", c.Horizon)
}

func (o *runOptions) printResult(w io.Writer, result *engine.Result) error {
	if err := render.Summary(w, result); err != nil {
		return err
	}

	if o.timeline {
		fmt.Fprintln(w)
		render.Timeline(w, result.Timeline, render.DefaultTimelineLimit)
	}

	if o.gantt {
		fmt.Fprintln(w)
		render.Gantt(w, result, 0)
	}

	return nil
}

// serveUntilInterrupted keeps the monitor running until the context is
// canceled or the process receives SIGINT or SIGTERM.
func serveUntilInterrupted(
	ctx context.Context,
	m *monitoring.Monitor,
	logger *slog.Logger,
) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("monitor running, press Ctrl+C to exit")
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return m.StopServer(shutdownCtx)
}
