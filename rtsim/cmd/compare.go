package cmd

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/config"
	"github.com/sarchlab/rtsim/datarecording"
	"github.com/sarchlab/rtsim/engine"
	"github.com/sarchlab/rtsim/monitoring"
	"github.com/sarchlab/rtsim/render"
)

// comparedModes are the runs of a comparison, in display order.
var comparedModes = []struct {
	policy     string
	preemptive bool
}{
	{"edf", true},
	{"edf", false},
	{"rm", true},
	{"rm", false},
}

type comparedRun struct {
	id     string
	result *engine.Result
}

type compareOptions struct {
	simOptions

	record string
}

func newCompareCmd(root *rootOptions) *cobra.Command {
	opts := &compareOptions{}

	cmd := &cobra.Command{
		Use:   "compare <config>",
		Short: "Compare EDF and RM, preemptive and non-preemptive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, root, args[0])
		},
	}

	opts.addSimulationFlags(cmd)
	cmd.Flags().StringVar(&opts.record, "record", "",
		"Record all the results into <path>.sqlite3")

	return cmd
}

func (o *compareOptions) run(
	cmd *cobra.Command,
	root *rootOptions,
	path string,
) error {
	c, err := loadConfig(cmd, root, &o.simOptions, path)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, c, false)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Comparing Scheduling Algorithms")
	fmt.Fprintf(out, "Tasks: %d\n", len(c.Tasks))
	fmt.Fprintf(out, "Horizon: %d time units\n\n", c.Horizon)

	runs, err := runComparison(c, nil)
	if err != nil {
		return err
	}

	if o.record != "" {
		if err := recordRuns(o.record, runs); err != nil {
			return err
		}

		logger.Info("results recorded", "file", o.record+".sqlite3")
	}

	return render.Comparison(out, resultsOf(runs))
}

// runComparison simulates every compared mode in parallel. If a monitor is
// given, each run reports its progress and result to it.
func runComparison(
	c config.Config,
	m *monitoring.Monitor,
) ([]comparedRun, error) {
	runs := make([]comparedRun, len(comparedModes))
	errs := make([]error, len(comparedModes))

	var wg sync.WaitGroup
	for i, mode := range comparedModes {
		wg.Add(1)

		go func() {
			defer wg.Done()

			mc := c
			mc.Policy = mode.policy
			mc.Preemptive = mode.preemptive

			builder, err := mc.Builder()
			if err != nil {
				errs[i] = err
				return
			}

			runs[i].id = datarecording.NewRunID()

			if m != nil {
				p, err := mc.PolicyImpl()
				if err != nil {
					errs[i] = err
					return
				}

				label := fmt.Sprintf("%s (%s)",
					p.Name(), modeName(mode.preemptive))
				builder = builder.WithHook(
					monitoring.NewProgressTracker(m, runs[i].id, label))
			}

			runs[i].result, errs[i] = builder.Build().Run()
		}()
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	return runs, nil
}

func recordRuns(path string, runs []comparedRun) error {
	recorder, err := datarecording.New(path)
	if err != nil {
		return err
	}

	for _, r := range runs {
		datarecording.RecordResult(recorder, r.id, r.result)
	}

	return recorder.Close()
}

func resultsOf(runs []comparedRun) []*engine.Result {
	results := make([]*engine.Result, 0, len(runs))
	for _, r := range runs {
		results = append(results, r.result)
	}

	return results
}
