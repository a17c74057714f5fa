package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/config"
	"github.com/sarchlab/rtsim/logging"
)

// simOptions are the flags that override the task file.
type simOptions struct {
	algorithm     string
	horizon       int
	nonPreemptive bool
	missPolicy    string
	tieBreak      string
	eventDriven   bool
	monitorPort   int
}

func (o *simOptions) addAlgorithmFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.algorithm, "algorithm", "a",
		config.DefaultPolicy, "Scheduling algorithm: edf or rm")
}

func (o *simOptions) addSimulationFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.IntVar(&o.horizon, "horizon", config.DefaultHorizon,
		"Number of ticks to simulate (overrides the task file)")
	flags.StringVar(&o.missPolicy, "miss-policy", config.DefaultMissPolicy,
		"What happens at a missed deadline: drop or continue")
	flags.StringVar(&o.tieBreak, "tie-break", config.DefaultTieBreak,
		"Tie-break between equal priorities: name or index")
	flags.BoolVar(&o.eventDriven, "event-driven", false,
		"Step from event to event instead of tick by tick")
}

func (o *simOptions) addPreemptionFlag(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.nonPreemptive, "non-preemptive", false,
		"Run jobs to completion once started")
}

func (o *simOptions) addMonitorPortFlag(cmd *cobra.Command) {
	cmd.Flags().IntVar(&o.monitorPort, "monitor-port",
		config.DefaultMonitorPort, "Port of the monitoring server (0: random)")
}

// loadConfig builds the configuration from the environment, the task file,
// and the flags the user set, in increasing order of precedence.
func loadConfig(
	cmd *cobra.Command,
	root *rootOptions,
	sim *simOptions,
	path string,
) (config.Config, error) {
	c, err := config.FromEnv()
	if err != nil {
		return config.Config{}, err
	}

	c, err = config.Load(path, c)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()

	if flags.Changed("algorithm") {
		c.Policy = sim.algorithm
	}

	if flags.Changed("horizon") {
		c.Horizon = sim.horizon
	}

	if flags.Changed("non-preemptive") {
		c.Preemptive = !sim.nonPreemptive
	}

	if flags.Changed("miss-policy") {
		c.MissPolicy = sim.missPolicy
	}

	if flags.Changed("tie-break") {
		c.TieBreak = sim.tieBreak
	}

	if flags.Changed("event-driven") {
		c.EventDriven = sim.eventDriven
	}

	if flags.Changed("monitor-port") {
		c.MonitorPort = sim.monitorPort
	}

	if flags.Changed("log-level") {
		c.LogLevel = root.logLevel
	}

	if flags.Changed("log-format") {
		c.LogFormat = root.logFormat
	}

	if err := c.Validate(); err != nil {
		return config.Config{}, err
	}

	return c, nil
}

func newLogger(cmd *cobra.Command, c config.Config, verbose bool) *slog.Logger {
	level := logging.ParseLevel(c.LogLevel)
	if verbose && level > slog.LevelDebug {
		level = slog.LevelDebug
	}

	return logging.NewLoggerWithWriter(level, c.LogFormat, cmd.ErrOrStderr())
}

func modeName(preemptive bool) string {
	if preemptive {
		return "Preemptive"
	}

	return "Non-preemptive"
}
