package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sarchlab/rtsim/analysis"
	"github.com/sarchlab/rtsim/policy"
	"github.com/sarchlab/rtsim/render"
)

func newValidateCmd(root *rootOptions) *cobra.Command {
	opts := &simOptions{}

	cmd := &cobra.Command{
		Use:   "validate <config>",
		Short: "Check a task file and test whether the tasks are schedulable.",
		Long: `Validate checks the task file, prints the task table, and runs ` +
			`a schedulability test for the chosen algorithm. It exits with ` +
			`status 1 unless the tasks are proven schedulable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := loadConfig(cmd, root, opts, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Configuration Valid!")
			fmt.Fprintf(out, "Found %d tasks:\n\n", len(c.Tasks))

			if err := render.TaskTable(out, c.Tasks); err != nil {
				return err
			}

			tieBreak, err := policy.ParseTieBreak(c.TieBreak)
			if err != nil {
				return err
			}

			verdict, err := analysis.Check(c.Policy, c.Tasks, tieBreak)
			if err != nil {
				return err
			}

			fmt.Fprintln(out)
			if err := render.Verdict(out, verdict); err != nil {
				return err
			}

			if !verdict.Schedulable {
				return errNotSchedulable
			}

			return nil
		},
	}

	opts.addAlgorithmFlag(cmd)

	return cmd
}
