package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/taskexec/pkg/scheduling/scheduler"
)

func newCronCmd() *cobra.Command {
	var next int
	var location string

	cmd := &cobra.Command{
		Use:   "cron EXPRESSION",
		Short: "Validate a cron expression and print its next run times",
		Example: `  taskexec cron "30 14 * * 1-5"
  taskexec cron "*/10 * * * * *" --next 3
  taskexec cron @daily --location UTC`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := time.LoadLocation(location)
			if err != nil {
				return fmt.Errorf("invalid location: %w", err)
			}
			runs, err := scheduler.NextRuns(args[0], time.Now().In(loc), next)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, scheduler.DescribeCron(args[0]))
			for _, r := range runs {
				fmt.Fprintln(out, r.Format(time.RFC3339))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&next, "next", "n", 5, "number of run times to print")
	cmd.Flags().StringVar(&location, "location", "Local", "time zone used to evaluate the expression")
	return cmd
}
