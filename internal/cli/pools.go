package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vnykmshr/taskexec/pkg/scheduling/workerpool"
)

func newPoolsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pools",
		Short: "List the configured worker pools",
		Long: `List every pool from the configuration with the defaults applied.
A queue of 0 is unbounded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			names := a.config.PoolNames()
			if len(names) == 0 {
				fmt.Fprintln(out, "No pools configured")
				return nil
			}

			colors := newColorScheme(out, a.noColor)
			table := newTable(out, "Name", "Workers", "Queue", "Idle Timeout", "Serial")
			for _, name := range names {
				pc, _ := a.config.Pool(name)
				queue := strconv.Itoa(pc.MaxQueueSize)
				if pc.MaxQueueSize == workerpool.UnboundedQueue {
					queue = "unbounded"
				}
				serial := ""
				if a.config.Pools[name].Serial || a.config.Defaults.Serial {
					serial = "yes"
				}
				table.Append([]string{
					colors.Name("%s", name),
					strconv.Itoa(pc.MaxWorkers),
					queue,
					colors.Duration("%s", pc.IdleTimeout),
					serial,
				})
			}
			table.Render()
			return nil
		},
	}
}
