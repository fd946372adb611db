package cli

import (
	"context"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/taskexec/pkg/config"
)

// app carries the state shared by subcommands once the root command has
// loaded the configuration.
type app struct {
	cfgFile string
	verbose bool
	noColor bool

	config *config.Config
	logger *logrus.Logger
}

// Execute runs the root command with the provided context
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "taskexec",
		Short: "taskexec - bounded worker pool executor toolkit",
		Long: `taskexec exercises bounded worker pools, serial executors and the
task scheduler from the command line. Configuration is read from
taskexec.yaml and TASKEXEC_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./taskexec.yaml or $HOME/.taskexec/taskexec.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "verbose output with debug logging")
	rootCmd.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newRunCmd(a))
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newCronCmd())
	rootCmd.AddCommand(newPoolsCmd(a))

	return rootCmd
}

// init loads configuration and sets up logging
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	if a.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	logger.SetOutput(cmd.ErrOrStderr())

	a.config = cfg
	a.logger = logger
	return nil
}
