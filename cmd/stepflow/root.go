package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// newRootCommand wires the two subcommands this wrapper exposes: `run`
// (the default, invoked bare) executes every discovered workflow,
// `validate` only runs the static checks of pkg/validate. Persistent
// flags are shared by both.
func newRootCommand() *cobra.Command {
	cfg := &config{}

	root := &cobra.Command{
		Use:           "stepflow",
		Short:         "Run declarative test workflows",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cfg)
		},
	}

	root.PersistentFlags().StringVarP(&cfg.WorkflowsDir, "dir", "d", defaultWorkflowsDir, "directory to discover workflow files under")
	root.PersistentFlags().StringVarP(&cfg.Workdir, "workdir", "w", ".", "working directory steps resolve relative paths against")
	root.PersistentFlags().StringVar(&cfg.EnvFile, "env-file", "", "dotenv file merged into the base environment layer")
	root.PersistentFlags().Uint64Var(&cfg.Seed, "seed", 0, "deterministic RNG seed (0 reuses the last persisted seed, or picks and persists a fresh one)")
	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().BoolVar(&cfg.Watch, "watch", false, "re-run whenever a workflow file under --dir changes")

	root.AddCommand(newRunCommand(cfg))
	root.AddCommand(newValidateCommand(cfg))

	return root
}

var verbose bool

func newLogger() *logrus.Logger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}
