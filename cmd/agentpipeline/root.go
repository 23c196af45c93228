package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(app *AppContext) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "agentpipeline",
		Short:         "agentpipeline orchestrates multi-stage LLM agent pipelines over a repository",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.Bootstrap(flags.verbose)
		},
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to the pipeline configuration file")
	cmd.PersistentFlags().StringVar(&flags.repoPath, "repo", ".", "Path to the target git repository")
	cmd.PersistentFlags().StringVar(&flags.stateDir, "state-dir", ".agentpipeline/state", "Directory for run state persistence")
	cmd.PersistentFlags().StringVar(&flags.handoverDir, "handover-dir", ".agentpipeline/handover", "Directory for per-run stage handover output")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newRunCmd(flags, app))
	cmd.AddCommand(newValidateCmd(flags, app))
	cmd.AddCommand(newPlanCmd(flags, app))
	cmd.AddCommand(newVersionCmd())

	return cmd
}
