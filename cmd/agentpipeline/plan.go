package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentpipeline/agentpipeline/internal/infrastructure/engine"
)

func newPlanCmd(root *rootFlags, app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the execution groups a configuration would run, without executing them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfigPath(root.configPath); err != nil {
				return err
			}

			ctx, _ := app.CommandContext(cmd, "plan")
			cfg, err := app.ConfigLoader.Load(ctx, root.configPath)
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}

			planner := engine.NewDAGPlanner()
			graph, err := planner.BuildExecutionPlan(ctx, *cfg)
			if err != nil {
				return fmt.Errorf("build execution plan: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d group(s), max parallelism %d\n", cfg.Name, len(graph.Groups), graph.MaxParallelism)
			for _, group := range graph.Groups {
				names := make([]string, len(group.Stages))
				for i, stage := range group.Stages {
					names[i] = stage.Name
				}
				fmt.Fprintf(out, "  level %d: %s\n", group.Level, strings.Join(names, ", "))
			}
			for _, warning := range graph.Validation.Warnings {
				fmt.Fprintf(out, "warning: %s\n", warning)
			}
			return nil
		},
	}

	return cmd
}
