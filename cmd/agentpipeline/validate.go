package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(root *rootFlags, app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a pipeline configuration without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireConfigPath(root.configPath); err != nil {
				return err
			}
			ctx, _ := app.CommandContext(cmd, "validate")
			if err := app.ConfigLoader.Validate(ctx, root.configPath); err != nil {
				return fmt.Errorf("configuration invalid: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "configuration is valid")
			return nil
		},
	}

	return cmd
}
