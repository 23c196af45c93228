package main

import (
	"context"
	"fmt"
	"os"

	logginginfra "github.com/agentpipeline/agentpipeline/internal/infrastructure/logging"
)

func main() {
	correlationID := logginginfra.GenerateCorrelationID()
	ctx := logginginfra.WithCorrelationID(context.Background(), correlationID)

	app := &AppContext{}
	rootCmd := newRootCmd(app)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
