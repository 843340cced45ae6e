package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "1.0.0"

var configPath string

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Conversational gateway that turns chat into project creation",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")

	root.AddCommand(newServeCmd(), newChatCmd(), newEventsCmd())
	return root
}
