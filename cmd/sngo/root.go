package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "sngo",
		Short: "sngo runs an actor node and inspects its trace ids.",
		Long: `sngo runs an actor node configured from a YAML or JSON file ` +
			`and decodes or generates the trace ids that tag its message flows.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCmd(), newTraceCmd())
	return root
}
