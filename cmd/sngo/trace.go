package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/najoast/sngo/v2/node"
	"github.com/najoast/sngo/v2/tracing"
)

func newTraceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Decode and generate trace ids.",
	}
	cmd.AddCommand(newTraceDecodeCmd(), newTraceGenCmd())
	return cmd
}

func newTraceDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <trace-id>...",
		Short: "Print the fields packed into trace ids.",
		Long:  "Trace ids are accepted in decimal or 0x-prefixed hexadecimal.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			for _, arg := range args {
				id, err := tracing.ParseTraceID(arg)
				if err != nil {
					return err
				}
				printLayout(cmd.OutOrStdout(), id, now)
			}
			return nil
		},
	}
}

func printLayout(w io.Writer, id tracing.TraceID, now time.Time) {
	l := id.Layout()
	fmt.Fprintf(w, "trace_id:  %s (%#x)\n", id, uint64(id))
	fmt.Fprintf(w, "timestamp: %s\n", l.Timestamp.Time(now).UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "node_no:   %d\n", l.NodeNo)
	fmt.Fprintf(w, "chunk:     %d\n", l.ChunkNo())
	fmt.Fprintf(w, "counter:   %d\n", l.Counter())
}

func newTraceGenCmd() *cobra.Command {
	var (
		count  int
		nodeNo uint16
	)

	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate trace ids.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			if nodeNo == 0 {
				nodeNo = node.No()
			}

			gen := tracing.NewGenerator(nodeNo)
			chunks := tracing.NewChunkRegistry()
			for range count {
				fmt.Fprintln(cmd.OutOrStdout(), gen.Generate(chunks))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of ids to generate")
	cmd.Flags().Uint16Var(&nodeNo, "node", 0, "node number embedded into the ids")
	return cmd
}
