package client

import (
	"context"
	"fmt"

	"github.com/mwantia/memobox/internal/agent"
	"github.com/spf13/cobra"
)

func NewStorageCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Inspect the storage backend",
	}

	cmd.AddCommand(NewStorageUsageCommand())

	return cmd
}

func NewStorageUsageCommand() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show how much space stored files occupy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				usage, err := ma.Items().StorageUsage(ctx).Await(ctx)
				if err != nil {
					return err
				}

				size := usage.String()
				if raw {
					size = fmt.Sprintf("%d", usage.Bytes)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s strategy at %s)\n", size, usage.Strategy, usage.Root)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&raw, "bytes", false, "print the exact byte count")

	return cmd
}
