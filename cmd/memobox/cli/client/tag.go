package client

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mwantia/memobox/internal/agent"
	"github.com/mwantia/memobox/pkg/db/models"
	"github.com/spf13/cobra"
)

func NewTagCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
		Long:  "Create, list, rename and delete tags. Deleting a tag never deletes items.",
	}

	cmd.AddCommand(NewTagAddCommand())
	cmd.AddCommand(NewTagListCommand())
	cmd.AddCommand(NewTagRemoveCommand())
	cmd.AddCommand(NewTagRenameCommand())

	return cmd
}

func NewTagAddCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				id, err := ma.Tags().InsertTag(ctx, models.Tag{Name: args[0], Color: color}).Await(ctx)
				if err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Created tag '%s' (%d)\n", args[0], id)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&color, "color", "c", "", "tag color, e.g. #ff8800")

	return cmd
}

func NewTagListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List tags with their item counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				tags, err := ma.Tags().GetAllTags(ctx).Await(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "ID\tNAME\tCOLOR\tITEMS")
				for _, tag := range tags {
					count, err := ma.Tags().GetItemCountForTag(ctx, tag.ID).Await(ctx)
					if err != nil {
						return err
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\t%d\n", tag.ID, tag.Name, orDash(tag.Color), count)
				}
				return tw.Flush()
			})
		},
	}

	return cmd
}

func NewTagRemoveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <name>",
		Short: "Delete a tag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				if _, err := ma.Tags().DeleteTagByName(ctx, args[0]).Await(ctx); err != nil {
					return err
				}

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag '%s'\n", args[0])
				return nil
			})
		},
	}

	return cmd
}

func NewTagRenameCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rename <name> <new-name>",
		Short: "Rename a tag",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithAgent(cmd, func(ctx context.Context, ma *agent.MemoboxAgent) error {
				tag, err := ma.Tags().GetTagByName(ctx, args[0]).Await(ctx)
				if err != nil {
					return err
				}

				tag.Name = args[1]
				_, err = ma.Tags().UpdateTag(ctx, *tag).Await(ctx)
				return err
			})
		},
	}

	return cmd
}
