package server

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/db/store"
	"github.com/spf13/cobra"
)

func NewMigrateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Long:  "Apply all pending schema migrations to the metadata database. The agent does this on startup as well.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.SQLiteStore) error {
				if err := st.Migrate(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
				return nil
			})
		},
	}

	cmd.AddCommand(NewMigrateStatusCommand())
	cmd.AddCommand(NewMigrateRollbackCommand())

	return cmd
}

func NewMigrateStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List schema migrations and whether they are applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, st *store.SQLiteStore) error {
				statuses, err := st.MigrationStatus(ctx)
				if err != nil {
					return err
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tAPPLIED\tDESCRIPTION")
				for _, status := range statuses {
					fmt.Fprintf(tw, "%d\t%t\t%s\n", status.Version, status.Applied, status.Description)
				}
				return tw.Flush()
			})
		},
	}

	return cmd
}

func NewMigrateRollbackCommand() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "rollback",
		Short: "Revert the last applied schema migration",
		Long:  "Revert the last applied schema migration. Reverting the initial migration drops all items, tags and file records, so --force is required.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("rollback discards data, rerun with --force")
			}

			return withStore(cmd, func(ctx context.Context, st *store.SQLiteStore) error {
				if err := st.Rollback(ctx); err != nil {
					return err
				}

				fmt.Fprintln(cmd.OutOrStdout(), "Reverted the last migration")
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "confirm that data may be discarded")

	return cmd
}

// withStore connects to the configured metadata database without migrating it.
func withStore(cmd *cobra.Command, fn func(ctx context.Context, st *store.SQLiteStore) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := store.NewSQLiteStore(store.SQLiteConfig{
		Path:        cfg.Metadata.SQLite.Path,
		BusyTimeout: cfg.Metadata.SQLite.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	if err := st.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect store: %w", err)
	}

	return fn(ctx, st)
}
