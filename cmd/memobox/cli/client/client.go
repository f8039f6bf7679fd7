package client

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mwantia/memobox/internal/agent"
	"github.com/mwantia/memobox/internal/config"
	"github.com/mwantia/memobox/pkg/repository"
	"github.com/spf13/cobra"
)

// runWithAgent opens an agent for the duration of fn. Unless the log level
// was given on the command line only warnings are logged, so they do not
// mix with command output.
func runWithAgent(cmd *cobra.Command, fn func(ctx context.Context, ma *agent.MemoboxAgent) error) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if f := cmd.Flag("log-level"); f == nil || !f.Changed {
		cfg.Log.Level = "WARN"
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ma := agent.NewAgent(cfg)
	if err := ma.Open(ctx); err != nil {
		return err
	}

	runErr := fn(ctx, ma)
	if err := ma.Close(context.Background()); err != nil && runErr == nil {
		return err
	}
	return runErr
}

func parseID(value string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id '%s'", value)
	}
	return uint(id), nil
}

// resolveTagIDs maps tag names onto their ids.
func resolveTagIDs(ctx context.Context, tags *repository.TagRepository, names []string) ([]uint, error) {
	ids := make([]uint, 0, len(names))
	for _, name := range names {
		tag, err := tags.GetTagByName(ctx, name).Await(ctx)
		if err != nil {
			return nil, fmt.Errorf("unknown tag '%s': %w", name, err)
		}
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
