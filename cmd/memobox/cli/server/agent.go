package server

import (
	"context"
	"fmt"

	"github.com/mwantia/memobox/internal/agent"
	"github.com/mwantia/memobox/internal/config"
	"github.com/spf13/cobra"
)

func NewAgentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Start the Memobox agent",
		Long:  `Start the Memobox agent. It opens the store and storage backend and logs live changes to items and tags until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			agent := agent.NewAgent(cfg)
			if err := agent.Serve(context.Background()); err != nil {
				return err
			}

			return nil
		},
	}

	return cmd
}
