package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/store"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create tables or indexes for the configured STORE_DRIVER",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				if err := s.EnsureSchema(ctx); err != nil {
					return fmt.Errorf("ensure schema: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s)\n", s.Driver)
				return nil
			})
		},
	}
}
