package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/store"
	"github.com/ovaphlow/pitchfork/service-contest-hub/pkg/database"
)

var Version = "dev"

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:          "contesthub-admin",
		Short:        "Operator tasks for the contest hub store",
		Version:      Version,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().Duration("timeout", 30*time.Second, "deadline for the whole command")

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(promoteCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withStores opens the configured store for the duration of fn.
func withStores(cmd *cobra.Command, fn func(ctx context.Context, s *store.Stores) error) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	s, err := store.Open(ctx, database.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close(context.Background())
	return fn(ctx, s)
}
