package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/auth"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/store"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user"
)

func tokenCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed session token for an existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := auth.NewTokenService(auth.ConfigFromEnv())
			if err != nil {
				return err
			}
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				u, err := user.NewService(s.Users, nil).GetByEmail(ctx, email)
				if err != nil {
					return err
				}
				tok, err := tokens.Issue(u.Email)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), tok)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
