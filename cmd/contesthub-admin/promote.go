package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/store"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user"
	"github.com/ovaphlow/pitchfork/service-contest-hub/internal/user/entity"
)

func promoteCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Set the role of an existing account",
		Long: `Set the role of an existing account. This is how the first admin
is bootstrapped, since role changes over HTTP already require one.

Examples:
  contesthub-admin promote --email ops@example.com --role admin
  contesthub-admin promote --email host@example.com --role creator`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStores(cmd, func(ctx context.Context, s *store.Stores) error {
				u, err := user.NewService(s.Users, nil).SetRoleByEmail(ctx, email, role)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&role, "role", entity.RoleAdmin, "user, creator or admin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
