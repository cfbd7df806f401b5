package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/tTomeRr/Beam/internal/auth"
)

func tokenCmd() *cobra.Command {
	var (
		userID int64
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an access token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userID <= 0 {
				return errors.New("--user must be a positive id")
			}
			jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
			if err != nil {
				return err
			}
			token, err := jwtManager.GenerateAccessJWT(userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "user id carried by the token")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultAccessTokenDuration, "token lifetime")
	return cmd
}
