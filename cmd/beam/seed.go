package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/tTomeRr/Beam/internal/config"
)

func seedCmd() *cobra.Command {
	var userID int64

	cmd := &cobra.Command{
		Use:   "seed-defaults",
		Short: "Create the default categories for one user or for every user missing them",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DataBackend != config.BackendPostgres {
				return fmt.Errorf("seed-defaults needs the postgres backend, got %q", cfg.DataBackend)
			}
			ctx := cmd.Context()

			a, err := newApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if userID > 0 {
				return a.seeder.SeedForUser(ctx, userID)
			}

			report, err := a.seeder.SeedForAllUsers(ctx)
			slog.Info("seed run finished",
				"users", report.Users,
				"seeded", report.Seeded,
				"skipped", report.Skipped,
				"failed", report.Failed,
				"lock_skipped", report.LockSkipped,
			)
			return err
		},
	}

	cmd.Flags().Int64Var(&userID, "user", 0, "seed only this user id")
	return cmd
}
