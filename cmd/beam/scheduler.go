package main

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/tTomeRr/Beam/internal/finance/application"
)

// StartSeedScheduler re-runs the default category seed on schedule so accounts created while
// the seed was unavailable still get their catalog.
func StartSeedScheduler(ctx context.Context, seeder *application.DefaultCategorySeeder, schedule string) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		report, err := seeder.SeedForAllUsers(ctx)
		if err != nil {
			slog.Error("scheduled seed run failed", "error", err)
			return
		}
		slog.Info("scheduled seed run finished",
			"users", report.Users,
			"seeded", report.Seeded,
			"skipped", report.Skipped,
			"failed", report.Failed,
			"lock_skipped", report.LockSkipped,
		)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	slog.Info("seed scheduler started", "schedule", schedule)
	return c, nil
}
