package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tTomeRr/Beam/internal/config"
	database "github.com/tTomeRr/Beam/internal/db"
	"github.com/tTomeRr/Beam/internal/finance/application"
	"github.com/tTomeRr/Beam/internal/finance/domain"
	"github.com/tTomeRr/Beam/internal/finance/infrastructure"
)

// app holds the components shared by the commands.
type app struct {
	dbService *database.DBService
	repo      domain.CategoryRepository
	memory    *infrastructure.MemoryCategoryRepository
	service   *application.CategoryService
	seeder    *application.DefaultCategorySeeder
	closers   []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &app{}

	switch cfg.DataBackend {
	case config.BackendMemory:
		a.memory = infrastructure.NewMemoryCategoryRepository()
		a.repo = a.memory
		slog.Warn("using in-memory category store, data is lost on exit")
	default:
		dbService, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.dbService = dbService
		a.closers = append(a.closers, dbService.Close)
		a.repo = infrastructure.NewCategoryRepository(dbService.DB, slog.Default().With("component", "category_repository"))
	}

	seederOpts := []application.SeederOption{application.WithSeedConcurrency(cfg.SeedConcurrency)}
	if cfg.RedisURL != "" {
		client, err := infrastructure.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		lock := infrastructure.NewRedisSeedLock(client, slog.Default().With("component", "seed_lock"))
		seederOpts = append(seederOpts, application.WithSeedLocker(lock, cfg.SeedLockTTL))
	}

	a.service = application.NewCategoryService(a.repo, slog.Default())
	a.seeder = application.NewDefaultCategorySeeder(a.repo, slog.Default(), seederOpts...)
	return a, nil
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DBService, error) {
	dbService, err := database.NewDBService(ctx, cfg.DatabaseURL, database.Options{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}
	return dbService, nil
}

// registerOwners makes accounts known to the in-memory store. Postgres reads them from users.
func (a *app) registerOwners(ownerIDs []int64) {
	if a.memory == nil {
		if len(ownerIDs) > 0 {
			slog.Warn("ignoring --owner, accounts are read from the users table")
		}
		return
	}
	for _, id := range ownerIDs {
		a.memory.AddOwner(id)
	}
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			slog.Error("error during shutdown", "error", err)
		}
	}
}
