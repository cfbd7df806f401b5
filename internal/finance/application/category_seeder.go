package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
	"golang.org/x/sync/errgroup"
)

const seedAllLockKey = "beam:seed-default-categories"

// SeedLocker guards the batch seed so that only one process runs it at a time.
type SeedLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), acquired bool, err error)
}

type SeedReport struct {
	Users       int  `json:"users"`
	Seeded      int  `json:"seeded"`
	Skipped     int  `json:"skipped"`
	Failed      int  `json:"failed"`
	LockSkipped bool `json:"lockSkipped"`
}

type DefaultCategorySeeder struct {
	repo        domain.CategoryRepository
	catalog     []domain.DefaultCategory
	locker      SeedLocker
	lockTTL     time.Duration
	concurrency int
	logger      *slog.Logger
}

type SeederOption func(*DefaultCategorySeeder)

func WithSeedLocker(locker SeedLocker, ttl time.Duration) SeederOption {
	return func(s *DefaultCategorySeeder) {
		s.locker = locker
		s.lockTTL = ttl
	}
}

func WithSeedConcurrency(n int) SeederOption {
	return func(s *DefaultCategorySeeder) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

func WithCatalog(catalog []domain.DefaultCategory) SeederOption {
	return func(s *DefaultCategorySeeder) {
		s.catalog = catalog
	}
}

func NewDefaultCategorySeeder(repo domain.CategoryRepository, logger *slog.Logger, opts ...SeederOption) *DefaultCategorySeeder {
	if logger == nil {
		logger = slog.Default()
	}
	s := &DefaultCategorySeeder{
		repo:        repo,
		catalog:     domain.DefaultCategories,
		concurrency: 1,
		lockTTL:     10 * time.Minute,
		logger:      logger.With("component", "category_seeder"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SeedForUser inserts the whole catalog for ownerID in one transaction. On any failure nothing
// is kept.
func (s *DefaultCategorySeeder) SeedForUser(ctx context.Context, ownerID int64) error {
	err := s.repo.WithinTransaction(ctx, func(store domain.CategoryStore) error {
		for _, entry := range s.catalog {
			parent, err := store.Insert(ctx, domain.NewCategory{
				OwnerID:   ownerID,
				Name:      entry.Name,
				Icon:      entry.Icon,
				Color:     entry.Color,
				IsActive:  true,
				IsDefault: true,
			})
			if err != nil {
				return fmt.Errorf("insert default category %q: %w", entry.Name, err)
			}

			for _, sub := range entry.Subcategories {
				parentID := parent.ID
				if _, err := store.Insert(ctx, domain.NewCategory{
					OwnerID:          ownerID,
					Name:             sub.Name,
					Icon:             sub.Icon,
					Color:            sub.Color,
					ParentCategoryID: &parentID,
					IsActive:         true,
					IsDefault:        true,
				}); err != nil {
					return fmt.Errorf("insert default subcategory %q: %w", sub.Name, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to seed default categories", "owner_id", ownerID, "error", err)
		return fmt.Errorf("seed default categories for user %d: %w", ownerID, err)
	}

	s.logger.InfoContext(ctx, "seeded default categories", "owner_id", ownerID, "count", domain.DefaultCategoryCount(s.catalog))
	return nil
}

// SeedForAllUsers seeds every user that has no default categories yet. Users are processed
// concurrently; a failure for one user does not stop the others.
func (s *DefaultCategorySeeder) SeedForAllUsers(ctx context.Context) (SeedReport, error) {
	var report SeedReport

	if s.locker != nil {
		release, acquired, err := s.locker.TryLock(ctx, seedAllLockKey, s.lockTTL)
		if err != nil {
			return report, fmt.Errorf("acquire seed lock: %w", err)
		}
		if !acquired {
			s.logger.InfoContext(ctx, "seed run already in progress elsewhere, skipping")
			report.LockSkipped = true
			return report, nil
		}
		defer release()
	}

	ownerIDs, err := s.repo.ListOwnerIDs(ctx)
	if err != nil {
		return report, fmt.Errorf("list users: %w", err)
	}
	report.Users = len(ownerIDs)

	var (
		mu       sync.Mutex
		failures []error
	)
	record := func(fn func(r *SeedReport)) {
		mu.Lock()
		defer mu.Unlock()
		fn(&report)
	}

	g := new(errgroup.Group)
	g.SetLimit(s.concurrency)

	for _, ownerID := range ownerIDs {
		g.Go(func() error {
			seeded, err := s.seedIfMissing(ctx, ownerID)
			record(func(r *SeedReport) {
				switch {
				case err != nil:
					r.Failed++
					failures = append(failures, err)
				case seeded:
					r.Seeded++
				default:
					r.Skipped++
				}
			})
			return nil
		})
	}
	_ = g.Wait()

	s.logger.InfoContext(ctx, "default category seed run finished",
		"users", report.Users, "seeded", report.Seeded, "skipped", report.Skipped, "failed", report.Failed)

	return report, errors.Join(failures...)
}

func (s *DefaultCategorySeeder) seedIfMissing(ctx context.Context, ownerID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	count, err := s.repo.CountDefaults(ctx, ownerID)
	if err != nil {
		return false, fmt.Errorf("count default categories for user %d: %w", ownerID, err)
	}
	if count > 0 {
		return false, nil
	}

	if err := s.SeedForUser(ctx, ownerID); err != nil {
		if errors.Is(err, financeErrors.ErrDuplicateDefault) {
			// another seeder got there first
			return false, nil
		}
		return false, err
	}
	return true, nil
}
