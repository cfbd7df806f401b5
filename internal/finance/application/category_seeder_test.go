package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
	"github.com/tTomeRr/Beam/internal/finance/infrastructure"
)

func TestSeedForUser_InsertsWholeCatalog(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(ownerID)
	seeder := NewDefaultCategorySeeder(repo, testLogger())

	require.NoError(t, seeder.SeedForUser(ctx, ownerID))

	categories, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Len(t, categories, domain.DefaultCategoryCount(domain.DefaultCategories))

	for _, category := range categories {
		assert.True(t, category.IsDefault)
		assert.True(t, category.IsActive)
	}

	tree := domain.BuildCategoryTree(categories)
	require.Len(t, tree, len(domain.DefaultCategories))
	for i, entry := range domain.DefaultCategories {
		assert.Equal(t, entry.Name, tree[i].Name)
		require.Len(t, tree[i].Subcategories, len(entry.Subcategories))
		for j, sub := range entry.Subcategories {
			assert.Equal(t, sub.Name, tree[i].Subcategories[j].Name)
			assert.Equal(t, tree[i].ID, *tree[i].Subcategories[j].ParentCategoryID)
		}
	}

	count, err := repo.CountDefaults(ctx, ownerID)
	require.NoError(t, err)
	assert.Equal(t, 40, count)
}

func TestSeedForUser_TransportScenario(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(ownerID)
	seeder := NewDefaultCategorySeeder(repo, testLogger())
	service := NewCategoryService(repo, testLogger())

	require.NoError(t, seeder.SeedForUser(ctx, ownerID))

	tree, err := service.GetCategoryTree(ctx, ownerID)
	require.NoError(t, err)
	transport := tree[1]
	assert.Equal(t, "Transport", transport.Name)
	assert.Equal(t, "Fuel", transport.Subcategories[0].Name)

	fuel := transport.Subcategories[0]
	_, err = service.UpdateCategory(ctx, fuel.ID, ownerID, domain.CategoryFields{Name: strPtr("Gas")})
	assert.ErrorIs(t, err, financeErrors.ErrProtectedCategory)
}

// failAfterRepository fails the nth insert made inside a transaction.
type failAfterRepository struct {
	*infrastructure.MemoryCategoryRepository
	failAt int
}

type failingInsertStore struct {
	domain.CategoryStore
	inserts *int
	failAt  int
}

func (s *failingInsertStore) Insert(ctx context.Context, category domain.NewCategory) (*domain.Category, error) {
	*s.inserts++
	if *s.inserts == s.failAt {
		return nil, errors.New("disk full")
	}
	return s.CategoryStore.Insert(ctx, category)
}

func (r *failAfterRepository) WithinTransaction(ctx context.Context, fn func(store domain.CategoryStore) error) error {
	inserts := 0
	return r.MemoryCategoryRepository.WithinTransaction(ctx, func(store domain.CategoryStore) error {
		return fn(&failingInsertStore{CategoryStore: store, inserts: &inserts, failAt: r.failAt})
	})
}

func TestSeedForUser_RollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failAfterRepository{
		MemoryCategoryRepository: infrastructure.NewMemoryCategoryRepository(ownerID),
		failAt:                   12,
	}
	seeder := NewDefaultCategorySeeder(repo, testLogger())

	err := seeder.SeedForUser(ctx, ownerID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	categories, err := repo.ListByOwner(ctx, ownerID)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestSeedForAllUsers_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(1, 2, 3)
	seeder := NewDefaultCategorySeeder(repo, testLogger(), WithSeedConcurrency(2))

	require.NoError(t, seeder.SeedForUser(ctx, 2))

	report, err := seeder.SeedForAllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Users: 3, Seeded: 2, Skipped: 1}, report)

	report, err = seeder.SeedForAllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, SeedReport{Users: 3, Skipped: 3}, report)

	expected := domain.DefaultCategoryCount(domain.DefaultCategories)
	for _, id := range []int64{1, 2, 3} {
		count, err := repo.CountDefaults(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expected, count, "user %d", id)
	}
}

func TestSeedForAllUsers_SkipsUsersWithPartialDefaults(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(1)
	_, err := repo.Insert(ctx, domain.NewCategory{OwnerID: 1, Name: "Legacy", Icon: "Home", Color: "#fff", IsDefault: true, IsActive: true})
	require.NoError(t, err)

	seeder := NewDefaultCategorySeeder(repo, testLogger())
	report, err := seeder.SeedForAllUsers(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped)

	count, err := repo.CountDefaults(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestSeedForAllUsers_ContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	repo := &failAfterRepository{
		MemoryCategoryRepository: infrastructure.NewMemoryCategoryRepository(1, 2),
		failAt:                   3,
	}
	seeder := NewDefaultCategorySeeder(repo, testLogger())

	report, err := seeder.SeedForAllUsers(ctx)
	require.Error(t, err)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 0, report.Seeded)
}

func TestSeedForUser_SecondRunHitsUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(1)
	seeder := NewDefaultCategorySeeder(repo, testLogger())

	require.NoError(t, seeder.SeedForUser(ctx, 1))

	// a racing second seed hits the default-parent uniqueness rule and leaves nothing behind
	err := seeder.SeedForUser(ctx, 1)
	assert.ErrorIs(t, err, financeErrors.ErrDuplicateDefault)

	count, err := repo.CountDefaults(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultCategoryCount(domain.DefaultCategories), count)
}

func TestSeedForAllUsers_ConcurrentRunsDoNotDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(1, 2, 3, 4)
	seeder := NewDefaultCategorySeeder(repo, testLogger(), WithSeedConcurrency(4))

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := seeder.SeedForAllUsers(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	for _, id := range []int64{1, 2, 3, 4} {
		count, err := repo.CountDefaults(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultCategoryCount(domain.DefaultCategories), count)
	}
}

type MockSeedLocker struct {
	mu       sync.Mutex
	held     bool
	released int
	err      error
}

func (m *MockSeedLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, false, m.err
	}
	if m.held {
		return nil, false, nil
	}
	m.held = true
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.held = false
		m.released++
	}, true, nil
}

func TestSeedForAllUsers_Lock(t *testing.T) {
	ctx := context.Background()

	t.Run("acquired and released", func(t *testing.T) {
		locker := &MockSeedLocker{}
		repo := infrastructure.NewMemoryCategoryRepository(1)
		seeder := NewDefaultCategorySeeder(repo, testLogger(), WithSeedLocker(locker, time.Minute))

		report, err := seeder.SeedForAllUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Seeded)
		assert.Equal(t, 1, locker.released)
	})

	t.Run("held elsewhere", func(t *testing.T) {
		locker := &MockSeedLocker{held: true}
		repo := infrastructure.NewMemoryCategoryRepository(1)
		seeder := NewDefaultCategorySeeder(repo, testLogger(), WithSeedLocker(locker, time.Minute))

		report, err := seeder.SeedForAllUsers(ctx)
		require.NoError(t, err)
		assert.True(t, report.LockSkipped)

		count, err := repo.CountDefaults(ctx, 1)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("lock error", func(t *testing.T) {
		locker := &MockSeedLocker{err: errors.New("redis down")}
		seeder := NewDefaultCategorySeeder(infrastructure.NewMemoryCategoryRepository(1), testLogger(), WithSeedLocker(locker, time.Minute))

		_, err := seeder.SeedForAllUsers(ctx)
		assert.Error(t, err)
	})
}

func TestSeedForUser_CustomCatalog(t *testing.T) {
	ctx := context.Background()
	repo := infrastructure.NewMemoryCategoryRepository(1)
	catalog := []domain.DefaultCategory{
		{Name: "Only", Icon: "Home", Color: "#fff", Subcategories: []domain.DefaultSubcategory{{Name: "Child", Icon: "Home", Color: "#fff"}}},
	}
	seeder := NewDefaultCategorySeeder(repo, testLogger(), WithCatalog(catalog))

	require.NoError(t, seeder.SeedForUser(ctx, 1))

	categories, err := repo.ListByOwner(ctx, 1)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, categories[0].ID, *categories[1].ParentCategoryID)
}
