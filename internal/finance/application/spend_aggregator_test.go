package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tTomeRr/Beam/internal/finance/domain"
)

type MockCategoryReader struct {
	categories []domain.Category
	shouldFail bool
}

func (m *MockCategoryReader) ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	if m.shouldFail {
		return nil, errors.New("mock error")
	}
	return m.categories, nil
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func TestMonthlyRollup_FamiliesAreOneBucket(t *testing.T) {
	reader := &MockCategoryReader{categories: []domain.Category{
		{ID: 1, Name: "Transport", IsActive: true},
		{ID: 2, Name: "Fuel", ParentCategoryID: int64Ptr(1), IsActive: true},
		{ID: 3, Name: "Parking", ParentCategoryID: int64Ptr(1), IsActive: false},
		{ID: 4, Name: "Food", IsActive: true},
		{ID: 5, Name: "Other", IsActive: true},
		{ID: 6, Name: "Hidden", IsActive: false},
		{ID: 8, Name: "Stray", ParentCategoryID: int64Ptr(99), IsActive: true},
	}}
	aggregator := NewSpendAggregator(reader)

	spends := []SpendRecord{
		{CategoryID: 1, Amount: 10, Date: day(2024, time.March, 1)},
		{CategoryID: 2, Amount: 55.5, Date: day(2024, time.March, 5)},
		{CategoryID: 3, Amount: 4.5, Date: day(2024, time.March, 9)},
		{CategoryID: 4, Amount: 100.12, Date: day(2024, time.March, 10)},
		{CategoryID: 4, Amount: 999, Date: day(2024, time.April, 1)},
		{CategoryID: 77, Amount: 20, Date: day(2024, time.March, 15)},
		{CategoryID: 6, Amount: 3, Date: day(2024, time.March, 15)},
		{CategoryID: 8, Amount: 5, Date: day(2024, time.March, 20)},
	}
	budgets := []BudgetPlan{
		{CategoryID: 1, Month: 3, Year: 2024, PlannedAmount: 100},
		{CategoryID: 2, Month: 3, Year: 2024, PlannedAmount: 50},
		{CategoryID: 4, Month: 3, Year: 2024, PlannedAmount: 200},
		{CategoryID: 4, Month: 2, Year: 2024, PlannedAmount: 500},
	}

	rollup, err := aggregator.MonthlyRollup(context.Background(), ownerID, 2024, 3, spends, budgets)
	require.NoError(t, err)

	require.Len(t, rollup.Categories, 2)
	assert.Equal(t, CategorySpend{CategoryID: 1, Name: "Transport", Budgeted: 150, Spent: 70}, rollup.Categories[0])
	assert.Equal(t, CategorySpend{CategoryID: 4, Name: "Food", Budgeted: 200, Spent: 100.12}, rollup.Categories[1])

	assert.Equal(t, 198.12, rollup.TotalSpent)
	assert.Equal(t, 350.0, rollup.TotalBudgeted)
	assert.Equal(t, 25.0, rollup.Unassigned)
	assert.Equal(t, 151.88, rollup.Available)
	assert.Equal(t, 56.61, rollup.PercentSpent)
}

func TestMonthlyRollup_EmptyMonth(t *testing.T) {
	aggregator := NewSpendAggregator(&MockCategoryReader{categories: []domain.Category{{ID: 1, Name: "Food", IsActive: true}}})

	rollup, err := aggregator.MonthlyRollup(context.Background(), ownerID, 2024, 1, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, rollup.Categories)
	assert.Empty(t, rollup.Categories)
	assert.Zero(t, rollup.PercentSpent)
}

func TestMonthlyRollup_Errors(t *testing.T) {
	_, err := NewSpendAggregator(&MockCategoryReader{}).MonthlyRollup(context.Background(), ownerID, 2024, 13, nil, nil)
	assert.Error(t, err)

	_, err = NewSpendAggregator(&MockCategoryReader{shouldFail: true}).MonthlyRollup(context.Background(), ownerID, 2024, 1, nil, nil)
	assert.Error(t, err)
}

func TestMonthlyRollup_WithCategoryService(t *testing.T) {
	ctx := context.Background()
	service, repo := newTestService(t)
	categories := seedOwner(t, repo)
	fuel := findByName(t, categories, "Fuel")
	transport := findByName(t, categories, "Transport")

	rollup, err := NewSpendAggregator(service).MonthlyRollup(ctx, ownerID, 2024, 6,
		[]SpendRecord{{CategoryID: fuel.ID, Amount: 42, Date: day(2024, time.June, 2)}}, nil)
	require.NoError(t, err)

	require.Len(t, rollup.Categories, 1)
	assert.Equal(t, transport.ID, rollup.Categories[0].CategoryID)
	assert.Equal(t, 42.0, rollup.Categories[0].Spent)
	assert.Equal(t, transport.Color, rollup.Categories[0].Color)
}
