package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tTomeRr/Beam/internal/finance/domain"
)

type SpendRecord struct {
	CategoryID int64
	Amount     float64
	Date       time.Time
}

type BudgetPlan struct {
	CategoryID    int64
	Month         int
	Year          int
	PlannedAmount float64
}

type CategorySpend struct {
	CategoryID int64   `json:"categoryId"`
	Name       string  `json:"name"`
	Icon       string  `json:"icon"`
	Color      string  `json:"color"`
	Budgeted   float64 `json:"budgeted"`
	Spent      float64 `json:"spent"`
}

type MonthlyRollup struct {
	Year          int             `json:"year"`
	Month         int             `json:"month"`
	TotalBudgeted float64         `json:"totalBudgeted"`
	TotalSpent    float64         `json:"totalSpent"`
	Available     float64         `json:"available"`
	PercentSpent  float64         `json:"percentSpent"`
	Unassigned    float64         `json:"unassigned"`
	Categories    []CategorySpend `json:"categories"`
}

type CategoryReader interface {
	ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error)
}

// SpendAggregator rolls transactions and budgets up to top-level categories, counting a
// parent and its subcategories as one bucket.
type SpendAggregator struct {
	categories CategoryReader
}

func NewSpendAggregator(categories CategoryReader) *SpendAggregator {
	return &SpendAggregator{categories: categories}
}

// MonthlyRollup reports budgeted and spent amounts per active top-level category for one month.
// Spending that references an unknown category is reported as Unassigned.
func (a *SpendAggregator) MonthlyRollup(ctx context.Context, ownerID int64, year, month int, spends []SpendRecord, budgets []BudgetPlan) (*MonthlyRollup, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %d", month)
	}

	categories, err := a.categories.ListCategories(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	// every known id maps to the id of its top-level category
	familyOf := make(map[int64]int64, len(categories))
	for _, node := range domain.BuildCategoryTree(categories) {
		for _, id := range domain.FamilyIDs(categories, node.ID) {
			familyOf[id] = node.ID
		}
	}

	rollup := &MonthlyRollup{Year: year, Month: month, Categories: []CategorySpend{}}
	spent := make(map[int64]float64)
	budgeted := make(map[int64]float64)

	for _, record := range spends {
		if record.Date.Year() != year || int(record.Date.Month()) != month {
			continue
		}
		rollup.TotalSpent += record.Amount
		family, ok := familyOf[record.CategoryID]
		if !ok {
			rollup.Unassigned += record.Amount
			continue
		}
		spent[family] += record.Amount
	}

	for _, plan := range budgets {
		if plan.Year != year || plan.Month != month {
			continue
		}
		rollup.TotalBudgeted += plan.PlannedAmount
		if family, ok := familyOf[plan.CategoryID]; ok {
			budgeted[family] += plan.PlannedAmount
		}
	}

	for _, category := range categories {
		if !category.IsTopLevel() || !category.IsActive {
			continue
		}
		row := CategorySpend{
			CategoryID: category.ID,
			Name:       category.Name,
			Icon:       category.Icon,
			Color:      category.Color,
			Budgeted:   roundToTwoDecimalPlaces(budgeted[category.ID]),
			Spent:      roundToTwoDecimalPlaces(spent[category.ID]),
		}
		if row.Budgeted == 0 && row.Spent == 0 {
			continue
		}
		rollup.Categories = append(rollup.Categories, row)
	}

	rollup.TotalSpent = roundToTwoDecimalPlaces(rollup.TotalSpent)
	rollup.TotalBudgeted = roundToTwoDecimalPlaces(rollup.TotalBudgeted)
	rollup.Unassigned = roundToTwoDecimalPlaces(rollup.Unassigned)
	rollup.Available = roundToTwoDecimalPlaces(rollup.TotalBudgeted - rollup.TotalSpent)
	if rollup.TotalBudgeted > 0 {
		rollup.PercentSpent = roundToTwoDecimalPlaces(rollup.TotalSpent / rollup.TotalBudgeted * 100)
	}
	return rollup, nil
}

func roundToTwoDecimalPlaces(v float64) float64 {
	return math.Round(v*100) / 100
}
