package interfaces

import (
	"context"

	"github.com/tTomeRr/Beam/internal/finance/domain"
)

// MockCategoryService returns err from every call when set, otherwise the canned categories.
type MockCategoryService struct {
	categories []domain.Category
	err        error
	lastFields domain.CategoryFields
}

func (m *MockCategoryService) CreateCategory(ctx context.Context, ownerID int64, name, icon, color string, parentID *int64) (*domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Category{ID: 1, OwnerID: ownerID, Name: name, Icon: icon, Color: color, ParentCategoryID: parentID, IsActive: true}, nil
}

func (m *MockCategoryService) UpdateCategory(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	m.lastFields = fields
	if m.err != nil {
		return nil, m.err
	}
	return &domain.Category{ID: id, OwnerID: ownerID}, nil
}

func (m *MockCategoryService) DeleteCategory(ctx context.Context, id, ownerID int64) error {
	return m.err
}

func (m *MockCategoryService) ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.categories, nil
}

func (m *MockCategoryService) GetCategoryTree(ctx context.Context, ownerID int64) ([]domain.CategoryTree, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.BuildCategoryTree(m.categories), nil
}

func (m *MockCategoryService) GetSubcategories(ctx context.Context, ownerID, parentID int64) ([]domain.Category, error) {
	if m.err != nil {
		return nil, m.err
	}
	return domain.Subcategories(m.categories, parentID), nil
}
