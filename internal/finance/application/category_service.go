package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
)

// Column limits of the categories table, in characters.
const (
	maxNameLength  = 100
	maxIconLength  = 50
	maxColorLength = 20
)

// CategoryService is the only component that mutates categories. Every mutation runs in one
// store transaction that starts by re-reading the rows it depends on.
type CategoryService struct {
	repo   domain.CategoryRepository
	logger *slog.Logger
}

func NewCategoryService(repo domain.CategoryRepository, logger *slog.Logger) *CategoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryService{repo: repo, logger: logger.With("component", "category_service")}
}

func (s *CategoryService) CreateCategory(ctx context.Context, ownerID int64, name, icon, color string, parentID *int64) (*domain.Category, error) {
	name, icon, color = strings.TrimSpace(name), strings.TrimSpace(icon), strings.TrimSpace(color)
	if err := validateRequired(name, icon, color); err != nil {
		return nil, err
	}

	var created *domain.Category
	err := s.repo.WithinTransaction(ctx, func(store domain.CategoryStore) error {
		if parentID != nil {
			if err := validateParent(ctx, store, ownerID, *parentID); err != nil {
				return err
			}
		}

		category, err := store.Insert(ctx, domain.NewCategory{
			OwnerID:          ownerID,
			Name:             name,
			Icon:             icon,
			Color:            color,
			ParentCategoryID: parentID,
			IsActive:         true,
		})
		if err != nil {
			return err
		}
		created = category
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "category created", "owner_id", ownerID, "category_id", created.ID, "parent_id", parentID)
	return created, nil
}

func validateRequired(name, icon, color string) error {
	validationErrors := &financeErrors.ValidationErrors{}
	required := func(field, value string, maxLength int) {
		switch {
		case value == "":
			validationErrors.Add(financeErrors.NewFieldValidationError(field, "is required"))
		case utf8.RuneCountInString(value) > maxLength:
			validationErrors.Add(tooLong(field, maxLength))
		}
	}
	required("name", name, maxNameLength)
	required("icon", icon, maxIconLength)
	required("color", color, maxColorLength)
	if validationErrors.HasErrors() {
		return validationErrors
	}
	return nil
}

// validateParent checks that parentID names a top-level category of the same owner.
func validateParent(ctx context.Context, store domain.CategoryStore, ownerID, parentID int64) error {
	parent, err := store.Get(ctx, parentID, ownerID)
	if err != nil {
		if errors.Is(err, financeErrors.ErrCategoryNotFound) {
			return financeErrors.ErrParentNotFound
		}
		return err
	}
	if !parent.IsTopLevel() {
		return financeErrors.ErrMaxDepthExceeded
	}
	return nil
}

// UpdateCategory applies a partial update. Default categories only accept isActive changes;
// fields equal to the stored value are ignored. An update that changes nothing returns the
// current row.
func (s *CategoryService) UpdateCategory(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return nil, err
	}

	var updated *domain.Category
	err = s.repo.WithinTransaction(ctx, func(store domain.CategoryStore) error {
		current, err := store.Get(ctx, id, ownerID)
		if err != nil {
			return err
		}

		changes := fields.ChangesFrom(*current)
		if current.IsDefault && changes.TouchesContent() {
			return financeErrors.ErrProtectedCategory
		}

		if changes.Parent != nil {
			if err := s.checkReparent(ctx, store, current, changes.Parent); err != nil {
				return err
			}
		}

		if changes.IsEmpty() {
			updated = current
			return nil
		}

		updated, err = store.UpdateFields(ctx, id, ownerID, changes)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "category updated", "owner_id", ownerID, "category_id", id)
	return updated, nil
}

// normalizeFields trims the provided text fields and rejects blank ones.
func normalizeFields(fields domain.CategoryFields) (domain.CategoryFields, error) {
	validationErrors := &financeErrors.ValidationErrors{}
	trim := func(field string, value *string, maxLength int) *string {
		if value == nil {
			return nil
		}
		trimmed := strings.TrimSpace(*value)
		switch {
		case trimmed == "":
			validationErrors.Add(financeErrors.NewFieldValidationError(field, "cannot be empty"))
		case utf8.RuneCountInString(trimmed) > maxLength:
			validationErrors.Add(tooLong(field, maxLength))
		}
		return &trimmed
	}

	fields.Name = trim("name", fields.Name, maxNameLength)
	fields.Icon = trim("icon", fields.Icon, maxIconLength)
	fields.Color = trim("color", fields.Color, maxColorLength)

	if validationErrors.HasErrors() {
		return fields, validationErrors
	}
	return fields, nil
}

func tooLong(field string, maxLength int) error {
	return financeErrors.NewFieldValidationError(field, fmt.Sprintf("must be at most %d characters", maxLength))
}

func (s *CategoryService) checkReparent(ctx context.Context, store domain.CategoryStore, current *domain.Category, parent *domain.ParentRef) error {
	if current.IsDefault {
		return financeErrors.ErrProtectedCategory
	}
	if parent.ID == nil {
		return nil
	}
	if *parent.ID == current.ID {
		return financeErrors.ErrSelfParent
	}
	if err := validateParent(ctx, store, current.OwnerID, *parent.ID); err != nil {
		return err
	}

	// a category with children cannot become a child itself
	categories, err := store.ListByOwner(ctx, current.OwnerID)
	if err != nil {
		return err
	}
	if len(domain.Subcategories(categories, current.ID)) > 0 {
		return financeErrors.ErrMaxDepthExceeded
	}
	return nil
}

// DeleteCategory removes a category. Deleting a top-level category removes its subcategories
// in the same transaction.
func (s *CategoryService) DeleteCategory(ctx context.Context, id, ownerID int64) error {
	var removedChildren int64
	err := s.repo.WithinTransaction(ctx, func(store domain.CategoryStore) error {
		current, err := store.Get(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if current.IsDefault {
			return financeErrors.ErrProtectedCategory
		}

		if current.IsTopLevel() {
			categories, err := store.ListByOwner(ctx, ownerID)
			if err != nil {
				return err
			}
			for _, child := range domain.Subcategories(categories, id) {
				if child.IsDefault {
					return financeErrors.ErrProtectedCategory
				}
			}
			// by parent id, so a child moved away since the read is kept
			removedChildren, err = store.DeleteChildren(ctx, id, ownerID)
			if err != nil {
				return err
			}
		}

		deleted, err := store.Delete(ctx, id, ownerID)
		if err != nil {
			return err
		}
		if !deleted {
			return financeErrors.ErrCategoryNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "category deleted", "owner_id", ownerID, "category_id", id, "subcategories_deleted", removedChildren)
	return nil
}

func (s *CategoryService) ListCategories(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *CategoryService) GetCategoryTree(ctx context.Context, ownerID int64) ([]domain.CategoryTree, error) {
	categories, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return domain.BuildCategoryTree(categories), nil
}

// GetSubcategories returns the children of parentID. Unknown parents yield an empty list.
func (s *CategoryService) GetSubcategories(ctx context.Context, ownerID, parentID int64) ([]domain.Category, error) {
	categories, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return domain.Subcategories(categories, parentID), nil
}

// DoesCategoryExist lets transaction and budget code check a category reference before storing it.
func (s *CategoryService) DoesCategoryExist(ctx context.Context, id, ownerID int64) (bool, error) {
	_, err := s.repo.Get(ctx, id, ownerID)
	if err != nil {
		if errors.Is(err, financeErrors.ErrCategoryNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
