package domain

import "context"

// Category is a single node of a user's category forest. A nil ParentCategoryID marks a top-level category.
type Category struct {
	ID               int64  `json:"id"`
	OwnerID          int64  `json:"userId"`
	Name             string `json:"name"`
	Icon             string `json:"icon"`
	Color            string `json:"color"`
	IsActive         bool   `json:"isActive"`
	ParentCategoryID *int64 `json:"parentCategoryId"`
	IsDefault        bool   `json:"isDefault"`
}

func (c Category) IsTopLevel() bool {
	return c.ParentCategoryID == nil
}

func (c Category) IsChildOf(parentID int64) bool {
	return c.ParentCategoryID != nil && *c.ParentCategoryID == parentID
}

type NewCategory struct {
	OwnerID          int64
	Name             string
	Icon             string
	Color            string
	ParentCategoryID *int64
	IsActive         bool
	IsDefault        bool
}

// ParentRef carries a requested parent change. A nil ID moves the category to the top level.
type ParentRef struct {
	ID *int64
}

// CategoryFields is a partial update. Nil fields are left untouched.
type CategoryFields struct {
	Name     *string
	Icon     *string
	Color    *string
	IsActive *bool
	Parent   *ParentRef
}

func (f CategoryFields) IsEmpty() bool {
	return f.Name == nil && f.Icon == nil && f.Color == nil && f.IsActive == nil && f.Parent == nil
}

// TouchesContent reports whether the update carries name, icon or color.
func (f CategoryFields) TouchesContent() bool {
	return f.Name != nil || f.Icon != nil || f.Color != nil
}

// ChangesFrom drops every field whose requested value equals the current one.
func (f CategoryFields) ChangesFrom(current Category) CategoryFields {
	changes := CategoryFields{}
	if f.Name != nil && *f.Name != current.Name {
		changes.Name = f.Name
	}
	if f.Icon != nil && *f.Icon != current.Icon {
		changes.Icon = f.Icon
	}
	if f.Color != nil && *f.Color != current.Color {
		changes.Color = f.Color
	}
	if f.IsActive != nil && *f.IsActive != current.IsActive {
		changes.IsActive = f.IsActive
	}
	if f.Parent != nil && !sameParent(f.Parent.ID, current.ParentCategoryID) {
		changes.Parent = f.Parent
	}
	return changes
}

func sameParent(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CategoryStore is the owner-scoped row gateway. It enforces no hierarchy rules.
type CategoryStore interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]Category, error)
	Get(ctx context.Context, id, ownerID int64) (*Category, error)
	Insert(ctx context.Context, category NewCategory) (*Category, error)
	UpdateFields(ctx context.Context, id, ownerID int64, fields CategoryFields) (*Category, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	// DeleteChildren removes the rows whose parent is parentID at the time of the call.
	DeleteChildren(ctx context.Context, parentID, ownerID int64) (int64, error)
}

type CategoryRepository interface {
	CategoryStore
	// WithinTransaction runs fn against a store bound to a single transaction.
	// The transaction commits when fn returns nil and rolls back otherwise.
	WithinTransaction(ctx context.Context, fn func(store CategoryStore) error) error
	ListOwnerIDs(ctx context.Context) ([]int64, error)
	CountDefaults(ctx context.Context, ownerID int64) (int, error)
}
