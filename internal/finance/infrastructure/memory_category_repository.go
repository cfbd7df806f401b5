package infrastructure

import (
	"context"
	"sort"
	"sync"

	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
)

// MemoryCategoryRepository keeps categories in process memory. Transactions run on a copy of the
// rows that replaces the committed state only when the callback succeeds.
type MemoryCategoryRepository struct {
	mu    sync.Mutex
	state *memoryState
}

type memoryState struct {
	nextID     int64
	categories map[int64]domain.Category
	owners     map[int64]struct{}
}

func NewMemoryCategoryRepository(ownerIDs ...int64) *MemoryCategoryRepository {
	state := &memoryState{
		nextID:     1,
		categories: make(map[int64]domain.Category),
		owners:     make(map[int64]struct{}),
	}
	for _, id := range ownerIDs {
		state.owners[id] = struct{}{}
	}
	return &MemoryCategoryRepository{state: state}
}

// AddOwner registers a user account so that batch seeding can see it.
func (r *MemoryCategoryRepository) AddOwner(ownerID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.owners[ownerID] = struct{}{}
}

func (r *MemoryCategoryRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.listByOwner(ctx, ownerID)
}

func (r *MemoryCategoryRepository) Get(ctx context.Context, id, ownerID int64) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.get(ctx, id, ownerID)
}

func (r *MemoryCategoryRepository) Insert(ctx context.Context, category domain.NewCategory) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.insert(ctx, category)
}

func (r *MemoryCategoryRepository) UpdateFields(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.updateFields(ctx, id, ownerID, fields)
}

func (r *MemoryCategoryRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.delete(ctx, id, ownerID)
}

func (r *MemoryCategoryRepository) DeleteChildren(ctx context.Context, parentID, ownerID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.deleteChildren(ctx, parentID, ownerID)
}

func (r *MemoryCategoryRepository) WithinTransaction(ctx context.Context, fn func(store domain.CategoryStore) error) (err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	working := r.state.clone()
	defer func() {
		if p := recover(); p != nil {
			panic(p)
		}
		if err == nil {
			r.state = working
		}
	}()

	return fn(&memoryTxStore{state: working})
}

func (r *MemoryCategoryRepository) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]int64, 0, len(r.state.owners))
	for id := range r.state.owners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (r *MemoryCategoryRepository) CountDefaults(ctx context.Context, ownerID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, category := range r.state.categories {
		if category.OwnerID == ownerID && category.IsDefault {
			count++
		}
	}
	return count, nil
}

// memoryTxStore is the store handed to WithinTransaction callbacks. The repository mutex is
// already held, so it works on the transaction copy directly.
type memoryTxStore struct {
	state *memoryState
}

func (s *memoryTxStore) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	return s.state.listByOwner(ctx, ownerID)
}

func (s *memoryTxStore) Get(ctx context.Context, id, ownerID int64) (*domain.Category, error) {
	return s.state.get(ctx, id, ownerID)
}

func (s *memoryTxStore) Insert(ctx context.Context, category domain.NewCategory) (*domain.Category, error) {
	return s.state.insert(ctx, category)
}

func (s *memoryTxStore) UpdateFields(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	return s.state.updateFields(ctx, id, ownerID, fields)
}

func (s *memoryTxStore) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	return s.state.delete(ctx, id, ownerID)
}

func (s *memoryTxStore) DeleteChildren(ctx context.Context, parentID, ownerID int64) (int64, error) {
	return s.state.deleteChildren(ctx, parentID, ownerID)
}

func (s *memoryState) clone() *memoryState {
	c := &memoryState{
		nextID:     s.nextID,
		categories: make(map[int64]domain.Category, len(s.categories)),
		owners:     make(map[int64]struct{}, len(s.owners)),
	}
	for id, category := range s.categories {
		c.categories[id] = category
	}
	for id := range s.owners {
		c.owners[id] = struct{}{}
	}
	return c
}

func (s *memoryState) listByOwner(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	categories := make([]domain.Category, 0)
	for _, category := range s.categories {
		if category.OwnerID == ownerID {
			categories = append(categories, copyCategory(category))
		}
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].ID < categories[j].ID })
	return categories, nil
}

func (s *memoryState) get(ctx context.Context, id, ownerID int64) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	category, ok := s.categories[id]
	if !ok || category.OwnerID != ownerID {
		return nil, financeErrors.ErrCategoryNotFound
	}
	c := copyCategory(category)
	return &c, nil
}

func (s *memoryState) insert(ctx context.Context, newCategory domain.NewCategory) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if newCategory.IsDefault && newCategory.ParentCategoryID == nil {
		for _, existing := range s.categories {
			if existing.OwnerID == newCategory.OwnerID && existing.IsDefault && existing.IsTopLevel() && existing.Name == newCategory.Name {
				return nil, financeErrors.ErrDuplicateDefault
			}
		}
	}

	category := domain.Category{
		ID:               s.nextID,
		OwnerID:          newCategory.OwnerID,
		Name:             newCategory.Name,
		Icon:             newCategory.Icon,
		Color:            newCategory.Color,
		IsActive:         newCategory.IsActive,
		ParentCategoryID: copyID(newCategory.ParentCategoryID),
		IsDefault:        newCategory.IsDefault,
	}
	s.nextID++
	s.categories[category.ID] = category
	s.owners[category.OwnerID] = struct{}{}

	c := copyCategory(category)
	return &c, nil
}

func (s *memoryState) updateFields(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if fields.IsEmpty() {
		return nil, financeErrors.ErrNothingToUpdate
	}
	category, ok := s.categories[id]
	if !ok || category.OwnerID != ownerID {
		return nil, financeErrors.ErrCategoryNotFound
	}

	if fields.Name != nil {
		category.Name = *fields.Name
	}
	if fields.Icon != nil {
		category.Icon = *fields.Icon
	}
	if fields.Color != nil {
		category.Color = *fields.Color
	}
	if fields.IsActive != nil {
		category.IsActive = *fields.IsActive
	}
	if fields.Parent != nil {
		category.ParentCategoryID = copyID(fields.Parent.ID)
	}
	s.categories[id] = category

	c := copyCategory(category)
	return &c, nil
}

func (s *memoryState) delete(ctx context.Context, id, ownerID int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	category, ok := s.categories[id]
	if !ok || category.OwnerID != ownerID {
		return false, nil
	}
	delete(s.categories, id)
	return true, nil
}

func (s *memoryState) deleteChildren(ctx context.Context, parentID, ownerID int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var removed int64
	for id, category := range s.categories {
		if category.OwnerID == ownerID && category.IsChildOf(parentID) {
			delete(s.categories, id)
			removed++
		}
	}
	return removed, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func copyCategory(category domain.Category) domain.Category {
	category.ParentCategoryID = copyID(category.ParentCategoryID)
	return category
}
