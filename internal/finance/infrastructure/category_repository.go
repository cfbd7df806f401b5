package infrastructure

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/tTomeRr/Beam/internal/finance/domain"
	financeErrors "github.com/tTomeRr/Beam/internal/finance/errors"
)

const uniqueViolation = "23505"

const categoryColumns = "id, user_id, name, icon, color, is_active, parent_category_id, is_default"

type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type CategoryRepository struct {
	db     *sql.DB
	q      queryer
	lock   bool
	logger *slog.Logger
}

func NewCategoryRepository(db *sql.DB, logger *slog.Logger) *CategoryRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CategoryRepository{db: db, q: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCategory(row rowScanner) (*domain.Category, error) {
	var category domain.Category
	var parentID sql.NullInt64
	if err := row.Scan(
		&category.ID,
		&category.OwnerID,
		&category.Name,
		&category.Icon,
		&category.Color,
		&category.IsActive,
		&parentID,
		&category.IsDefault,
	); err != nil {
		return nil, err
	}
	if parentID.Valid {
		id := parentID.Int64
		category.ParentCategoryID = &id
	}
	return &category, nil
}

func (r *CategoryRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE user_id = $1 ORDER BY id"
	rows, err := r.q.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		category, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, *category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate categories: %w", err)
	}

	r.logger.Debug("retrieved categories", "owner_id", ownerID, "count", len(categories))
	return categories, nil
}

// Get reads a single category. Inside a transaction the row is locked until commit.
func (r *CategoryRepository) Get(ctx context.Context, id, ownerID int64) (*domain.Category, error) {
	query := "SELECT " + categoryColumns + " FROM categories WHERE id = $1 AND user_id = $2"
	if r.lock {
		query += " FOR UPDATE"
	}

	category, err := scanCategory(r.q.QueryRowContext(ctx, query, id, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return category, nil
}

func (r *CategoryRepository) Insert(ctx context.Context, c domain.NewCategory) (*domain.Category, error) {
	query := `INSERT INTO categories (user_id, name, icon, color, is_active, parent_category_id, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + categoryColumns

	var parentID sql.NullInt64
	if c.ParentCategoryID != nil {
		parentID = sql.NullInt64{Int64: *c.ParentCategoryID, Valid: true}
	}

	category, err := scanCategory(r.q.QueryRowContext(ctx, query,
		c.OwnerID, c.Name, c.Icon, c.Color, c.IsActive, parentID, c.IsDefault))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, financeErrors.ErrDuplicateDefault
		}
		return nil, fmt.Errorf("failed to insert category: %w", err)
	}
	return category, nil
}

// UpdateFields writes only the provided columns.
func (r *CategoryRepository) UpdateFields(ctx context.Context, id, ownerID int64, fields domain.CategoryFields) (*domain.Category, error) {
	if fields.IsEmpty() {
		return nil, financeErrors.ErrNothingToUpdate
	}

	var sets []string
	var args []any
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if fields.Name != nil {
		add("name", *fields.Name)
	}
	if fields.Icon != nil {
		add("icon", *fields.Icon)
	}
	if fields.Color != nil {
		add("color", *fields.Color)
	}
	if fields.IsActive != nil {
		add("is_active", *fields.IsActive)
	}
	if fields.Parent != nil {
		var parentID sql.NullInt64
		if fields.Parent.ID != nil {
			parentID = sql.NullInt64{Int64: *fields.Parent.ID, Valid: true}
		}
		add("parent_category_id", parentID)
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	args = append(args, id, ownerID)
	query := fmt.Sprintf("UPDATE categories SET %s WHERE id = $%d AND user_id = $%d RETURNING %s",
		strings.Join(sets, ", "), len(args)-1, len(args), categoryColumns)

	category, err := scanCategory(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, financeErrors.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("failed to update category %d: %w", id, err)
	}
	return category, nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	result, err := r.q.ExecContext(ctx, "DELETE FROM categories WHERE id = $1 AND user_id = $2", id, ownerID)
	if err != nil {
		return false, fmt.Errorf("failed to delete category %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *CategoryRepository) DeleteChildren(ctx context.Context, parentID, ownerID int64) (int64, error) {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM categories WHERE parent_category_id = $1 AND user_id = $2", parentID, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete subcategories of %d: %w", parentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

func (r *CategoryRepository) WithinTransaction(ctx context.Context, fn func(store domain.CategoryStore) error) (err error) {
	if r.lock {
		// already inside a transaction
		return fn(r)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			r.safeRollback(tx)
			panic(p)
		} else if err != nil {
			r.safeRollback(tx)
		} else if commitErr := tx.Commit(); commitErr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", commitErr)
		}
	}()

	txRepo := &CategoryRepository{db: r.db, q: tx, lock: true, logger: r.logger}
	return fn(txRepo)
}

func (r *CategoryRepository) safeRollback(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		r.logger.Error("error during transaction rollback", "error", err)
	}
}

func (r *CategoryRepository) ListOwnerIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.QueryContext(ctx, "SELECT id FROM users ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *CategoryRepository) CountDefaults(ctx context.Context, ownerID int64) (int, error) {
	var count int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE user_id = $1 AND is_default = true", ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count default categories: %w", err)
	}
	return count, nil
}
