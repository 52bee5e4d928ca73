package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pwalczak/grosik/internal/common"
	"github.com/pwalczak/grosik/internal/model"
)

// GetCategories returns all active categories.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, name, use_count, is_active, created_at
		FROM categories
		WHERE is_active = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.UseCount, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

// GetCategoryByID returns a category by its id, active or not.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, fmt.Errorf("category id cannot be empty")
	}

	query := `
		SELECT id, name, use_count, is_active, created_at
		FROM categories
		WHERE id = ?`

	var cat model.Category
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&cat.ID, &cat.Name, &cat.UseCount, &cat.IsActive, &cat.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}

	return &cat, nil
}

// FindByNames returns active categories whose names match any of the given
// names. Matching is case-insensitive; the name column is COLLATE NOCASE.
func (s *SQLiteStorage) FindByNames(ctx context.Context, names []string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(names))
	placeholders = placeholders[:len(placeholders)-1]

	query := fmt.Sprintf(`
		SELECT id, name, use_count, is_active, created_at
		FROM categories
		WHERE is_active = 1 AND name IN (%s)`, placeholders)

	args := make([]any, len(names))
	for i, name := range names {
		args[i] = name
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query categories by name: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		if err := rows.Scan(&cat.ID, &cat.Name, &cat.UseCount, &cat.IsActive, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		categories = append(categories, cat)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}

	return categories, nil
}

// CreateCategory creates a new category, reactivating a soft-deleted one
// with the same name if present.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("category name cannot be empty")
	}

	cat, err := createCategoryTx(ctx, s.db, name)
	if err != nil {
		return nil, err
	}

	slog.Info("created category", "name", cat.Name, "id", cat.ID)
	return cat, nil
}

// CreateMany creates all given category names in a single transaction.
// Either every category is created (or reactivated) or none are.
func (s *SQLiteStorage) CreateMany(ctx context.Context, names []string) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	categories := make([]model.Category, 0, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("category name cannot be empty")
		}
		cat, err := createCategoryTx(ctx, tx, name)
		if err != nil {
			return nil, err
		}
		categories = append(categories, *cat)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit category batch: %w", err)
	}

	slog.Info("created category batch", "count", len(categories))
	return categories, nil
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func createCategoryTx(ctx context.Context, db execer, name string) (*model.Category, error) {
	// Check for an existing row first, including soft-deleted ones.
	existingQuery := `
		SELECT id, name, use_count, is_active, created_at
		FROM categories
		WHERE name = ?`

	var existing model.Category
	err := db.QueryRowContext(ctx, existingQuery, name).Scan(
		&existing.ID, &existing.Name, &existing.UseCount, &existing.IsActive, &existing.CreatedAt,
	)

	if err == nil {
		if !existing.IsActive {
			updateQuery := `UPDATE categories SET is_active = 1 WHERE id = ?`
			if _, err := db.ExecContext(ctx, updateQuery, existing.ID); err != nil {
				return nil, fmt.Errorf("failed to reactivate category: %w", err)
			}
			existing.IsActive = true
			slog.Info("reactivated existing category", "name", name)
		}
		return &existing, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check existing category: %w", err)
	}

	insertQuery := `
		INSERT INTO categories (id, name, use_count, is_active, created_at)
		VALUES (?, ?, 0, 1, ?)`

	now := time.Now()
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx, insertQuery, id, name, now); err != nil {
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	return &model.Category{
		ID:        id,
		Name:      name,
		UseCount:  0,
		IsActive:  true,
		CreatedAt: now,
	}, nil
}

// DeleteCategory soft-deletes a category. Expenses keep their category id;
// the category simply stops appearing in active listings.
func (s *SQLiteStorage) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("category id cannot be empty")
	}

	result, err := s.db.ExecContext(ctx, `UPDATE categories SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	slog.Info("deleted category", "id", id)
	return nil
}

// IncrementCategoryUseCount adds delta to a category's use count.
func (s *SQLiteStorage) IncrementCategoryUseCount(ctx context.Context, id string, delta int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("category id cannot be empty")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE categories SET use_count = use_count + ? WHERE id = ?`, delta, id)
	if err != nil {
		return fmt.Errorf("failed to update use count: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return common.ErrNotFound
	}

	return nil
}
