package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pwalczak/grosik/internal/common"
	"github.com/pwalczak/grosik/internal/model"
	"github.com/pwalczak/grosik/internal/service"
)

// SaveExpenses persists a batch of expenses in a single transaction.
func (s *SQLiteStorage) SaveExpenses(ctx context.Context, expenses []model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if len(expenses) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO expenses (id, description, amount, date, category_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, exp := range expenses {
		if exp.ID == "" {
			return fmt.Errorf("expense id cannot be empty")
		}
		if exp.Description == "" {
			return fmt.Errorf("expense description cannot be empty")
		}
		createdAt := exp.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now()
		}

		var categoryID any
		if exp.CategoryID != "" {
			categoryID = exp.CategoryID
		}

		if _, err := stmt.ExecContext(ctx, exp.ID, exp.Description, exp.Amount, exp.Date, categoryID, createdAt); err != nil {
			return fmt.Errorf("failed to insert expense %s: %w", exp.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit expenses: %w", err)
	}

	slog.Debug("saved expenses", "count", len(expenses))
	return nil
}

// GetExpenses returns expenses matching the filter, most recent first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, filter service.ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, description, amount, date, COALESCE(category_id, ''), created_at
		FROM expenses
		WHERE 1=1`
	var args []any

	if filter.StartDate != nil {
		query += " AND date >= ?"
		args = append(args, *filter.StartDate)
	}
	if filter.EndDate != nil {
		query += " AND date <= ?"
		args = append(args, *filter.EndDate)
	}
	if filter.CategoryID != "" {
		query += " AND category_id = ?"
		args = append(args, filter.CategoryID)
	}

	query += " ORDER BY date DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query expenses: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var expenses []model.Expense
	for rows.Next() {
		var exp model.Expense
		if err := rows.Scan(&exp.ID, &exp.Description, &exp.Amount, &exp.Date, &exp.CategoryID, &exp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, exp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating expenses: %w", err)
	}

	return expenses, nil
}

// UpdateExpenseCategory reassigns one expense to another category.
func (s *SQLiteStorage) UpdateExpenseCategory(ctx context.Context, expenseID, categoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if expenseID == "" {
		return fmt.Errorf("expense id cannot be empty")
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE expenses SET category_id = ? WHERE id = ?`, categoryID, expenseID)
	if err != nil {
		return fmt.Errorf("failed to update expense category: %w", err)
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
