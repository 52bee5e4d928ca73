// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/pwalczak/grosik/internal/model"
)

// ExpenseFilter defines filtering options for expense queries.
type ExpenseFilter struct {
	StartDate  *time.Time
	EndDate    *time.Time
	CategoryID string
	Limit      int
	Offset     int
}

// CategoryStore defines the contract for category persistence. The
// reconciliation engine only ever sees active categories through it.
type CategoryStore interface {
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	// FindByNames returns active categories whose names match any of the
	// given names, compared case-insensitively.
	FindByNames(ctx context.Context, names []string) ([]model.Category, error)
	// CreateMany creates all given category names in a single transaction.
	// Either every category is created or none are.
	CreateMany(ctx context.Context, names []string) ([]model.Category, error)
	CreateCategory(ctx context.Context, name string) (*model.Category, error)
	DeleteCategory(ctx context.Context, id string) error
	IncrementCategoryUseCount(ctx context.Context, id string, delta int) error
}

// ExpenseStore defines the contract for expense persistence.
type ExpenseStore interface {
	SaveExpenses(ctx context.Context, expenses []model.Expense) error
	GetExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
	UpdateExpenseCategory(ctx context.Context, expenseID, categoryID string) error
}

// Storage is the full persistence contract.
type Storage interface {
	CategoryStore
	ExpenseStore
	Migrate(ctx context.Context) error
	Close() error
}

// TokenProvider resolves the access credential used to call the
// classification endpoint. Implementations may block until an underlying
// token source finishes initializing; they must honor ctx cancellation.
type TokenProvider interface {
	GetAccessToken(ctx context.Context) (string, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
