package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pwalczak/grosik/internal/common"
	"github.com/pwalczak/grosik/internal/model"
	"github.com/pwalczak/grosik/internal/service"
)

// Classifier is the classification client contract the engine depends on.
type Classifier interface {
	ClassifySingle(ctx context.Context, description string, categories []model.CategoryRef) (model.ClassificationResult, error)
	ClassifyBatch(ctx context.Context, items []model.ExpenseInput, categories []model.CategoryRef) ([]model.ClassificationResult, error)
}

// Engine glues classification, reconciliation and expense persistence.
type Engine struct {
	storage    service.Storage
	classifier Classifier
	reconciler *Reconciler
	logger     *slog.Logger
}

// BatchSummary describes the outcome of one batch classification run.
type BatchSummary struct {
	ProcessingTime    time.Duration
	TotalExpenses     int
	ExistingMatches   int
	NewCategories     int
	AverageConfidence float64
}

// New creates a classification engine.
func New(storage service.Storage, classifier Classifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		storage:    storage,
		classifier: classifier,
		reconciler: NewReconciler(storage, logger),
		logger:     logger,
	}
}

// ClassifyExpense classifies a single description and returns the result
// without persisting anything.
func (e *Engine) ClassifyExpense(ctx context.Context, description string) (model.ClassificationResult, error) {
	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return model.ClassificationResult{}, fmt.Errorf("failed to get categories: %w", err)
	}

	return e.classifier.ClassifySingle(ctx, description, model.Refs(categories))
}

// ClassifyExpensesBatch classifies a batch of expenses, reconciles the
// proposed categories into concrete ids and persists the expenses with
// their assigned categories. Expense i always receives the category
// resolved from classification i.
func (e *Engine) ClassifyExpensesBatch(ctx context.Context, items []model.ExpenseInput) (*BatchSummary, error) {
	if len(items) == 0 {
		return nil, common.ErrNoExpenses
	}

	startTime := time.Now()

	categories, err := e.storage.GetCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}

	results, err := e.classifier.ClassifyBatch(ctx, items, model.Refs(categories))
	if err != nil {
		return nil, fmt.Errorf("batch classification failed: %w", err)
	}

	// Positional correlation requires one result per item. Shorter result
	// sets are usable per item but cannot be persisted as a full batch.
	if len(results) != len(items) {
		return nil, fmt.Errorf("classifier returned %d results for %d items", len(results), len(items))
	}

	categoryIDs, err := e.reconciler.ReconcileAndAssign(ctx, items, results, categories)
	if err != nil {
		return nil, fmt.Errorf("reconciliation failed: %w", err)
	}

	summary := &BatchSummary{TotalExpenses: len(items)}

	expenses := make([]model.Expense, len(items))
	now := time.Now()
	var confidenceSum float64
	for i, item := range items {
		date := now
		if item.Date != "" {
			if parsed, parseErr := time.Parse("2006-01-02", item.Date); parseErr == nil {
				date = parsed
			} else {
				e.logger.Warn("unparseable expense date, using current time",
					"date", item.Date,
					"description", item.Description)
			}
		}
		expenses[i] = model.Expense{
			ID:          uuid.NewString(),
			Description: item.Description,
			Amount:      item.Amount,
			Date:        date,
			CategoryID:  categoryIDs[i],
			CreatedAt:   now,
		}

		confidenceSum += results[i].Confidence
		if results[i].IsNewCategory {
			summary.NewCategories++
		} else {
			summary.ExistingMatches++
		}
	}

	if err := e.storage.SaveExpenses(ctx, expenses); err != nil {
		return nil, fmt.Errorf("failed to save expenses: %w", err)
	}

	// Use counts are bookkeeping; a failure here does not fail the batch.
	perCategory := make(map[string]int)
	for _, id := range categoryIDs {
		perCategory[id]++
	}
	for id, count := range perCategory {
		if err := e.storage.IncrementCategoryUseCount(ctx, id, count); err != nil {
			e.logger.Warn("failed to update category use count",
				"category_id", id,
				"error", err)
		}
	}

	summary.AverageConfidence = confidenceSum / float64(len(items))
	summary.ProcessingTime = time.Since(startTime)

	e.logger.Info("expense batch processed",
		"expenses", summary.TotalExpenses,
		"existing_matches", summary.ExistingMatches,
		"new_categories", summary.NewCategories,
		"duration", summary.ProcessingTime)

	return summary, nil
}

// ReconcileAndAssign exposes reconciliation for callers that classified a
// batch themselves.
func (e *Engine) ReconcileAndAssign(ctx context.Context, expenses []model.ExpenseInput, classifications []model.ClassificationResult, existing []model.Category) ([]string, error) {
	return e.reconciler.ReconcileAndAssign(ctx, expenses, classifications, existing)
}
