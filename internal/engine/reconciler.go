// Package engine reconciles LLM classification results against the user's
// category set and drives batch expense classification.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pwalczak/grosik/internal/model"
	"github.com/pwalczak/grosik/internal/service"
)

// ReconciliationPlan is the transient outcome of reconciling one batch.
// PerIndexCategoryID has exactly one entry per input item, in input order.
type ReconciliationPlan struct {
	CreatedIDByName    map[string]string
	PerIndexCategoryID []string
	CategoriesToCreate []string
}

// Reconciler maps classifier-proposed categories to concrete category ids,
// creating the missing ones exactly once.
type Reconciler struct {
	store  service.CategoryStore
	logger *slog.Logger
}

// NewReconciler creates a reconciler backed by the given category store.
func NewReconciler(store service.CategoryStore, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{store: store, logger: logger}
}

// ReconcileAndAssign resolves every classification to a category id, in the
// same order as the input expenses. Proposed new-category names are
// deduplicated against each other and, case-insensitively, against the
// caller's existing categories and the store before anything is created.
// If creation fails, nothing is assigned; the caller retries the whole batch.
func (r *Reconciler) ReconcileAndAssign(ctx context.Context, expenses []model.ExpenseInput, classifications []model.ClassificationResult, existing []model.Category) ([]string, error) {
	if len(expenses) != len(classifications) {
		return nil, fmt.Errorf("expense count %d does not match classification count %d", len(expenses), len(classifications))
	}
	if len(expenses) == 0 {
		return []string{}, nil
	}

	plan, err := r.buildPlan(ctx, classifications, existing)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(classifications))
	for i, cls := range classifications {
		if !cls.IsNewCategory {
			ids[i] = cls.CategoryID
			continue
		}
		id, ok := plan.CreatedIDByName[strings.ToLower(cls.NewCategoryName)]
		if !ok {
			return nil, fmt.Errorf("no category resolved for proposed name %q (index %d)", cls.NewCategoryName, i)
		}
		ids[i] = id
	}

	return ids, nil
}

// buildPlan collects the distinct proposed names, resolves the ones that
// already exist and creates the rest in a single batch operation.
func (r *Reconciler) buildPlan(ctx context.Context, classifications []model.ClassificationResult, existing []model.Category) (*ReconciliationPlan, error) {
	plan := &ReconciliationPlan{
		CreatedIDByName: make(map[string]string),
	}

	existingByName := make(map[string]string, len(existing))
	for _, cat := range existing {
		existingByName[strings.ToLower(cat.Name)] = cat.ID
	}

	// Distinct proposed names, first spelling wins, input order preserved.
	var proposed []string
	seen := make(map[string]bool)
	for i, cls := range classifications {
		if !cls.IsNewCategory {
			if cls.CategoryID == "" {
				return nil, fmt.Errorf("classification %d has no category id and does not propose a new category", i)
			}
			continue
		}
		if cls.NewCategoryName == "" {
			return nil, fmt.Errorf("classification %d proposes a new category without a name", i)
		}
		key := strings.ToLower(cls.NewCategoryName)
		if seen[key] {
			continue
		}
		seen[key] = true

		// Already known to the caller, no creation needed.
		if id, ok := existingByName[key]; ok {
			plan.CreatedIDByName[key] = id
			continue
		}
		proposed = append(proposed, cls.NewCategoryName)
	}

	if len(proposed) > 0 {
		// A prior batch or another session may have created these already.
		found, err := r.store.FindByNames(ctx, proposed)
		if err != nil {
			return nil, fmt.Errorf("failed to check existing categories: %w", err)
		}
		foundByName := make(map[string]string, len(found))
		for _, cat := range found {
			foundByName[strings.ToLower(cat.Name)] = cat.ID
		}

		for _, name := range proposed {
			key := strings.ToLower(name)
			if id, ok := foundByName[key]; ok {
				plan.CreatedIDByName[key] = id
				continue
			}
			plan.CategoriesToCreate = append(plan.CategoriesToCreate, name)
		}
	}

	if len(plan.CategoriesToCreate) > 0 {
		created, err := r.store.CreateMany(ctx, plan.CategoriesToCreate)
		if err != nil {
			return nil, fmt.Errorf("failed to create categories: %w", err)
		}
		for _, cat := range created {
			plan.CreatedIDByName[strings.ToLower(cat.Name)] = cat.ID
		}

		r.logger.Info("created categories for batch",
			"count", len(created),
			"names", plan.CategoriesToCreate)
	}

	return plan, nil
}
