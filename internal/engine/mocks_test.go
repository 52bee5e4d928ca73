package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/pwalczak/grosik/internal/model"
	"github.com/pwalczak/grosik/internal/service"
)

// fakeStore is an in-memory service.Storage with call accounting and
// per-method failure hooks.
type fakeStore struct {
	categories []model.Category
	expenses   []model.Expense
	useCounts  map[string]int

	findByNamesCalls [][]string
	createManyCalls  [][]string
	savedBatches     [][]model.Expense

	nextID int

	getCategoriesErr error
	findByNamesErr   error
	createManyErr    error
	saveExpensesErr  error
	incrementErr     error
}

func newFakeStore(categories ...model.Category) *fakeStore {
	return &fakeStore{
		categories: categories,
		useCounts:  make(map[string]int),
	}
}

func (s *fakeStore) GetCategories(_ context.Context) ([]model.Category, error) {
	if s.getCategoriesErr != nil {
		return nil, s.getCategoriesErr
	}
	return s.categories, nil
}

func (s *fakeStore) GetCategoryByID(_ context.Context, id string) (*model.Category, error) {
	for i := range s.categories {
		if s.categories[i].ID == id {
			return &s.categories[i], nil
		}
	}
	return nil, fmt.Errorf("category %s not found", id)
}

func (s *fakeStore) FindByNames(_ context.Context, names []string) ([]model.Category, error) {
	s.findByNamesCalls = append(s.findByNamesCalls, names)
	if s.findByNamesErr != nil {
		return nil, s.findByNamesErr
	}

	var found []model.Category
	for _, name := range names {
		for _, cat := range s.categories {
			if strings.EqualFold(cat.Name, name) {
				found = append(found, cat)
			}
		}
	}
	return found, nil
}

func (s *fakeStore) CreateMany(_ context.Context, names []string) ([]model.Category, error) {
	s.createManyCalls = append(s.createManyCalls, names)
	if s.createManyErr != nil {
		return nil, s.createManyErr
	}

	created := make([]model.Category, 0, len(names))
	for _, name := range names {
		s.nextID++
		cat := model.Category{
			ID:       fmt.Sprintf("new-%d", s.nextID),
			Name:     name,
			IsActive: true,
		}
		s.categories = append(s.categories, cat)
		created = append(created, cat)
	}
	return created, nil
}

func (s *fakeStore) CreateCategory(ctx context.Context, name string) (*model.Category, error) {
	created, err := s.CreateMany(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (s *fakeStore) DeleteCategory(_ context.Context, id string) error {
	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i].IsActive = false
			return nil
		}
	}
	return fmt.Errorf("category %s not found", id)
}

func (s *fakeStore) IncrementCategoryUseCount(_ context.Context, id string, delta int) error {
	if s.incrementErr != nil {
		return s.incrementErr
	}
	s.useCounts[id] += delta
	return nil
}

func (s *fakeStore) SaveExpenses(_ context.Context, expenses []model.Expense) error {
	if s.saveExpensesErr != nil {
		return s.saveExpensesErr
	}
	s.savedBatches = append(s.savedBatches, expenses)
	s.expenses = append(s.expenses, expenses...)
	return nil
}

func (s *fakeStore) GetExpenses(_ context.Context, _ service.ExpenseFilter) ([]model.Expense, error) {
	return s.expenses, nil
}

func (s *fakeStore) UpdateExpenseCategory(_ context.Context, expenseID, categoryID string) error {
	for i := range s.expenses {
		if s.expenses[i].ID == expenseID {
			s.expenses[i].CategoryID = categoryID
			return nil
		}
	}
	return fmt.Errorf("expense %s not found", expenseID)
}

func (s *fakeStore) Migrate(_ context.Context) error { return nil }

func (s *fakeStore) Close() error { return nil }

// fakeClassifier scripts classifier responses for engine tests.
type fakeClassifier struct {
	singleResult model.ClassificationResult
	batchResults []model.ClassificationResult
	err          error

	singleCalls int
	batchCalls  int
	seenRefs    []model.CategoryRef
}

func (f *fakeClassifier) ClassifySingle(_ context.Context, _ string, categories []model.CategoryRef) (model.ClassificationResult, error) {
	f.singleCalls++
	f.seenRefs = categories
	if f.err != nil {
		return model.ClassificationResult{}, f.err
	}
	return f.singleResult, nil
}

func (f *fakeClassifier) ClassifyBatch(_ context.Context, _ []model.ExpenseInput, categories []model.CategoryRef) ([]model.ClassificationResult, error) {
	f.batchCalls++
	f.seenRefs = categories
	if f.err != nil {
		return nil, f.err
	}
	return f.batchResults, nil
}
