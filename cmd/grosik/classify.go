package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pwalczak/grosik/internal/engine"
	"github.com/pwalczak/grosik/internal/llm"
	"github.com/pwalczak/grosik/internal/model"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

func classifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify <description>",
		Short: "Classify an expense description",
		Long: `Ask the classifier which spending category an expense belongs to.
The result is not saved; use 'grosik classify batch' to classify and record
expenses from a file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			classifier, err := newClassifier()
			if err != nil {
				return err
			}
			defer func() { _ = classifier.Close() }()

			eng := engine.New(store, classifier, nil)

			result, err := eng.ClassifyExpense(ctx, args[0])
			if err != nil {
				return classificationError(err)
			}

			if result.IsNewCategory {
				fmt.Printf("Proposed new category: %s (confidence %.2f)\n", result.NewCategoryName, result.Confidence)
			} else {
				fmt.Printf("Category: %s (confidence %.2f)\n", result.CategoryName, result.Confidence)
			}
			if result.Reasoning != "" {
				fmt.Printf("Reasoning: %s\n", result.Reasoning)
			}
			return nil
		},
	}

	cmd.AddCommand(classifyBatchCmd())
	return cmd
}

func classifyBatchCmd() *cobra.Command {
	var filePath string
	var chunkSize int

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Classify and record expenses from a CSV file",
		Long: `Read expenses from a CSV file (description,amount[,date]), classify them
in batches, create any missing categories and record the expenses.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			items, err := readExpensesCSV(filePath)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Println("No expenses found in file.")
				return nil
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			classifier, err := newClassifier()
			if err != nil {
				return err
			}
			defer func() { _ = classifier.Close() }()

			eng := engine.New(store, classifier, nil)

			bar := progressbar.NewOptions(len(items),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionSetWidth(40),
				progressbar.OptionSetDescription("Classifying expenses..."),
			)

			var totals engine.BatchSummary
			for start := 0; start < len(items); start += chunkSize {
				end := start + chunkSize
				if end > len(items) {
					end = len(items)
				}

				summary, err := eng.ClassifyExpensesBatch(ctx, items[start:end])
				if err != nil {
					fmt.Fprintln(os.Stderr)
					return classificationError(err)
				}

				totals.TotalExpenses += summary.TotalExpenses
				totals.ExistingMatches += summary.ExistingMatches
				totals.NewCategories += summary.NewCategories
				_ = bar.Add(end - start)
			}
			fmt.Fprintln(os.Stderr)

			fmt.Printf("Recorded %d expenses (%d matched existing categories, %d proposed new ones).\n",
				totals.TotalExpenses, totals.ExistingMatches, totals.NewCategories)
			return nil
		},
	}

	cmd.Flags().StringVarP(&filePath, "file", "f", "", "CSV file with expenses (required)")
	cmd.Flags().IntVar(&chunkSize, "batch-size", 20, "expenses per classification call")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

// readExpensesCSV parses description,amount[,date] rows. A header row is
// skipped when the amount column does not parse.
func readExpensesCSV(path string) ([]model.ExpenseInput, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	var items []model.ExpenseInput
	line := 0
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		line++

		if len(record) < 2 {
			return nil, fmt.Errorf("%s line %d: expected description,amount[,date]", path, line)
		}

		amount, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			if line == 1 {
				continue // header row
			}
			return nil, fmt.Errorf("%s line %d: invalid amount %q", path, line, record[1])
		}

		item := model.ExpenseInput{
			Description: strings.TrimSpace(record[0]),
			Amount:      amount,
		}
		if len(record) > 2 {
			item.Date = strings.TrimSpace(record[2])
		}
		items = append(items, item)
	}

	return items, nil
}

// classificationError turns a typed classification failure into a
// user-facing message.
func classificationError(err error) error {
	var clsErr *llm.Error
	if !errors.As(err, &clsErr) {
		return err
	}

	switch clsErr.Kind {
	case llm.KindRateLimit:
		return fmt.Errorf("classification quota exhausted, retry in %s", clsErr.RetryAfter.Round(time.Second))
	case llm.KindAuth:
		return fmt.Errorf("no valid classifier credential; check classifier.token in your config")
	case llm.KindValidation:
		return fmt.Errorf("invalid input: %w", clsErr.Err)
	case llm.KindTimeout:
		return fmt.Errorf("classification request timed out")
	case llm.KindNetwork:
		return fmt.Errorf("classification endpoint unreachable: %w", clsErr.Err)
	default:
		return err
	}
}
