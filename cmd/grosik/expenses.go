package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/pwalczak/grosik/internal/service"
	"github.com/spf13/cobra"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "expenses",
		Short: "Browse recorded expenses",
	}

	cmd.AddCommand(listExpensesCmd())

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var categoryID string
	var since string
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, most recent first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			filter := service.ExpenseFilter{
				CategoryID: categoryID,
				Limit:      limit,
			}
			if since != "" {
				start, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date %q, expected YYYY-MM-DD", since)
				}
				filter.StartDate = &start
			}

			expenses, err := store.GetExpenses(ctx, filter)
			if err != nil {
				return fmt.Errorf("failed to get expenses: %w", err)
			}

			if len(expenses) == 0 {
				fmt.Println("No expenses found.")
				return nil
			}

			names := make(map[string]string)
			categories, err := store.GetCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}
			for _, cat := range categories {
				names[cat.ID] = cat.Name
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer func() { _ = w.Flush() }()

			fmt.Fprintf(w, "Date\tDescription\tAmount\tCategory\n")
			for _, exp := range expenses {
				category := names[exp.CategoryID]
				if category == "" {
					category = "(uncategorized)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					formatDate(exp.Date), exp.Description, formatAmount(exp.Amount), category)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&categoryID, "category", "", "filter by category id")
	cmd.Flags().StringVar(&since, "since", "", "only expenses on or after this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of expenses to show")

	return cmd
}
