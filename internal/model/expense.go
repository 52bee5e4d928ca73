package model

import "time"

// Expense represents a single tracked expense.
type Expense struct {
	Date        time.Time
	CreatedAt   time.Time
	ID          string
	Description string
	CategoryID  string
	Amount      float64
}

// ExpenseInput is one item of a batch classification request.
// Date is optional and passed through to the prompt when present.
type ExpenseInput struct {
	Description string
	Date        string
	Amount      float64
}
