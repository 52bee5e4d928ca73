package llm

import (
	"fmt"
	"strings"

	"github.com/pwalczak/grosik/internal/model"
)

// buildCategoryList enumerates the caller's known categories for the prompt.
func buildCategoryList(categories []model.CategoryRef) string {
	var sb strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&sb, "- ID: %s, Name: %s\n", cat.ID, cat.Name)
	}
	if sb.Len() == 0 {
		sb.WriteString("(no categories defined yet)\n")
	}
	return sb.String()
}

const classificationRules = `Classification rules:
1. Evaluate how well the expense fits each of the known categories above.
2. If your confidence in an existing category is 0.7 or higher, return that
   category's id and name.
3. If your confidence is below 0.7, propose a new descriptive category name
   of 1-3 words, in the same language as the existing category names.
4. Never invent an id for a new category - categoryId must be null when
   isNewCategory is true.
5. Always include a short reasoning for your decision.`

// buildSinglePrompt creates the instruction block for one expense description.
func buildSinglePrompt(description string, categories []model.CategoryRef) string {
	return fmt.Sprintf(`Classify this expense into one of the user's spending categories.

Known categories:
%s
%s

Expense description: %s`,
		buildCategoryList(categories),
		classificationRules,
		description)
}

// buildBatchPrompt creates the instruction block for a batch of expenses.
// The output contract is explicit about count, order and cross-batch
// deduplication of proposed category names.
func buildBatchPrompt(items []model.ExpenseInput, categories []model.CategoryRef) string {
	var sb strings.Builder
	for i, item := range items {
		fmt.Fprintf(&sb, "%d. Description: %s, Amount: %.2f", i+1, item.Description, item.Amount)
		if item.Date != "" {
			fmt.Fprintf(&sb, ", Date: %s", item.Date)
		}
		sb.WriteString("\n")
	}

	return fmt.Sprintf(`Classify each of these expenses into one of the user's spending categories.

Known categories:
%s
%s

Batch rules:
- The results array must contain exactly %d entries, one per expense, in the
  same order as the input list.
- When proposing new category names, use one consistent spelling across the
  whole batch: two expenses that belong to the same new category must get
  exactly the same newCategoryName.
- Do not propose a new category whose name duplicates a known category.

Expenses:
%s`,
		buildCategoryList(categories),
		classificationRules,
		len(items),
		sb.String())
}

// resultProperties is the schema for one classification result object.
// The strict shape is what makes response parsing deterministic; the
// provider is contractually required to emit exactly these fields.
func resultProperties() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"categoryId": map[string]any{
				"type": []string{"string", "null"},
			},
			"categoryName": map[string]any{
				"type": "string",
			},
			"confidence": map[string]any{
				"type":    "number",
				"minimum": 0,
				"maximum": 1,
			},
			"isNewCategory": map[string]any{
				"type": "boolean",
			},
			"newCategoryName": map[string]any{
				"type": "string",
			},
			"reasoning": map[string]any{
				"type": "string",
			},
		},
		"required": []string{
			"categoryId", "categoryName", "confidence",
			"isNewCategory", "newCategoryName", "reasoning",
		},
		"additionalProperties": false,
	}
}

// singleResultSchema is the output contract for a single classification.
func singleResultSchema() map[string]any {
	return resultProperties()
}

// batchResultSchema is the output contract for a batch classification.
func batchResultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"results": map[string]any{
				"type":  "array",
				"items": resultProperties(),
			},
		},
		"required":             []string{"results"},
		"additionalProperties": false,
	}
}
