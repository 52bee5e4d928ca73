package llm

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pwalczak/grosik/internal/model"
)

// resultPayload mirrors the contracted result schema. Pointer fields let
// the parser tell "absent" apart from a zero value.
type resultPayload struct {
	CategoryID      *string  `json:"categoryId"`
	CategoryName    *string  `json:"categoryName"`
	Confidence      *float64 `json:"confidence"`
	IsNewCategory   *bool    `json:"isNewCategory"`
	NewCategoryName string   `json:"newCategoryName"`
	Reasoning       string   `json:"reasoning"`
}

// cleanMarkdownWrapper strips code fences some providers wrap around JSON
// content despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```json")
		content = strings.TrimPrefix(content, "```")
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// toResult converts a decoded payload into the model type, enforcing the
// structural invariants of the contract.
func (p *resultPayload) toResult() (model.ClassificationResult, error) {
	if p.CategoryName == nil {
		return model.ClassificationResult{}, fmt.Errorf("categoryName missing from result")
	}
	if p.Confidence == nil {
		return model.ClassificationResult{}, fmt.Errorf("confidence missing from result")
	}

	result := model.ClassificationResult{
		CategoryName:    *p.CategoryName,
		NewCategoryName: p.NewCategoryName,
		Reasoning:       p.Reasoning,
		Confidence:      *p.Confidence,
	}
	if p.CategoryID != nil {
		result.CategoryID = *p.CategoryID
	}
	if p.IsNewCategory != nil {
		result.IsNewCategory = *p.IsNewCategory
	}
	return result, nil
}

// parseSingleResult decodes the content of a single classification response.
func parseSingleResult(content string) (model.ClassificationResult, error) {
	content = cleanMarkdownWrapper(content)

	var payload resultPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return model.ClassificationResult{}, newError(KindParse, fmt.Errorf("failed to parse classification result: %w", err))
	}

	result, err := payload.toResult()
	if err != nil {
		return model.ClassificationResult{}, newError(KindParse, err)
	}
	return result, nil
}

// parseBatchResults decodes the content of a batch classification response.
// A count mismatch does not fail the batch; partial results are still usable
// per item by position, so it only logs a diagnostic.
func parseBatchResults(content string, expected int, logger *slog.Logger) ([]model.ClassificationResult, error) {
	content = cleanMarkdownWrapper(content)

	var payload struct {
		Results []resultPayload `json:"results"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, newError(KindParse, fmt.Errorf("failed to parse batch results: %w", err))
	}
	if payload.Results == nil {
		return nil, newError(KindParse, fmt.Errorf("results array missing from batch response"))
	}

	if len(payload.Results) != expected {
		logger.Warn("batch result count mismatch",
			"expected", expected,
			"received", len(payload.Results))
	}

	results := make([]model.ClassificationResult, 0, len(payload.Results))
	for i, p := range payload.Results {
		result, err := p.toResult()
		if err != nil {
			return nil, newError(KindParse, fmt.Errorf("result %d: %w", i, err))
		}
		results = append(results, result)
	}
	return results, nil
}

// enrichWithKnownCategories overwrites the provider's echoed category name
// with the caller's trusted name for any result that references an existing
// category. Only the id is authoritative; a non-new result pointing at an
// unknown id violates the contract.
func enrichWithKnownCategories(results []model.ClassificationResult, categories []model.CategoryRef) error {
	nameByID := make(map[string]string, len(categories))
	for _, cat := range categories {
		nameByID[cat.ID] = cat.Name
	}

	for i := range results {
		if results[i].CategoryID == "" {
			continue
		}
		name, known := nameByID[results[i].CategoryID]
		if !known {
			if results[i].IsNewCategory {
				// Contract violation, but recoverable: treat as new.
				results[i].CategoryID = ""
				continue
			}
			return newError(KindParse, fmt.Errorf("result %d references unknown category id %q", i, results[i].CategoryID))
		}
		results[i].CategoryName = name
	}
	return nil
}

// ValidateResult checks a classification result's semantic invariants
// independently of parsing. It returns whether the result is valid and the
// list of violations found.
func ValidateResult(result model.ClassificationResult) (bool, []string) {
	var problems []string

	if result.CategoryName == "" && result.NewCategoryName == "" {
		problems = append(problems, "category name is empty")
	}
	if result.Confidence < 0 || result.Confidence > 1 {
		problems = append(problems, fmt.Sprintf("confidence %.2f outside [0,1]", result.Confidence))
	}
	if !result.IsNewCategory && result.CategoryID == "" {
		problems = append(problems, "existing-category result has no categoryId")
	}
	if result.IsNewCategory && result.NewCategoryName == "" {
		problems = append(problems, "new-category result has no newCategoryName")
	}

	return len(problems) == 0, problems
}
