package model

// ClassificationResult is the provider's answer for one expense description.
// CategoryID is empty when the provider proposes a new category; in that case
// NewCategoryName carries the proposed label and IsNewCategory is true.
type ClassificationResult struct {
	CategoryID      string
	CategoryName    string
	NewCategoryName string
	Reasoning       string
	Confidence      float64
	IsNewCategory   bool
}
