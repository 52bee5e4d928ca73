package model

import "time"

// Category represents a spending category owned by the user.
type Category struct {
	CreatedAt time.Time
	ID        string
	Name      string
	UseCount  int
	IsActive  bool
}

// CategoryRef is the lightweight identity used to ground classification
// prompts and to validate category ids returned by the provider.
type CategoryRef struct {
	ID   string
	Name string
}

// Refs converts a category list into the reference form used by the classifier.
func Refs(categories []Category) []CategoryRef {
	refs := make([]CategoryRef, len(categories))
	for i, cat := range categories {
		refs[i] = CategoryRef{ID: cat.ID, Name: cat.Name}
	}
	return refs
}
