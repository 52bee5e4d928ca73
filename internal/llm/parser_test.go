package llm

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalczak/grosik/internal/model"
)

func TestParseSingleResult(t *testing.T) {
	t.Run("parses a valid result", func(t *testing.T) {
		content := `{"categoryId":"c1","categoryName":"Transport","confidence":0.85,"isNewCategory":false,"newCategoryName":"","reasoning":"fuel purchase"}`

		result, err := parseSingleResult(content)
		require.NoError(t, err)

		assert.Equal(t, "c1", result.CategoryID)
		assert.Equal(t, "Transport", result.CategoryName)
		assert.InDelta(t, 0.85, result.Confidence, 0.001)
		assert.False(t, result.IsNewCategory)
		assert.Equal(t, "fuel purchase", result.Reasoning)
	})

	t.Run("parses a new-category result with null id", func(t *testing.T) {
		content := `{"categoryId":null,"categoryName":"","confidence":0.6,"isNewCategory":true,"newCategoryName":"Jedzenie","reasoning":"food"}`

		result, err := parseSingleResult(content)
		require.NoError(t, err)

		assert.Empty(t, result.CategoryID)
		assert.True(t, result.IsNewCategory)
		assert.Equal(t, "Jedzenie", result.NewCategoryName)
	})

	t.Run("strips markdown fences", func(t *testing.T) {
		content := "```json\n{\"categoryId\":\"c1\",\"categoryName\":\"Transport\",\"confidence\":0.9,\"isNewCategory\":false,\"newCategoryName\":\"\",\"reasoning\":\"r\"}\n```"

		result, err := parseSingleResult(content)
		require.NoError(t, err)
		assert.Equal(t, "c1", result.CategoryID)
	})

	t.Run("rejects missing categoryName", func(t *testing.T) {
		content := `{"categoryId":"c1","confidence":0.9,"isNewCategory":false,"newCategoryName":"","reasoning":"r"}`

		_, err := parseSingleResult(content)
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})

	t.Run("rejects missing confidence", func(t *testing.T) {
		content := `{"categoryId":"c1","categoryName":"Transport","isNewCategory":false,"newCategoryName":"","reasoning":"r"}`

		_, err := parseSingleResult(content)
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})

	t.Run("rejects non-JSON content", func(t *testing.T) {
		_, err := parseSingleResult("I think this is Transport")
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})
}

func TestParseBatchResults(t *testing.T) {
	logger := slog.Default()

	t.Run("parses all results in order", func(t *testing.T) {
		content := `{"results":[
			{"categoryId":"c1","categoryName":"Transport","confidence":0.85,"isNewCategory":false,"newCategoryName":"","reasoning":"a"},
			{"categoryId":null,"categoryName":"","confidence":0.6,"isNewCategory":true,"newCategoryName":"Jedzenie","reasoning":"b"}
		]}`

		results, err := parseBatchResults(content, 2, logger)
		require.NoError(t, err)
		require.Len(t, results, 2)

		assert.Equal(t, "c1", results[0].CategoryID)
		assert.True(t, results[1].IsNewCategory)
	})

	t.Run("tolerates a count mismatch", func(t *testing.T) {
		content := `{"results":[
			{"categoryId":"c1","categoryName":"Transport","confidence":0.85,"isNewCategory":false,"newCategoryName":"","reasoning":"a"}
		]}`

		results, err := parseBatchResults(content, 3, logger)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("rejects missing results array", func(t *testing.T) {
		_, err := parseBatchResults(`{"answers":[]}`, 1, logger)
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})

	t.Run("rejects malformed entries", func(t *testing.T) {
		content := `{"results":[{"categoryId":"c1","isNewCategory":false}]}`

		_, err := parseBatchResults(content, 1, logger)
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})
}

func TestEnrichWithKnownCategories(t *testing.T) {
	categories := []model.CategoryRef{
		{ID: "c1", Name: "Transport"},
		{ID: "c2", Name: "Jedzenie"},
	}

	t.Run("overwrites provider name with trusted name", func(t *testing.T) {
		results := []model.ClassificationResult{
			{CategoryID: "c1", CategoryName: "Transportation & Travel", Confidence: 0.9},
		}

		require.NoError(t, enrichWithKnownCategories(results, categories))
		assert.Equal(t, "Transport", results[0].CategoryName)
	})

	t.Run("leaves new-category results alone", func(t *testing.T) {
		results := []model.ClassificationResult{
			{IsNewCategory: true, NewCategoryName: "Elektronika", Confidence: 0.5},
		}

		require.NoError(t, enrichWithKnownCategories(results, categories))
		assert.Equal(t, "Elektronika", results[0].NewCategoryName)
	})

	t.Run("rejects unknown id on existing-category result", func(t *testing.T) {
		results := []model.ClassificationResult{
			{CategoryID: "c99", CategoryName: "Ghost", Confidence: 0.9},
		}

		err := enrichWithKnownCategories(results, categories)
		require.Error(t, err)
		assert.Equal(t, KindParse, KindOf(err))
	})

	t.Run("clears fabricated id on new-category result", func(t *testing.T) {
		results := []model.ClassificationResult{
			{CategoryID: "c99", IsNewCategory: true, NewCategoryName: "Elektronika", Confidence: 0.5},
		}

		require.NoError(t, enrichWithKnownCategories(results, categories))
		assert.Empty(t, results[0].CategoryID)
	})
}

func TestValidateResult(t *testing.T) {
	tests := []struct {
		name      string
		result    model.ClassificationResult
		wantValid bool
	}{
		{
			name:      "valid existing-category result",
			result:    model.ClassificationResult{CategoryID: "c1", CategoryName: "Transport", Confidence: 0.85},
			wantValid: true,
		},
		{
			name:      "valid new-category result",
			result:    model.ClassificationResult{IsNewCategory: true, NewCategoryName: "Elektronika", Confidence: 0.5},
			wantValid: true,
		},
		{
			name:      "confidence above one",
			result:    model.ClassificationResult{CategoryID: "c1", CategoryName: "Transport", Confidence: 1.2},
			wantValid: false,
		},
		{
			name:      "negative confidence",
			result:    model.ClassificationResult{CategoryID: "c1", CategoryName: "Transport", Confidence: -0.1},
			wantValid: false,
		},
		{
			name:      "existing-category result without id",
			result:    model.ClassificationResult{CategoryName: "Transport", Confidence: 0.85},
			wantValid: false,
		},
		{
			name:      "new-category result without a name",
			result:    model.ClassificationResult{IsNewCategory: true, CategoryID: "", Confidence: 0.5},
			wantValid: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			valid, problems := ValidateResult(tt.result)
			assert.Equal(t, tt.wantValid, valid)
			if !tt.wantValid {
				assert.NotEmpty(t, problems)
			}
		})
	}
}
