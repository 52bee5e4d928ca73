package main

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwalczak/grosik/internal/llm"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "expenses.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestReadExpensesCSV(t *testing.T) {
	t.Run("parses description, amount and optional date", func(t *testing.T) {
		path := writeCSV(t, "Tankowanie BP 95,150.00,2025-05-09\nPizza Dominium,42.00\n")

		items, err := readExpensesCSV(path)
		require.NoError(t, err)
		require.Len(t, items, 2)

		assert.Equal(t, "Tankowanie BP 95", items[0].Description)
		assert.InDelta(t, 150.00, items[0].Amount, 0.001)
		assert.Equal(t, "2025-05-09", items[0].Date)

		assert.Equal(t, "Pizza Dominium", items[1].Description)
		assert.Empty(t, items[1].Date)
	})

	t.Run("skips a header row", func(t *testing.T) {
		path := writeCSV(t, "description,amount,date\nTankowanie BP 95,150.00,2025-05-09\n")

		items, err := readExpensesCSV(path)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Tankowanie BP 95", items[0].Description)
	})

	t.Run("trims whitespace around fields", func(t *testing.T) {
		path := writeCSV(t, " Pizza Dominium , 42.00 , 2025-05-10 \n")

		items, err := readExpensesCSV(path)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "Pizza Dominium", items[0].Description)
		assert.Equal(t, "2025-05-10", items[0].Date)
	})

	t.Run("rejects a bad amount past the first line", func(t *testing.T) {
		path := writeCSV(t, "Pizza,42.00\nTankowanie,abc\n")

		_, err := readExpensesCSV(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "line 2")
	})

	t.Run("rejects rows with too few columns", func(t *testing.T) {
		path := writeCSV(t, "just-a-description\n")

		_, err := readExpensesCSV(path)
		require.Error(t, err)
	})

	t.Run("empty file yields no items", func(t *testing.T) {
		path := writeCSV(t, "")

		items, err := readExpensesCSV(path)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := readExpensesCSV(filepath.Join(t.TempDir(), "missing.csv"))
		require.Error(t, err)
	})
}

func TestClassificationError(t *testing.T) {
	t.Run("rate limit includes the wait time", func(t *testing.T) {
		err := classificationError(&llm.Error{
			Kind:       llm.KindRateLimit,
			RetryAfter: 42 * time.Second,
			Err:        fmt.Errorf("quota exhausted"),
		})
		assert.Contains(t, err.Error(), "42s")
	})

	t.Run("auth points at the config", func(t *testing.T) {
		err := classificationError(&llm.Error{Kind: llm.KindAuth, Err: fmt.Errorf("no token")})
		assert.Contains(t, err.Error(), "classifier.token")
	})

	t.Run("unrelated errors pass through", func(t *testing.T) {
		orig := fmt.Errorf("db locked")
		assert.Equal(t, orig, classificationError(orig))
	})
}
