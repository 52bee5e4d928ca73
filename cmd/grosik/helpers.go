package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pwalczak/grosik/internal/auth"
	"github.com/pwalczak/grosik/internal/common"
	"github.com/pwalczak/grosik/internal/llm"
	"github.com/pwalczak/grosik/internal/storage"
	"github.com/spf13/viper"
)

// initStorage opens the database and applies pending migrations.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "grosik", "grosik.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// newClassifier builds the classification client from configuration.
func newClassifier() (*llm.Classifier, error) {
	endpoint := viper.GetString("classifier.endpoint")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: classifier.endpoint", common.ErrMissingConfig)
	}

	tokens := auth.NewStaticProvider(viper.GetString("classifier.token"))

	cfg := llm.Config{
		Endpoint:        endpoint,
		RequestTimeout:  viper.GetDuration("classifier.timeout"),
		MaxRetries:      viper.GetInt("classifier.max_retries"),
		RetryDelay:      viper.GetDuration("classifier.retry_delay"),
		CacheTTL:        viper.GetDuration("classifier.cache_ttl"),
		RateLimit:       viper.GetInt("classifier.rate_limit"),
		RateLimitWindow: viper.GetDuration("classifier.rate_limit_window"),
	}

	return llm.NewClassifier(cfg, tokens, nil)
}

// formatAmount renders an amount for display.
func formatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}

// formatDate renders a date for display.
func formatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
