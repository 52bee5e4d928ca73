package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/pwalczak/grosik/internal/common"
	"github.com/pwalczak/grosik/internal/model"
	"github.com/pwalczak/grosik/internal/ratelimit"
	"github.com/pwalczak/grosik/internal/service"
)

// Rate-limit keys. Single and batch classification draw from independent
// budgets.
const (
	singleRateLimitKey = "classification"
	batchRateLimitKey  = "batch-classification"
)

// maxDescriptionLength bounds a single expense description.
const maxDescriptionLength = 500

// Classifier issues classification calls against the LLM endpoint: it
// validates input, throttles against the local quota, resolves the access
// credential, dispatches with bounded retry and parses the typed response.
type Classifier struct {
	client    Client
	tokens    service.TokenProvider
	limiter   *ratelimit.Limiter
	cache     *resultCache
	logger    *slog.Logger
	retryOpts service.RetryOptions
}

// Config holds configuration for the classifier.
type Config struct {
	Endpoint        string
	RequestTimeout  time.Duration
	RetryDelay      time.Duration
	CacheTTL        time.Duration
	RateLimitWindow time.Duration
	MaxRetries      int
	RateLimit       int
}

// NewClassifier creates a classifier backed by the HTTP classification
// endpoint.
func NewClassifier(cfg Config, tokens service.TokenProvider, logger *slog.Logger) (*Classifier, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token provider is required")
	}

	client, err := newHTTPClient(cfg.Endpoint, cfg.RequestTimeout)
	if err != nil {
		return nil, fmt.Errorf("failed to create classification client: %w", err)
	}

	return newClassifier(client, cfg, tokens, logger), nil
}

// newClassifier wires a classifier around an arbitrary Client. Split out so
// tests can substitute the transport.
func newClassifier(client Client, cfg Config, tokens service.TokenProvider, logger *slog.Logger) *Classifier {
	retryOpts := service.RetryOptions{
		MaxAttempts:  cfg.MaxRetries + 1,
		InitialDelay: cfg.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}
	if cfg.MaxRetries <= 0 {
		retryOpts.MaxAttempts = 4
	}
	if retryOpts.InitialDelay <= 0 {
		retryOpts.InitialDelay = 2 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		client:    client,
		tokens:    tokens,
		limiter:   ratelimit.New(cfg.RateLimit, cfg.RateLimitWindow),
		cache:     newResultCache(cfg.CacheTTL),
		logger:    logger,
		retryOpts: retryOpts,
	}
}

// Limiter exposes the classifier's rate limiter for administrative resets
// and quota display.
func (c *Classifier) Limiter() *ratelimit.Limiter {
	return c.limiter
}

// ClassifySingle classifies one expense description against the caller's
// known categories.
func (c *Classifier) ClassifySingle(ctx context.Context, description string, categories []model.CategoryRef) (model.ClassificationResult, error) {
	if err := validateDescription(description); err != nil {
		return model.ClassificationResult{}, err
	}

	cacheKey := descriptionHash(description)
	if result, found := c.cache.get(cacheKey); found {
		c.logger.Debug("cache hit for description", "description", description)
		return result, nil
	}

	if err := c.admit(singleRateLimitKey); err != nil {
		return model.ClassificationResult{}, err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	req := Request{
		Type:   RequestTypeSingle,
		Prompt: buildSinglePrompt(description, categories),
		Schema: singleResultSchema(),
	}

	content, err := c.complete(ctx, req, token)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	result, err := parseSingleResult(content)
	if err != nil {
		return model.ClassificationResult{}, err
	}

	results := []model.ClassificationResult{result}
	if err := enrichWithKnownCategories(results, categories); err != nil {
		return model.ClassificationResult{}, err
	}
	result = results[0]

	if valid, problems := ValidateResult(result); !valid {
		c.logger.Warn("classification result failed validation",
			"description", description,
			"problems", problems)
	}

	c.cache.set(cacheKey, result)

	c.logger.Info("expense classified",
		"description", description,
		"category", result.CategoryName,
		"confidence", result.Confidence,
		"is_new", result.IsNewCategory)

	return result, nil
}

// ClassifyBatch classifies a batch of expenses in one call. Results come
// back in input order.
func (c *Classifier) ClassifyBatch(ctx context.Context, items []model.ExpenseInput, categories []model.CategoryRef) ([]model.ClassificationResult, error) {
	if len(items) == 0 {
		return nil, newError(KindValidation, fmt.Errorf("batch must contain at least one item"))
	}
	for i, item := range items {
		if err := validateDescription(item.Description); err != nil {
			return nil, newError(KindValidation, fmt.Errorf("item %d: %w", i, errors.Unwrap(err)))
		}
	}

	if err := c.admit(batchRateLimitKey); err != nil {
		return nil, err
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	req := Request{
		Type:   RequestTypeBatch,
		Prompt: buildBatchPrompt(items, categories),
		Schema: batchResultSchema(),
	}

	content, err := c.complete(ctx, req, token)
	if err != nil {
		return nil, err
	}

	results, err := parseBatchResults(content, len(items), c.logger)
	if err != nil {
		return nil, err
	}

	if err := enrichWithKnownCategories(results, categories); err != nil {
		return nil, err
	}

	c.logger.Info("expense batch classified",
		"items", len(items),
		"results", len(results))

	return results, nil
}

// admit checks and consumes a rate-limit slot for key. The slot is consumed
// before the network call: the cost being limited is the call attempt, not
// its completion.
func (c *Classifier) admit(key string) error {
	if !c.limiter.CanAdmit(key) {
		wait := c.limiter.TimeUntilNextSlot(key)
		return &Error{
			Kind:       KindRateLimit,
			Err:        fmt.Errorf("classification quota exhausted for %q, retry in %s", key, wait.Round(time.Second)),
			RetryAfter: wait,
		}
	}
	c.limiter.Record(key)
	return nil
}

// accessToken resolves the credential from the auth collaborator.
func (c *Classifier) accessToken(ctx context.Context) (string, error) {
	token, err := c.tokens.GetAccessToken(ctx)
	if err != nil {
		return "", newError(KindAuth, fmt.Errorf("failed to resolve access token: %w", err))
	}
	if token == "" {
		return "", newError(KindAuth, fmt.Errorf("no access token available"))
	}
	return token, nil
}

// complete dispatches the request with bounded retry. Only quota and
// server-side failures are retried; everything else propagates immediately
// with its kind intact.
func (c *Classifier) complete(ctx context.Context, req Request, token string) (string, error) {
	var content string
	var lastErr *Error

	err := common.WithRetry(ctx, func() error {
		raw, err := c.client.Complete(ctx, req, token)
		if err != nil {
			var clsErr *Error
			if errors.As(err, &clsErr) {
				lastErr = clsErr
				return &common.RetryableError{Err: err, Retryable: clsErr.retryable}
			}
			lastErr = newError(KindUnknown, err)
			return &common.RetryableError{Err: err, Retryable: false}
		}
		content = raw
		return nil
	}, c.retryOpts)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return "", newError(KindTimeout, ctxErr)
			}
			return "", ctxErr
		}
		if lastErr != nil {
			return "", lastErr
		}
		return "", newError(KindUnknown, err)
	}

	return content, nil
}

// Close releases the classifier's background resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	return nil
}

func validateDescription(description string) error {
	if description == "" {
		return newError(KindValidation, fmt.Errorf("description cannot be empty"))
	}
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return newError(KindValidation, fmt.Errorf("description exceeds %d characters", maxDescriptionLength))
	}
	return nil
}

func descriptionHash(description string) string {
	sum := sha256.Sum256([]byte(description))
	return hex.EncodeToString(sum[:])
}
