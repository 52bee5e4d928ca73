package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// httpClient implements the Client interface against the HTTP
// classification endpoint.
type httpClient struct {
	client   *http.Client
	endpoint string
}

// newHTTPClient creates a client for the given endpoint with an overall
// request timeout.
func newHTTPClient(endpoint string, timeout time.Duration) (*httpClient, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("classification endpoint is required")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &httpClient{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// providerResponse is the provider-shaped completion envelope. The first
// choice's content is a JSON string conforming to the requested schema.
type providerResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
		Index        int    `json:"index"`
	} `json:"choices"`
}

// Complete sends the request and returns the first choice's raw content.
func (c *httpClient) Complete(ctx context.Context, req Request, token string) (string, error) {
	jsonBody, err := json.Marshal(req)
	if err != nil {
		return "", newError(KindUnknown, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(string(jsonBody)))
	if err != nil {
		return "", newError(KindUnknown, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(KindNetwork, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return "", statusError(resp.StatusCode, body)
	}

	var response providerResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", newError(KindParse, fmt.Errorf("failed to parse response envelope: %w", err))
	}

	if len(response.Choices) == 0 {
		return "", newError(KindParse, fmt.Errorf("no completion choices returned"))
	}

	return response.Choices[0].Message.Content, nil
}

// statusError maps a non-200 status to a typed error. Only quota responses
// and server-side failures are retryable.
func statusError(status int, body []byte) *Error {
	cause := fmt.Errorf("classification endpoint error (status %d): %s", status, string(body))

	switch {
	case status == http.StatusTooManyRequests:
		return newRetryableError(KindServer, cause)
	case status >= http.StatusInternalServerError:
		return newRetryableError(KindServer, cause)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newError(KindAuth, cause)
	default:
		return newError(KindUnknown, cause)
	}
}

// transportError maps connectivity and deadline failures. Neither is
// retried; the caller surfaces them immediately.
func transportError(err error) *Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return newError(KindTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return newError(KindTimeout, err)
	}

	return newError(KindNetwork, fmt.Errorf("request failed: %w", err))
}
