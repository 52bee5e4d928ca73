// Package auth resolves the access credential used to call the
// classification endpoint.
package auth

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"
)

// Provider resolves access tokens from an oauth2.TokenSource. The source
// may not be ready at construction time; GetAccessToken blocks until
// SetSource is called or the context is canceled.
type Provider struct {
	source oauth2.TokenSource
	ready  chan struct{}
	mu     sync.Mutex
	once   sync.Once
}

// NewProvider creates a provider with no token source yet. Callers of
// GetAccessToken wait until SetSource supplies one.
func NewProvider() *Provider {
	return &Provider{
		ready: make(chan struct{}),
	}
}

// NewStaticProvider creates a provider that always serves the given token.
func NewStaticProvider(token string) *Provider {
	p := NewProvider()
	p.SetSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return p
}

// SetSource installs the token source and releases waiting callers.
// Subsequent calls replace the source.
func (p *Provider) SetSource(source oauth2.TokenSource) {
	p.mu.Lock()
	p.source = source
	p.mu.Unlock()

	p.once.Do(func() { close(p.ready) })
}

// GetAccessToken returns the current access token, waiting for the source
// to become available first.
func (p *Provider) GetAccessToken(ctx context.Context) (string, error) {
	select {
	case <-p.ready:
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for token source: %w", ctx.Err())
	}

	p.mu.Lock()
	source := p.source
	p.mu.Unlock()

	token, err := source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain token: %w", err)
	}

	return token.AccessToken, nil
}
