package secrets

import (
	"context"
	"fmt"
	"sync"
	"time"

	appLog "gigfeed/internal/log"
)

// tokenTTL is how long a fetched token is reused before the secret store
// is consulted again.
const tokenTTL = time.Hour

// TokenCache memoizes a single secret-store parameter with a TTL so that
// repeated pipeline runs do not hit the store on every invocation.
//
// The check-then-refresh sequence runs under a mutex, so overlapping
// pipeline runs (cron refresh racing a manual request) trigger at most one
// refresh. On a failed refresh the cache is left unset and the next call
// retries; an expired token is never handed out.
type TokenCache struct {
	provider  Provider
	parameter string

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	// now is a test seam; defaults to time.Now.
	now func() time.Time
}

// NewTokenCache builds a cache over the given provider and parameter name.
func NewTokenCache(provider Provider, parameter string) *TokenCache {
	return &TokenCache{
		provider:  provider,
		parameter: parameter,
		now:       time.Now,
	}
}

// Token returns the cached token, refreshing it from the secret store when
// absent or past its expiry.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.token != "" && now.Before(c.expiresAt) {
		return c.token, nil
	}

	appLog.Info("fetching access token from secret store", "parameter", c.parameter)

	value, err := c.provider.GetParameter(ctx, c.parameter)
	if err != nil {
		// Leave the cache unset so the next call retries.
		c.token = ""
		c.expiresAt = time.Time{}
		return "", fmt.Errorf("retrieve access token: %w", err)
	}

	c.token = value
	c.expiresAt = now.Add(tokenTTL)
	return value, nil
}

// Clear drops the cached token; the next Token call refreshes.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
