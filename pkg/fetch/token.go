package fetch

import (
	"context"
	"sync"
	"time"
)

// TokenSource fetches a fresh bearer token and its expiry from upstream.
type TokenSource func(ctx context.Context) (token string, expiresAt time.Time, err error)

// TokenClient holds one upstream's auth token and its expiry. The state is
// owned by the instance, never package-level, so the client is safely
// instantiable per test and per goroutine. Refresh is a guarded
// check-then-fetch: concurrent callers get the same refreshed token.
type TokenClient struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time

	source TokenSource
	// skew refreshes slightly before the advertised expiry.
	skew time.Duration
}

// NewTokenClient creates a token holder backed by the given source.
func NewTokenClient(source TokenSource) *TokenClient {
	return &TokenClient{source: source, skew: 30 * time.Second}
}

// Token returns the cached token, refreshing it when missing or within the
// skew window of its expiry.
func (t *TokenClient) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Add(t.skew).Before(t.expiresAt) {
		return t.token, nil
	}

	token, expiresAt, err := t.source(ctx)
	if err != nil {
		return "", err
	}
	t.token = token
	t.expiresAt = expiresAt
	return t.token, nil
}
