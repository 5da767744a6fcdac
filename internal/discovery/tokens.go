package discovery

import "sync/atomic"

// TokenSource hands out monotonically increasing request tokens so a
// slow browse response can be recognized as stale once a newer request
// has been issued.
type TokenSource struct {
	counter atomic.Int64
}

// Next issues a new token, superseding all earlier ones.
func (t *TokenSource) Next() int64 {
	return t.counter.Add(1)
}

// Current returns the most recently issued token.
func (t *TokenSource) Current() int64 {
	return t.counter.Load()
}

// IsStale reports whether a newer token has been issued since.
func (t *TokenSource) IsStale(token int64) bool {
	return token < t.counter.Load()
}
