package auth

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Throttle counts failed login attempts per client IP over a TTL window. It
// slows password guessing on hosts too small for external tooling: the
// session layer disconnects an IP once its failures reach the limit, and the
// count quietly expires after the window.
type Throttle struct {
	limit int
	seen  *cache.Cache
}

// NewThrottle returns a tracker that trips after limit failures within
// window. A limit of zero or less disables tracking entirely.
func NewThrottle(limit int, window time.Duration) *Throttle {
	if limit <= 0 {
		return &Throttle{}
	}
	return &Throttle{
		limit: limit,
		seen:  cache.New(window, 2*window),
	}
}

// Failure records a failed login from ip and reports whether ip has now
// reached the limit.
func (t *Throttle) Failure(ip string) bool {
	if t.seen == nil {
		return false
	}
	if err := t.seen.Add(ip, 1, cache.DefaultExpiration); err == nil {
		return t.limit <= 1
	}
	n, err := t.seen.IncrementInt(ip, 1)
	if err != nil {
		// Entry expired between Add and Increment; treat as the first failure.
		t.seen.Set(ip, 1, cache.DefaultExpiration)
		return t.limit <= 1
	}
	return n >= t.limit
}

// Success clears the failure count for ip after a completed login.
func (t *Throttle) Success(ip string) {
	if t.seen != nil {
		t.seen.Delete(ip)
	}
}
