package admission

import (
	"sync"
	"time"
)

// RateLimitError is returned when a client exhausted its request budget for
// the current window. The request must be rejected before any side effects.
type RateLimitError struct {
	Client string
}

func (e *RateLimitError) Error() string {
	return "rate limit exceeded for client " + e.Client
}

// RateLimiter implements a per-client sliding window: a request is admitted
// only when fewer than cap timestamps fall inside the trailing window.
// Expired timestamps are pruned lazily on each check; there is no background
// sweep. The per-client buckets are the one structure shared across
// concurrent jobs, so check-prune-append runs under one mutex.
type RateLimiter struct {
	window time.Duration
	cap    int

	mu      sync.Mutex
	clients map[string][]time.Time
	now     func() time.Time
}

// NewRateLimiter builds a limiter admitting at most requestCap requests per
// client within the trailing window.
func NewRateLimiter(window time.Duration, requestCap int) *RateLimiter {
	return &RateLimiter{
		window:  window,
		cap:     requestCap,
		clients: make(map[string][]time.Time),
		now:     time.Now,
	}
}

// Allow records one request attempt for client and reports whether it is
// admitted. Rejected attempts are not recorded.
func (l *RateLimiter) Allow(client string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.clients[client][:0]
	for _, ts := range l.clients[client] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= l.cap {
		l.clients[client] = recent
		return &RateLimitError{Client: client}
	}

	l.clients[client] = append(recent, now)
	return nil
}
