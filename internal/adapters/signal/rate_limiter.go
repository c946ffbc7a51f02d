package signal

import (
	"context"
	"sync"
	"time"
)

// ConnectRateLimiter caps signaling connection attempts per client token
// within a sliding window.
type ConnectRateLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewConnectRateLimiter(limit int, interval time.Duration) *ConnectRateLimiter {
	return &ConnectRateLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *ConnectRateLimiter) Allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[client]
	fresh := make([]time.Time, 0, len(attempts)+1)
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[client] = fresh
		return false
	}

	rl.history[client] = append(fresh, now)
	return true
}

// Prune drops clients with no attempt inside the window.
func (rl *ConnectRateLimiter) Prune() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	windowStart := rl.now().Add(-rl.interval)
	for client, attempts := range rl.history {
		if len(attempts) == 0 || !attempts[len(attempts)-1].After(windowStart) {
			delete(rl.history, client)
		}
	}
}

// Run prunes stale clients once per window until ctx is done.
func (rl *ConnectRateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}
