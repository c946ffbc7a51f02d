package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnectRateLimiter_SlidingWindow(t *testing.T) {
	req := require.New(t)
	now := time.Unix(1_700_000_000, 0)
	rl := NewConnectRateLimiter(2, time.Minute)
	rl.now = func() time.Time { return now }

	req.True(rl.Allow("a"))
	req.True(rl.Allow("a"))
	req.False(rl.Allow("a"))
	req.True(rl.Allow("b"))

	// Once the window slides past the first attempts, "a" is allowed again
	now = now.Add(61 * time.Second)
	req.True(rl.Allow("a"))
}

func TestConnectRateLimiter_Prune(t *testing.T) {
	req := require.New(t)
	now := time.Unix(1_700_000_000, 0)
	rl := NewConnectRateLimiter(5, time.Minute)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	rl.Prune()

	req.NotContains(rl.history, "old")
	req.Contains(rl.history, "fresh")
}
