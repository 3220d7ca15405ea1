package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiter_BurstThenWait(t *testing.T) {
	req := require.New(t)
	rl := NewRateLimiterWithPolicies(map[string]Policy{
		"act": {Burst: 2, Refill: time.Minute},
	})
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	ok, _ := rl.Allow("u1", "act")
	req.True(ok)
	ok, _ = rl.Allow("u1", "act")
	req.True(ok)

	ok, wait := rl.Allow("u1", "act")
	req.False(ok)
	req.InDelta(time.Minute.Seconds(), wait.Seconds(), 1)

	ok, _ = rl.Allow("u2", "act")
	req.True(ok, "buckets are per user")

	now = now.Add(time.Minute)
	ok, _ = rl.Allow("u1", "act")
	req.True(ok)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter()
	now := time.Now()
	rl.now = func() time.Time { return now }

	rl.Allow("u1", ActionSendMessage)
	now = now.Add(2 * time.Hour)
	rl.Allow("u2", ActionSendMessage)

	require.Equal(t, 1, rl.Cleanup(time.Hour))
}
