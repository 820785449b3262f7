package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowWithinBurst(t *testing.T) {
	l := New(Config{Rate: 1, Burst: 3})

	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
}

func TestKeysAreIndependent(t *testing.T) {
	l := New(Config{Rate: 1, Burst: 1})

	assert.True(t, l.Allow("u1"))
	assert.False(t, l.Allow("u1"))
	assert.True(t, l.Allow("u2"))
}

func TestEvictIdleDropsStaleBuckets(t *testing.T) {
	l := New(Config{Rate: 1, Burst: 1, IdleTTL: time.Minute})

	l.Allow("stale")
	l.Allow("fresh")

	l.mu.Lock()
	l.entries["stale"].lastSeen = time.Now().Add(-2 * time.Minute)
	l.mu.Unlock()

	l.evictIdle()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.entries, "stale")
	assert.Contains(t, l.entries, "fresh")
}

func TestStopIsIdempotent(t *testing.T) {
	l := New(Config{})
	l.Start()
	l.Stop()
	l.Stop()
}

func TestUnlimited(t *testing.T) {
	var l Limiter = Unlimited{}
	for i := 0; i < 1000; i++ {
		assert.True(t, l.Allow("anyone"))
	}
}
