package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter answers whether a keyed caller may proceed. Handlers depend on
// this interface so tests can swap in a permissive or scripted limiter.
type Limiter interface {
	Allow(key string) bool
}

type Config struct {
	// Rate is the sustained number of events per second per key.
	Rate float64
	// Burst is the instantaneous allowance per key.
	Burst int
	// IdleTTL controls how long an unused key's bucket is retained.
	IdleTTL time.Duration
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// KeyedLimiter keeps one token bucket per key, expiring idle buckets in
// the background.
type KeyedLimiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	cfg     Config
	stop    chan struct{}
	once    sync.Once
}

func New(cfg Config) *KeyedLimiter {
	if cfg.Rate == 0 {
		cfg.Rate = 5
	}
	if cfg.Burst == 0 {
		cfg.Burst = 10
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &KeyedLimiter{
		entries: make(map[string]*entry),
		cfg:     cfg,
		stop:    make(chan struct{}),
	}
}

func (l *KeyedLimiter) Allow(key string) bool {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.cfg.Rate), l.cfg.Burst)}
		l.entries[key] = e
	}
	e.lastSeen = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// Start launches the janitor that evicts idle buckets.
func (l *KeyedLimiter) Start() {
	go func() {
		ticker := time.NewTicker(l.cfg.IdleTTL / 2)
		defer ticker.Stop()

		for {
			select {
			case <-l.stop:
				return
			case <-ticker.C:
				l.evictIdle()
			}
		}
	}()
}

func (l *KeyedLimiter) Stop() {
	l.once.Do(func() { close(l.stop) })
}

func (l *KeyedLimiter) evictIdle() {
	cutoff := time.Now().Add(-l.cfg.IdleTTL)

	l.mu.Lock()
	defer l.mu.Unlock()
	for key, e := range l.entries {
		if e.lastSeen.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

// Unlimited never rejects; used where rate limiting is disabled.
type Unlimited struct{}

func (Unlimited) Allow(string) bool { return true }
