// Package ratelimit implements the per-village, per-client advisory
// minute bucket described in spec §5: a bounded, mutex-guarded
// process-local map with eviction once it grows past 5,000 entries.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	maxEntries  = 5000
	staleAfter  = 5 * time.Minute
)

type bucket struct {
	limiter    *rate.Limiter
	lastSeen   time.Time
}

// Limiter is a bounded concurrent map of (village_id, client_key) ->
// token bucket, one bucket per key replenished at the policy's
// configured per-minute rate.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

func New() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket), now: time.Now}
}

func key(villageID, clientKey string) string {
	return villageID + "\x00" + clientKey
}

// Allow reports whether one request from (villageID, clientKey) is
// admitted under a ratePerMinute budget, creating the bucket on first
// use and evicting stale entries once the map exceeds its bound.
func (l *Limiter) Allow(villageID, clientKey string, ratePerMinute int) bool {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	k := key(villageID, clientKey)
	b, ok := l.buckets[k]
	if !ok {
		if len(l.buckets) >= maxEntries {
			l.evictStaleLocked(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(float64(ratePerMinute)/60.0), ratePerMinute)}
		l.buckets[k] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// evictStaleLocked removes buckets not seen in the last staleAfter
// window. Callers must hold l.mu.
func (l *Limiter) evictStaleLocked(now time.Time) {
	cutoff := now.Add(-staleAfter)
	for k, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, k)
		}
	}
}

// Len reports the current bucket count (test/diagnostic use).
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
