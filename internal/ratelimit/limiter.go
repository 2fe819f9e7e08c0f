// Package ratelimit enforces a minimum interval between requests per source key.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Keyed owns one limiter per source key. Keys never share state, so a slow
// source cannot throttle another one.
type Keyed struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	clock    Clock
}

// NewKeyed builds a keyed limiter; a nil clock means the wall clock.
func NewKeyed(clock Clock) *Keyed {
	if clock == nil {
		clock = SystemClock()
	}
	return &Keyed{limiters: map[string]*rate.Limiter{}, clock: clock}
}

// Wait blocks until a request for key may start, so that consecutive
// starts for the same key are at least interval apart.
func (k *Keyed) Wait(ctx context.Context, key string, interval time.Duration) error {
	if interval <= 0 {
		return ctx.Err()
	}

	lim := k.limiter(key, interval)
	now := k.clock.Now()
	res := lim.ReserveN(now, 1)
	if !res.OK() {
		return fmt.Errorf("rate limiter for %s refused reservation", key)
	}

	delay := res.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	if err := k.clock.Sleep(ctx, delay); err != nil {
		res.CancelAt(k.clock.Now())
		return err
	}
	return nil
}

func (k *Keyed) limiter(key string, interval time.Duration) *rate.Limiter {
	k.mu.Lock()
	defer k.mu.Unlock()

	limit := rate.Every(interval)
	lim, ok := k.limiters[key]
	if !ok {
		lim = rate.NewLimiter(limit, 1)
		k.limiters[key] = lim
		return lim
	}
	if lim.Limit() != limit {
		lim.SetLimitAt(k.clock.Now(), limit)
	}
	return lim
}
