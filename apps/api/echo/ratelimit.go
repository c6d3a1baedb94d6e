package echoapi

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiterStore maps client IPs to token buckets. A janitor drops entries unseen for staleAfter.
type ipLimiterStore struct {
	mu         sync.Mutex
	entries    map[string]*limiterEntry
	limit      rate.Limit
	burst      int
	staleAfter time.Duration
}

func newIPLimiterStore(limit rate.Limit, burst int, staleAfter time.Duration) *ipLimiterStore {
	return &ipLimiterStore{
		entries:    make(map[string]*limiterEntry),
		limit:      limit,
		burst:      burst,
		staleAfter: staleAfter,
	}
}

// janitor removes stale entries every interval until done is closed.
func (s *ipLimiterStore) janitor(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case now := <-ticker.C:
			s.cleanup(now)
		}
	}
}

func (s *ipLimiterStore) get(key string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		e.lastSeen = now
		return e.limiter
	}
	lim := rate.NewLimiter(s.limit, s.burst)
	s.entries[key] = &limiterEntry{limiter: lim, lastSeen: now}
	return lim
}

func (s *ipLimiterStore) cleanup(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := now.Add(-s.staleAfter)
	for k, e := range s.entries {
		if e.lastSeen.Before(cutoff) {
			delete(s.entries, k)
		}
	}
}

// rateLimitMiddleware applies a per-IP token bucket, e.g. to auth endpoints.
func rateLimitMiddleware(store *ipLimiterStore) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if ctx.Request().Method == http.MethodOptions {
				return next(ctx)
			}
			if !store.get(ctx.RealIP(), time.Now()).Allow() {
				ctx.Response().Header().Set("Retry-After", "1")
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
