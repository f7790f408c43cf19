package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// clientLimiter enforces a per-caller token bucket. Keys are the
// authenticated user id, falling back to the remote address.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*clientEntry
	rate     rate.Limit
	burst    int
}

type clientEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newClientLimiter(perSecond float64, burst int) *clientLimiter {
	if burst <= 0 {
		burst = int(perSecond)
		if burst < 1 {
			burst = 1
		}
	}
	cl := &clientLimiter{
		limiters: make(map[string]*clientEntry),
		rate:     rate.Limit(perSecond),
		burst:    burst,
	}
	go cl.evictLoop()
	return cl
}

func (cl *clientLimiter) allow(key string) bool {
	cl.mu.Lock()
	defer cl.mu.Unlock()
	entry, ok := cl.limiters[key]
	if !ok {
		entry = &clientEntry{limiter: rate.NewLimiter(cl.rate, cl.burst)}
		cl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter.Allow()
}

// evictLoop drops buckets idle long enough to be full again.
func (cl *clientLimiter) evictLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		cl.mu.Lock()
		for key, entry := range cl.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(cl.limiters, key)
			}
		}
		cl.mu.Unlock()
	}
}

func clientKey(r *http.Request) string {
	if id := r.Header.Get("X-User-ID"); id != "" {
		return id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		if s.limiter != nil && !s.limiter.allow(clientKey(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}
