package http

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"explog/internal/cache"
)

const (
	rateLimitWindow   = time.Minute
	rateLimitRequests = 60
	rateLimitIdle     = 10 * time.Minute
	rateLimitClients  = 10_000
)

// rateLimiter implements a simple in-memory rate limiter per client IP.
// Idle clients expire from the underlying LRU after rateLimitIdle.
type rateLimiter struct {
	mu      sync.Mutex
	clients *cache.LRUCache[*clientInfo]
	manager *cache.Manager
	now     func() time.Time
	stopped sync.Once
}

type clientInfo struct {
	windowStart time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients: cache.NewLRUCache[*clientInfo](rateLimitClients, rateLimitIdle),
		manager: cache.NewManager(nil),
		now:     time.Now,
	}
	rl.manager.Register(rl.clients)
	rl.manager.StartCleanup(5 * time.Minute)
	return rl
}

// stop gracefully shuts down the rate limiter cleanup goroutine.
func (rl *rateLimiter) stop() {
	rl.stopped.Do(rl.manager.Stop)
}

// ActiveClients returns the number of tracked clients.
func (rl *rateLimiter) ActiveClients() int {
	return rl.clients.Size()
}

// allow checks if a request from the given IP should be allowed.
// Each client gets rateLimitRequests per fixed window starting at its first
// request; denied requests do not count against the window.
func (rl *rateLimiter) allow(clientIP string, metrics *securityMetrics) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	client, exists := rl.clients.Get(clientIP)
	if !exists || now.Sub(client.windowStart) >= rateLimitWindow {
		rl.clients.Set(clientIP, &clientInfo{windowStart: now, requests: 1})
		return true
	}

	if client.requests >= rateLimitRequests {
		if metrics != nil {
			atomic.AddInt64(&metrics.rateLimitHits, 1)
		}
		return false
	}
	client.requests++
	rl.clients.Set(clientIP, client)
	return true
}

// rateLimited reports whether r counts against the client's budget. Swipe
// state notifications are exempt since they never touch stored expenses.
func rateLimited(r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return false
	}
	return !strings.HasSuffix(r.URL.Path, "/pending") && !strings.HasSuffix(r.URL.Path, "/present")
}
