// Package ratelimit throttles write requests per client address.
package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"expenses/internal/log"
)

const window = time.Minute

// Limiter counts requests per client in fixed one-minute windows. The
// window starts at the client's first request and is not extended by later
// ones.
type Limiter struct {
	mu      sync.Mutex
	clients map[string]*bucket
	now     func() time.Time

	limit   int
	idle    time.Duration
	methods map[string]bool

	stop     chan struct{}
	stopOnce sync.Once
	rejected atomic.Int64
}

type bucket struct {
	start time.Time
	count int
}

type Config struct {
	RequestsPerMinute int
	// CleanupInterval is how often buckets idle for longer than a window
	// are dropped.
	CleanupInterval time.Duration
	// Methods limits which HTTP methods count; empty means all.
	Methods []string
}

// DefaultConfig limits only the mutating methods.
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
		Methods:           []string{http.MethodPost, http.MethodDelete},
	}
}

func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig().CleanupInterval
	}

	rl := &Limiter{
		clients: make(map[string]*bucket),
		now:     time.Now,
		limit:   config.RequestsPerMinute,
		idle:    config.CleanupInterval,
		stop:    make(chan struct{}),
	}
	if len(config.Methods) > 0 {
		rl.methods = make(map[string]bool, len(config.Methods))
		for _, m := range config.Methods {
			rl.methods[m] = true
		}
	}
	go rl.janitor()
	return rl
}

// Allow records a request from clientIP and reports whether it is within
// the limit.
func (rl *Limiter) Allow(clientIP string) bool {
	ok, _ := rl.take(clientIP)
	return ok
}

// take returns whether the request is allowed and, when it is not, how long
// until the client's window resets.
func (rl *Limiter) take(clientIP string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.clients[clientIP]
	if !ok || now.Sub(b.start) >= window {
		rl.clients[clientIP] = &bucket{start: now, count: 1}
		return true, 0
	}
	if b.count >= rl.limit {
		rl.rejected.Add(1)
		return false, window - now.Sub(b.start)
	}
	b.count++
	return true, 0
}

func (rl *Limiter) janitor() {
	ticker := time.NewTicker(rl.idle)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.stop:
			return
		}
	}
}

func (rl *Limiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-window)
	for ip, b := range rl.clients {
		if b.start.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// Stop ends the cleanup goroutine. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.rejected.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects over-limit requests with Retry-After set to the
// seconds left in the client's window. onLimit writes the body; nil falls
// back to a plain-text 429.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if rl.methods != nil && !rl.methods[r.Method] {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			ok, wait := rl.take(clientIP)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			slog.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)

			secs := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
		})
	}
}
