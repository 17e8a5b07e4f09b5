package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/sjawhar/mockview/internal/auth"
	"github.com/sjawhar/mockview/internal/metrics"
)

// RateLimiter keeps one token bucket per user for the model-backed endpoints.
type RateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	lastSeen map[string]time.Time
	rate     rate.Limit
	burst    int
	done     chan struct{}
	once     sync.Once
	logger   *slog.Logger
}

// NewRateLimiter allows perMinute requests per user with the given burst.
// A non-positive perMinute disables limiting.
func NewRateLimiter(perMinute, burst int, logger *slog.Logger) *RateLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if burst < 1 {
		burst = 1
	}
	l := rate.Inf
	if perMinute > 0 {
		l = rate.Limit(float64(perMinute) / 60.0)
	}

	m := &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		lastSeen: make(map[string]time.Time),
		rate:     l,
		burst:    burst,
		done:     make(chan struct{}),
		logger:   logger,
	}
	go m.cleanupRoutine(10 * time.Minute)
	return m
}

func (m *RateLimiter) limiter(key string) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()

	limiter, ok := m.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(m.rate, m.burst)
		m.limiters[key] = limiter
	}
	m.lastSeen[key] = time.Now()
	return limiter
}

func (m *RateLimiter) Allow(key string) bool {
	return m.limiter(key).Allow()
}

func (m *RateLimiter) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanup(interval)
		case <-m.done:
			return
		}
	}
}

func (m *RateLimiter) cleanup(evictionAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for key, seen := range m.lastSeen {
		if now.Sub(seen) > evictionAge {
			delete(m.limiters, key)
			delete(m.lastSeen, key)
		}
	}
	m.logger.Debug("rate limiter cleanup completed", "remaining_limiters", len(m.limiters))
}

func (m *RateLimiter) Close() {
	m.once.Do(func() { close(m.done) })
}

// limit wraps an authenticated handler. A nil limiter lets everything through.
func (s *Server) limit(next authedHandler) authedHandler {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request, id auth.Identity) {
		if !s.limiter.Allow(id.UserID) {
			metrics.RateLimited.Inc()
			s.logger.Info("rate limit exceeded", "user_id", id.UserID, "endpoint", r.URL.Path)
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests")
			return
		}
		next(w, r, id)
	}
}
