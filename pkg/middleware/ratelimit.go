package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/utafrali/storefront/pkg/httputil"
)

// KeyFunc picks the bucket a request is counted against.
type KeyFunc func(r *http.Request) string

// RateLimitConfig configures RateLimiter.
type RateLimitConfig struct {
	RPS   float64
	Burst int
	// TTL is how long an idle bucket is kept. Defaults to 3 minutes.
	TTL time.Duration
	// Key defaults to the peer address, ClientIPKey(nil).
	Key KeyFunc
}

// visitor tracks a token bucket per key.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter enforces a token bucket per key. Idle buckets are evicted by
// Run.
type RateLimiter struct {
	cfg    RateLimitConfig
	logger *slog.Logger

	mu       sync.Mutex
	visitors map[string]*visitor
	nowFunc  func() time.Time
}

// NewRateLimiter creates a limiter. Call Run to start evicting idle buckets.
func NewRateLimiter(cfg RateLimitConfig, logger *slog.Logger) *RateLimiter {
	if cfg.TTL <= 0 {
		cfg.TTL = 3 * time.Minute
	}
	if cfg.Key == nil {
		cfg.Key = ClientIPKey(nil, logger)
	}
	return &RateLimiter{
		cfg:      cfg,
		logger:   logger,
		visitors: make(map[string]*visitor),
		nowFunc:  time.Now,
	}
}

// Handler returns middleware that answers 429 once a key's bucket is empty.
func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := l.cfg.Key(r)
		if !l.limiter(key).Allow() {
			l.logger.WarnContext(r.Context(), "rate limit exceeded",
				slog.String("key", key),
				slog.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", strconv.Itoa(l.retryAfter()))
			httputil.WriteJSON(w, http.StatusTooManyRequests, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "RATE_LIMITED", Message: "too many requests"},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Run evicts idle buckets every TTL until ctx is canceled.
func (l *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.TTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *RateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)}
		l.visitors[key] = v
	}
	v.lastSeen = l.nowFunc()
	return v.limiter
}

// cleanup evicts all buckets whose lastSeen is older than the TTL.
func (l *RateLimiter) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFunc()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.cfg.TTL {
			delete(l.visitors, key)
		}
	}
}

func (l *RateLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

// retryAfter is the whole number of seconds until one token refills.
func (l *RateLimiter) retryAfter() int {
	if l.cfg.RPS <= 0 {
		return 1
	}
	secs := int(1 / l.cfg.RPS)
	return max(secs, 1)
}
