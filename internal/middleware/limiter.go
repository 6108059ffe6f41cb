package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"coffeeshop-be/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Tier is one rate limit policy.
type Tier struct {
	Name  string
	Limit rate.Limit
	Burst int
}

// visitor holds the rate limiter and the last time it was seen.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one token bucket per identity and tier. Order
// submission gets its own, stricter tier.
type RateLimiter struct {
	general Tier
	orders  Tier

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter(general, orders Tier) *RateLimiter {
	if general.Name == "" {
		general.Name = "general"
	}
	if orders.Name == "" {
		orders.Name = "orders"
	}
	return &RateLimiter{
		general:  general,
		orders:   orders,
		visitors: make(map[string]*visitor),
		now:      time.Now,
	}
}

// getVisitor retrieves or creates a rate limiter for the given key.
func (l *RateLimiter) getVisitor(key string, tier Tier) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, exists := l.visitors[key]
	if !exists {
		limiter := rate.NewLimiter(tier.Limit, tier.Burst)
		l.visitors[key] = &visitor{limiter, l.now()}
		return limiter
	}

	v.lastSeen = l.now()
	return v.limiter
}

// Cleanup evicts visitors idle for longer than ttl every interval until ctx
// is done.
func (l *RateLimiter) Cleanup(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.sweep(ttl)
		}
	}
}

func (l *RateLimiter) sweep(ttl time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, v := range l.visitors {
		if l.now().Sub(v.lastSeen) > ttl {
			delete(l.visitors, key)
			removed++
		}
	}
	return removed
}

func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tier := l.resolveTier(r)

		// e.g. "ip:10.0.0.1:orders", so order submission has its own quota.
		key := fmt.Sprintf("%s:%s", identity(r, tier.Name != l.orders.Name), tier.Name)

		if !l.getVisitor(key, tier).Allow() {
			logger.FromCtx(r.Context()).Warn("rate limit exceeded",
				zap.String("key", key),
				zap.String("path", r.URL.Path),
			)
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) resolveTier(r *http.Request) Tier {
	if r.Method == http.MethodPost && r.URL.Path == "/api/orders" {
		return l.orders
	}
	return l.general
}

// identity prefers the token subject, then a client device id when
// trustDevice is set, then the remote IP. The header is client-chosen, so
// the order tier never keys on it.
func identity(r *http.Request, trustDevice bool) string {
	if sub, ok := SubjectFrom(r.Context()); ok {
		return "user:" + sub
	}
	if deviceID := r.Header.Get("X-Device-ID"); trustDevice && deviceID != "" {
		return "device:" + deviceID
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		ip = r.RemoteAddr
	}
	return "ip:" + ip
}
