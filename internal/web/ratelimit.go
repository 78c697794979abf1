package web

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/devtoolshub/devtools-hub/internal/cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL = 10 * time.Minute
	maxTrackedIPs  = 10000
)

// ipRateLimiter keeps one token bucket per client IP. Buckets idle for limiterIdleTTL
// are forgotten.
type ipRateLimiter struct {
	limit    rate.Limit
	burst    int
	logger   *logrus.Logger
	limiters *cache.Cache
	mu       sync.Mutex
}

func newIPRateLimiter(perSecond float64, burst int, logger *logrus.Logger) *ipRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &ipRateLimiter{
		limit:    rate.Limit(perSecond),
		burst:    burst,
		logger:   logger,
		limiters: cache.NewBoundedCache(limiterIdleTTL, maxTrackedIPs),
	}
}

func (l *ipRateLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if v, ok := l.limiters.Get(ip); ok {
		limiter := v.(*rate.Limiter)
		l.limiters.Set(ip, limiter)
		return limiter
	}
	limiter := rate.NewLimiter(l.limit, l.burst)
	l.limiters.Set(ip, limiter)
	return limiter
}

// Middleware answers 429 once a client has spent its burst
func (l *ipRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if !l.get(ip).Allow() {
			l.logger.WithField("ip", ip).Debug("Rate limit exceeded")
			w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds(l.limit)))
			writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "rate limit exceeded"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP returns the host part of RemoteAddr. Forwarded headers only count when the
// router trusts a proxy and middleware.RealIP has rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func retryAfterSeconds(limit rate.Limit) int {
	if limit <= 0 {
		return 60
	}
	return max(1, int(1/float64(limit)+0.5))
}
