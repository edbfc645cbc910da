package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/caseperl/caseperl-api/internal/api/metrics"
)

const limiterCleanupInterval = 5 * time.Minute

// RateLimitConfig allows Requests per Window for each client IP, with up to
// Burst requests at once.
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Burst    int
}

type ipLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

func (l *ipLimiter) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if time.Since(l.lastCleanup) >= limiterCleanupInterval {
		l.lastCleanup = time.Now()
		// a full bucket means the client has been idle
		for key, lim := range l.limiters {
			if lim.Tokens() >= float64(l.burst) {
				delete(l.limiters, key)
			}
		}
	}

	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	return lim
}

// RateLimit rejects requests from a client IP that exceeds cfg with 429.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.Requests
	}
	l := &ipLimiter{
		limiters:    make(map[string]*rate.Limiter),
		limit:       rate.Limit(float64(cfg.Requests) / cfg.Window.Seconds()),
		burst:       burst,
		lastCleanup: time.Now(),
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			lim := l.get(c.RealIP())
			if lim.Allow() {
				return next(c)
			}

			reservation := lim.Reserve()
			delay := reservation.Delay()
			reservation.Cancel()

			metrics.RateLimitedTotal.Inc()
			c.Response().Header().Set("Retry-After", strconv.Itoa(max(int(delay.Seconds()), 1)))
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
		}
	}
}
