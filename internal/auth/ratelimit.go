package auth

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"
)

// LoginLimiter throttles login attempts per client IP.
type LoginLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	requests int
	window   time.Duration
}

func NewLoginLimiter(requests int, window time.Duration) *LoginLimiter {
	if requests <= 0 {
		requests = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return &LoginLimiter{
		limiters: make(map[string]*rate.Limiter),
		requests: requests,
		window:   window,
	}
}

func (l *LoginLimiter) limiter(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.limiters[ip]
	if !ok {
		perSecond := float64(l.requests) / l.window.Seconds()
		lim = rate.NewLimiter(rate.Limit(perSecond), l.requests)
		l.limiters[ip] = lim
	}
	return lim
}

func (l *LoginLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !l.limiter(c.IP()).Allow() {
			return fiber.NewError(fiber.StatusTooManyRequests, "Too many login attempts, try again later")
		}
		return c.Next()
	}
}
