package middleware

import (
	"net/http"
	"sync"
	"time"

	"servicehub/config"
	"servicehub/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ipLimiters hands out one token bucket per client IP. Buckets idle for
// longer than idleTTL are dropped on the next sweep, so the map only holds
// recently active callers.
type ipLimiters struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	every     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func newIPLimiters(perMinute, burst int, idleTTL time.Duration) *ipLimiters {
	if perMinute <= 0 {
		perMinute = 60
	}
	if burst <= 0 {
		burst = 10
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &ipLimiters{
		limiters: make(map[string]*ipLimiter),
		every:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

func (s *ipLimiters) get(ip string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) >= s.idleTTL {
		for key, l := range s.limiters {
			if now.Sub(l.lastSeen) >= s.idleTTL {
				delete(s.limiters, key)
			}
		}
		s.lastSweep = now
	}

	l, ok := s.limiters[ip]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(s.every, s.burst)}
		s.limiters[ip] = l
	}
	l.lastSeen = now
	return l.limiter
}

func (s *ipLimiters) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.limiters)
}

// RateLimitMiddleware limits admin requests per client IP using the
// RATE_LIMIT_* settings.
func RateLimitMiddleware() gin.HandlerFunc {
	return rateLimit(newIPLimiters(
		config.AppConfig.RateLimitPerMinute,
		config.AppConfig.RateLimitBurst,
		config.AppConfig.RateLimitIdleTTL,
	))
}

func rateLimit(limiters *ipLimiters) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := getClientIP(c)
		if !limiters.get(ip).Allow() {
			utils.GetLogger().Warn("admin rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.FullPath()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Rate limit exceeded. Try again later."})
			return
		}
		c.Next()
	}
}
