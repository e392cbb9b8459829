package middleware

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/pkg/logger"
)

// WindowCounter is a shared fixed-window counter, implemented by the redis
// client.
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter limits requests per client IP. A shared counter is used when
// one is configured; the in-process token buckets take over when it is
// absent or failing.
type RateLimiter struct {
	name       string
	maxRequest int
	window     time.Duration
	counter    WindowCounter

	mu       sync.Mutex
	visitors map[string]*visitor
	now      func() time.Time
}

func NewRateLimiter(name string, maxRequest int, window time.Duration, counter WindowCounter) *RateLimiter {
	if maxRequest <= 0 {
		maxRequest = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{
		name:       name,
		maxRequest: maxRequest,
		window:     window,
		counter:    counter,
		visitors:   make(map[string]*visitor),
		now:        time.Now,
	}
}

func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		allowed, retryAfter := rl.allow(c.Request.Context(), ip)
		if !allowed {
			logger.GetLogger().Warn("Rate limit exceeded",
				zap.String("limiter", rl.name),
				zap.String("client_ip", ip),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Int("max_requests", rl.maxRequest),
				zap.Duration("window", rl.window),
			)

			c.Header(constants.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, constants.BuildErrorResponse(constants.MsgTooManyRequests, nil))
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.maxRequest))
		c.Next()
	}
}

func (rl *RateLimiter) allow(ctx context.Context, ip string) (bool, time.Duration) {
	if rl.counter != nil {
		key := constants.CacheKeyRateLimit + rl.name + ":" + ip
		count, remaining, err := rl.counter.IncrWindow(ctx, key, rl.window)
		if err == nil {
			return count <= int64(rl.maxRequest), remaining
		}
		logger.GetLogger().Warn("Rate limit counter unavailable, using local limiter",
			zap.String("limiter", rl.name),
			zap.Error(err),
		)
	}

	return rl.allowLocal(ip)
}

func (rl *RateLimiter) allowLocal(ip string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.cleanup(now)

	v, ok := rl.visitors[ip]
	if !ok {
		every := rl.window / time.Duration(rl.maxRequest)
		v = &visitor{limiter: rate.NewLimiter(rate.Every(every), rl.maxRequest)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now

	r := v.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

func (rl *RateLimiter) cleanup(now time.Time) {
	for ip, v := range rl.visitors {
		if now.Sub(v.lastSeen) > rl.window {
			delete(rl.visitors, ip)
		}
	}
}
