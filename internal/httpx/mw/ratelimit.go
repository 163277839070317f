package mw

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"

	"fiber-ent-blog/internal/redisx"
)

var incrScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then redis.call('PEXPIRE', KEYS[1], ARGV[1]) end
return current`)

// RateLimitKey identifies the caller by ip and, when signed in, username.
func RateLimitKey(c *fiber.Ctx) string {
	sub := ""
	if pr := CurrentPrincipal(c); pr != nil {
		sub = pr.Username
	}
	return fmt.Sprintf("ip:%s|sub:%s", c.IP(), sub)
}

// RateLimit limits requests per key to limit per window. With a Redis
// client the counters are shared across instances; without one Fiber's
// in-memory limiter is used. Redis errors let the request through.
func RateLimit(rdb *redisx.Client, windowSec int, limit int) fiber.Handler {
	if rdb == nil {
		return limiter.New(limiter.Config{
			Max:          limit,
			Expiration:   time.Duration(windowSec) * time.Second,
			KeyGenerator: RateLimitKey,
			LimitReached: func(_ *fiber.Ctx) error {
				return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
			},
		})
	}
	return func(c *fiber.Ctx) error {
		key := "rl:" + RateLimitKey(c)
		ctx, cancel := context.WithTimeout(c.Context(), 200*time.Millisecond)
		defer cancel()
		ttlMs := int64(windowSec) * 1000
		res, err := incrScript.Run(ctx, rdb, []string{key}, ttlMs).Result()
		if err != nil {
			return c.Next()
		}
		n, _ := res.(int64)
		c.Set("X-RateLimit-Limit", fmt.Sprint(limit))
		c.Set("X-RateLimit-Remaining", fmt.Sprint(lo.Max([]int64{0, int64(limit) - n})))
		if n > int64(limit) {
			c.Set("Retry-After", fmt.Sprint(windowSec))
			return fiber.NewError(fiber.StatusTooManyRequests, "rate limit exceeded")
		}
		return c.Next()
	}
}
