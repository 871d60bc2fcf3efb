package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"feedhub/internal/models"
	"feedhub/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNoRedis = errors.New("ratelimit: redis client is nil")

// Limit is a fixed-window budget of Requests per Window, shared by every
// route registered under the same Name.
type Limit struct {
	Name     string
	Requests int
	Window   time.Duration
}

// limitingEnabled is false outside deployed environments so local runs and
// tests never need Redis.
func limitingEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// Take spends one request from the caller's budget and reports how many are
// left. A negative remainder means the budget is exhausted.
func (l Limit) Take(ctx context.Context, rdb *redis.Client, caller string) (int, error) {
	if !limitingEnabled() {
		return l.Requests, nil
	}
	if rdb == nil {
		return 0, errNoRedis
	}

	key := "rl:" + l.Name + ":" + caller
	pipe := rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		observability.RedisErrorRate.WithLabelValues("ratelimit").Inc()
		return 0, err
	}
	// The first request of a window starts its clock.
	if ttl.Val() < 0 {
		if err := rdb.Expire(ctx, key, l.Window).Err(); err != nil {
			return 0, err
		}
	}
	return l.Requests - int(incr.Val()), nil
}

// RateLimit enforces l per caller. Authenticated callers are keyed by user ID,
// everyone else by remote IP. Requests pass when Redis cannot be reached.
func RateLimit(rdb *redis.Client, l Limit) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			caller = fmt.Sprintf("user:%d", uid)
		}

		remaining, err := l.Take(c.UserContext(), rdb, caller)
		if err != nil {
			return c.Next()
		}
		if remaining < 0 {
			observability.RateLimitRejections.WithLabelValues(l.Name).Inc()
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(l.Window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Message: "Too many requests, please try again later.",
			})
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(l.Requests))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		return c.Next()
	}
}
