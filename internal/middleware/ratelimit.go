package middleware

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tickethub/tickethub/internal/config"
)

// RateLimit enforces a fixed-window request limit per client key
// (user ID when authenticated, client IP otherwise). A nil Redis
// client disables limiting. Redis being unreachable fails open so the
// limiter never takes booking down with it.
func RateLimit(rdb *redis.Client, cfg config.RateLimitConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || !cfg.Enabled {
				return next(c)
			}

			key := fmt.Sprintf("%s:%s:%s", cfg.Prefix, clientKey(c), c.Path())
			ctx := c.Request().Context()

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				rdb.Expire(ctx, key, cfg.Window)
			}
			if n > int64(cfg.Limit) {
				retry := cfg.Window.Seconds()
				if ttl, err := rdb.TTL(ctx, key).Result(); err == nil && ttl > 0 {
					retry = ttl.Seconds()
				}
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry)))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

func clientKey(c echo.Context) string {
	if id := UserID(c); id != 0 {
		return "u" + strconv.FormatUint(id, 10)
	}
	return "ip" + c.RealIP()
}
