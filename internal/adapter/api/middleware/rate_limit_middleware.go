package middleware

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"tradechat/internal/infrastructure/ratelimit"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
	"tradechat/pkg/response"
)

// RateLimit throttles requests per authenticated user, or per client IP
// before authentication, using the action's bucket policy.
func RateLimit(limiter *ratelimit.RateLimiter, action string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := UserID(c)
			if key == "" {
				key = "ip:" + c.RealIP()
			}

			if allowed, wait := limiter.Allow(key, action); !allowed {
				logger.Warn("RATE LIMIT: %s exceeded %s (retry in %v)", key, action, wait)
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				return response.Error(c, errors.New(errors.CodeTooManyRequests, "Rate limit exceeded", http.StatusTooManyRequests, nil))
			}
			return next(c)
		}
	}
}
