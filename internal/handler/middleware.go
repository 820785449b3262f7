package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proarena/arena/internal/auth"
	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/logger"
	"github.com/proarena/arena/internal/ratelimit"
)

// ErrorHandler converts errors returned by handlers into the JSON error
// envelope. Internal details are logged but never sent to the client.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := apperrors.HTTPStatus(err)

		if status >= fiber.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Method(),
				"path", c.Path(),
				"error", err,
			)
		}

		return c.Status(status).JSON(fiber.Map{
			"error": fiber.Map{
				"code":    string(apperrors.CodeOf(err)),
				"message": apperrors.UserMessage(err),
			},
		})
	}
}

// RateLimit throttles per authenticated user. Register it after the
// identity middleware so the bucket key is the user id; on routes with
// no identity the key falls back to the client IP.
func RateLimit(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := auth.FromContext(c).UserId
		if key == "" {
			key = c.IP()
		}

		if !limiter.Allow(key) {
			return apperrors.New(apperrors.CodeRateLimited, "too many requests, slow down")
		}

		return c.Next()
	}
}
