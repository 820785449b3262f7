package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/proarena/arena/internal/errors"
	"github.com/proarena/arena/internal/models"
)

// Identity is the caller's verified identity as asserted by the gateway.
// The gateway terminates authentication and forwards the claims in
// headers; this service trusts them.
type Identity struct {
	UserId        string
	Email         string
	EmailVerified bool
	Role          models.Role
}

func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

const identityKey = "identity"

// Middleware extracts the gateway identity headers and rejects requests
// that carry none.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userId := c.Get("X-User-ID")
		if userId == "" {
			return apperrors.New(apperrors.CodeUnauthorized, "missing authentication context")
		}

		role := models.RoleUser
		if models.Role(c.Get("X-User-Role")) == models.RoleAdmin {
			role = models.RoleAdmin
		}

		c.Locals(identityKey, Identity{
			UserId:        userId,
			Email:         c.Get("X-User-Email"),
			EmailVerified: strings.EqualFold(c.Get("X-Email-Verified"), "true"),
			Role:          role,
		})

		return c.Next()
	}
}

// RequireAdmin guards admin routes. It must run after Middleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !FromContext(c).IsAdmin() {
			return apperrors.New(apperrors.CodeForbidden, "admin access required")
		}
		return c.Next()
	}
}

// RequireVerifiedEmail guards funds-movement routes.
func RequireVerifiedEmail() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !FromContext(c).EmailVerified {
			return apperrors.New(apperrors.CodeForbidden, "verified email required")
		}
		return c.Next()
	}
}

// FromContext returns the identity attached by Middleware. The zero
// Identity is returned for unauthenticated requests.
func FromContext(c *fiber.Ctx) Identity {
	id, _ := c.Locals(identityKey).(Identity)
	return id
}
