package handler

import (
	"github.com/gofiber/fiber/v2"

	"github.com/proarena/arena/internal/auth"
	"github.com/proarena/arena/internal/service"
)

type UserHandler struct {
	users service.UserService
}

func NewUserHandler(users service.UserService) *UserHandler {
	return &UserHandler{users: users}
}

// Me is the sign-in hook: the frontend calls it after authentication,
// which creates the profile on first sight and returns it.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	identity := auth.FromContext(c)
	user, err := h.users.EnsureUser(c.Context(), identity.UserId, identity.Email)
	if err != nil {
		return err
	}
	return c.JSON(user)
}
