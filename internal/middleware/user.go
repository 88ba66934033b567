package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const userIDHeader = "X-User-ID"

// UserLocal is the fiber.Ctx local under which the caller's user id is
// stored.
const UserLocal = "user_id"

// RequireUser trusts the user id asserted by the authenticating proxy in
// front of this service and rejects requests that arrive without one.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get(userIDHeader)
		if userID == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user identity")
		}
		c.Locals(UserLocal, userID)
		return c.Next()
	}
}
