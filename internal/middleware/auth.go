package middleware

import (
	"streammap-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const userLocal = "user"

// RequireAuth ensures a user is in the session. Returns 401 with standard error format if not.
func RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := c.Locals(userLocal)
		if user == nil {
			return response.Unauthorized(c, "Unauthorized")
		}
		c.Locals("auth", user)
		return c.Next()
	}
}

// GetUser returns the session user from Locals (nil if not logged in).
func GetUser(c *fiber.Ctx) interface{} {
	return c.Locals(userLocal)
}

// CurrentUser returns the session user's id and role. ok is false when nobody is logged in
// or the stored id is not a uuid.
func CurrentUser(c *fiber.Ctx) (id uuid.UUID, role string, ok bool) {
	m, isMap := GetUser(c).(map[string]interface{})
	if !isMap {
		return uuid.Nil, "", false
	}
	raw, _ := m["user_id"].(string)
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", false
	}
	role, _ = m["role"].(string)
	return parsed, role, true
}
