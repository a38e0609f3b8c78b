package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/JuanCarrill0/Kata-Middle-BB/config"
	"github.com/JuanCarrill0/Kata-Middle-BB/models"
	"github.com/JuanCarrill0/Kata-Middle-BB/store"
	"github.com/JuanCarrill0/Kata-Middle-BB/utils"
)

const principalKey = "principal"

// Principal is the authenticated identity attached to the request context.
// The role comes from the user document, not from the token, so role
// changes take effect on the next request.
type Principal struct {
	ID   bson.ObjectID
	Role string
}

func (p Principal) IsStaff() bool {
	return p.Role == models.RoleAdmin || p.Role == models.RoleTeacher
}

// PrincipalFrom returns the principal set by AuthMiddleware. Only valid on
// routes behind it.
func PrincipalFrom(c *fiber.Ctx) Principal {
	return c.Locals(principalKey).(Principal)
}

func AuthMiddleware(users store.UserStore, cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, err := utils.ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return utils.Unauthorized(c, "Authentication required")
		}

		user, err := users.GetByID(c.Context(), userID)
		if err != nil {
			return utils.Unauthorized(c, "Authentication required")
		}

		c.Locals(principalKey, Principal{ID: user.ID, Role: user.Role})
		return c.Next()
	}
}

// RequireStaff allows admins and teachers through.
func RequireStaff() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !PrincipalFrom(c).IsStaff() {
			return utils.Forbidden(c, "Not authorized")
		}
		return c.Next()
	}
}

func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if PrincipalFrom(c).Role != models.RoleAdmin {
			return utils.Forbidden(c, "Not authorized")
		}
		return c.Next()
	}
}
