package middleware

import (
	"student-performance/pkg/auth"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// IdentityKey is the fiber.Locals key holding the *auth.Identity of the caller.
const IdentityKey = "identity"

func AuthMiddleware(jwtManager *auth.JWTManager, revocations *auth.RevocationList, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Get("Authorization")
		if token == "" {
			logger.Warn("Missing authorization token")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization token required",
			})
		}

		// Remove "Bearer " prefix if present
		if len(token) > 7 && token[:7] == "Bearer " {
			token = token[7:]
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			logger.Warn("Invalid token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		identity, err := claims.Identity()
		if err != nil {
			logger.Warn("Invalid token subject", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		if revocations != nil {
			revoked, err := revocations.Check(c.Context(), identity)
			if err != nil {
				// a cache outage must not lock everybody out
				logger.Warn("Revocation check failed", zap.Error(err))
			} else if revoked {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Token has been revoked",
				})
			}
		}

		c.Locals(IdentityKey, identity)
		c.Locals("userID", claims.UserID)
		c.Locals("username", claims.Username)
		c.Locals("email", claims.Email)

		return c.Next()
	}
}
