package middleware

import (
	"net/http"

	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RequireRole is the role gate stage of the guard chain: the request
// proceeds only if the resolved user's role is in the allowed set. Must run
// after AuthMiddleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			user, ok := CurrentUser(c)
			if !ok {
				log.Error("No resolved user in context")
				prometheus.RecordAuthError("missing_user_context")
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
			}

			for _, role := range roles {
				if user.Role == role {
					return next(c)
				}
			}

			log.Error("Role not allowed for endpoint",
				zap.String("role", user.Role),
				zap.Strings("allowed", roles))
			prometheus.RecordAuthError("role_forbidden")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}
	}
}
