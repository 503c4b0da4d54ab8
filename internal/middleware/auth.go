package middleware

import (
	"errors"
	"net/http"
	"strings"

	"isolate/internal/model"
	"isolate/pkg/database"
	"isolate/pkg/jwtutil"
	"isolate/pkg/logger"
	"isolate/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserContextKey is the Echo context key the resolved user is stored under.
const UserContextKey = "user"

// AuthMiddleware is the token resolver stage of the guard chain: it
// validates the bearer token and resolves the subject to a user record,
// which downstream checks read from the context. The lookup is by id only;
// a soft-deleted user still resolves, since soft-deleted rows stay
// addressable.
func AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		log := logger.FromContext(c)

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			log.Error("Missing Authorization header")
			prometheus.RecordAuthError("missing_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			log.Error("Invalid Authorization header format")
			prometheus.RecordAuthError("invalid_auth_format")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}

		claims, err := jwtutil.ValidateToken(parts[1])
		if err != nil {
			log.Error("Invalid JWT token", zap.Error(err))
			prometheus.RecordAuthError("invalid_token")
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Unauthorized"})
		}

		var user model.User
		if err := database.GetDB().First(&user, claims.UserID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Error("Token subject does not resolve to a user", zap.Uint("user_id", claims.UserID))
				prometheus.RecordAuthError("user_not_found")
				return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
			}
			log.Error("Failed to load user for token", zap.Error(err))
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal Server Error"})
		}

		c.Set(UserContextKey, user)
		return next(c)
	}
}

// CurrentUser returns the user resolved by AuthMiddleware.
func CurrentUser(c echo.Context) (model.User, bool) {
	user, ok := c.Get(UserContextKey).(model.User)
	return user, ok
}
