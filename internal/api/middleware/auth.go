package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"auction-house/internal/domain"
)

const (
	identityKey = "identity"
	tokenKey    = "session_token"
)

// Auth resolves the bearer token through the session gate and stashes the
// validated identity in the request context.
func Auth(gate domain.SessionGate) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			}

			token := strings.TrimPrefix(header, "Bearer ")
			identity, err := gate.Validate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Invalid Token"})
			}

			c.Set(identityKey, identity)
			c.Set(tokenKey, token)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin callers. It must run after Auth.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := GetIdentity(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			}
			if !identity.IsAdmin() {
				return c.JSON(http.StatusForbidden, map[string]string{"message": "Access denied"})
			}
			return next(c)
		}
	}
}

func GetIdentity(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(domain.Identity)
	return identity, ok
}

func GetToken(c echo.Context) string {
	token, _ := c.Get(tokenKey).(string)
	return token
}
