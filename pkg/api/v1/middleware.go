package apiv1

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// NewAdminAuthMiddleware requires "Authorization: Bearer <token>". An empty token
// disables the check.
func NewAdminAuthMiddleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}

			header := c.Request().Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				log.Debug().
					Str("path", c.Path()).
					Bool("token_present", header != "").
					Msg("admin token validation failed")
				return ErrorResponse(c, http.StatusUnauthorized, "admin token required")
			}
			return next(c)
		}
	}
}
