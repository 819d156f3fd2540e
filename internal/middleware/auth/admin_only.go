package auth

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/easybuy/backend/internal/apperr"
)

// AdminOnly must run after RequireLogin.
func (m *Middleware) AdminOnly(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return apperr.New(apperr.Auth, "Not logged in")
		}
		if user.Role != "admin" {
			return apperr.New(apperr.Forbidden,
				fmt.Sprintf("%s is not allowed to access this resource", user.Role))
		}
		return next(c)
	}
}
