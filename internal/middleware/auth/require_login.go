package auth

import (
	"errors"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/easybuy/backend/internal/apperr"
	"github.com/easybuy/backend/internal/models"
	"github.com/easybuy/backend/internal/service/token"
)

const userContextKey = "current_user"

// Middleware is the access-control gate in front of protected routes.
type Middleware struct {
	DB     *gorm.DB
	Tokens *token.Service
}

// RequireLogin verifies the session cookie and loads the user it is bound
// to. Loading from the database keeps role changes effective immediately.
func (m *Middleware) RequireLogin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ck, err := c.Cookie(token.CookieName)
		if err != nil || ck.Value == "" {
			return apperr.New(apperr.Auth, "Not logged in")
		}

		userID, err := m.Tokens.Verify(ck.Value)
		if err != nil {
			return apperr.Wrap(apperr.Auth, "Not logged in", err)
		}

		var user models.User
		if err := m.DB.First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.Auth, "Not logged in")
			}
			return apperr.Wrap(apperr.Upstream, "internal server error", err)
		}

		c.Set(userContextKey, &user)
		return next(c)
	}
}

// CurrentUser returns the user RequireLogin stashed on the context.
func CurrentUser(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}
