package token

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// CookieName is the session cookie the frontend sends back on every call.
	CookieName = "token"

	sessionTTL = 7 * 24 * time.Hour
)

// Service signs and verifies the session tokens bound to a user id.
type Service struct {
	JWTSecret []byte
}

func (s *Service) Sign(userID uint) (string, time.Time, error) {
	exp := time.Now().Add(sessionTTL)
	claims := jwt.MapClaims{
		"sub": userID,
		"exp": exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.JWTSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, exp, nil
}

// Verify parses a presented token and returns the user id it is bound to.
// Expired, malformed and mis-signed tokens all fail here.
func (s *Service) Verify(raw string) (uint, error) {
	t, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.JWTSecret, nil
	})
	if err != nil || !t.Valid {
		return 0, fmt.Errorf("invalid session token: %w", err)
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("cannot parse claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, fmt.Errorf("session token has no subject")
	}
	return uint(sub), nil
}

// Cookie wraps a signed token in the http-only session cookie.
func Cookie(value string, exp time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		Expires:  exp,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteNoneMode,
	}
}

// ExpiredCookie clears the session cookie on logout.
func ExpiredCookie() *http.Cookie {
	return Cookie("", time.Unix(0, 0))
}
