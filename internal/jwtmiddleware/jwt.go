// Package jwtmiddleware guards the user-scoped and admin routes. Token
// issuance lives elsewhere; the only thing verified here is that the caller
// is who the path says they are.
package jwtmiddleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// RequireUser validates the access token and, when the route carries an :id
// parameter, rejects a token whose subject names a different user. Admins
// pass the ownership check for any user.
func RequireUser(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, isAdmin, err := parseToken(c, secret)
			if err != nil {
				return err
			}
			if id := c.Param("id"); id != "" && id != sub && !isAdmin {
				return echo.NewHTTPError(http.StatusUnauthorized,
					"user conflict: the user making the request doesn't match the user in the request")
			}
			c.Set("user_id", sub)
			return next(c)
		}
	}
}

func RequireAdmin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sub, isAdmin, err := parseToken(c, secret)
			if err != nil {
				return err
			}
			if !isAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "admin only")
			}
			c.Set("user_id", sub)
			return next(c)
		}
	}
}

func parseToken(c echo.Context, secret []byte) (sub string, isAdmin bool, err error) {
	tokenString := bearerToken(c)
	if tokenString == "" {
		if cookie, err := c.Cookie("accessToken"); err == nil {
			tokenString = cookie.Value
		}
	}
	if tokenString == "" {
		return "", false, echo.NewHTTPError(http.StatusUnauthorized, "missing token")
	}

	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", false, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	sub, ok = claims["sub"].(string)
	if !ok || sub == "" {
		return "", false, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}
	isAdmin, _ = claims["is_admin"].(bool)
	return sub, isAdmin, nil
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, "Bearer"))
}
