package middleware // reusable HTTP middleware for the API

import (
	"net/http" // HTTP status codes for responses
	"strings"  // prefix checking on the Authorization header

	"github.com/labstack/echo/v4" // Echo middleware signatures

	"github.com/iliyamo/farmhub/internal/utils" // access token parsing
)

// Context keys written by the auth middleware.
const (
	CtxUserID = "user_id" // uint64 id from the "sub" claim
	CtxRole   = "role"    // role string from the "role" claim
)

// bearer returns the raw token of an "Authorization: Bearer <jwt>" header,
// or "" when the header is absent or uses another scheme.
func bearer(c echo.Context) string {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(auth) < 7 || !strings.EqualFold(auth[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(auth[7:])
}

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// stores the caller's id and role in the request context.  The secret must
// match the one used when issuing tokens.  Handlers read the values through
// UserID and Role.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := bearer(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			// ParseAccessToken pins HS256 and requires exp, so tokens signed
			// with another algorithm or without expiry are rejected here.
			claims, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(CtxUserID, claims.UserID)
			c.Set(CtxRole, claims.Role)
			return next(c)
		}
	}
}

// OptionalJWT is like JWTAuth but lets anonymous requests through.  A
// present but invalid token is still rejected.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	strict := JWTAuth(secret)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		guarded := strict(next)
		return func(c echo.Context) error {
			if bearer(c) == "" {
				return next(c)
			}
			return guarded(c)
		}
	}
}
