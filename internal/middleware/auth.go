package middleware // middleware provides shared request processing for handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zeawatch/backend/internal/model"
	"github.com/zeawatch/backend/internal/utils"
)

// principalKey is the echo context key the guards populate. Handlers read
// it through CurrentPrincipal.
const principalKey = "principal"

// RequireAuth returns an Echo middleware that extracts the bearer access
// token from the Authorization header, verifies it and stores the
// resulting principal in the request context. A missing header yields 401
// NO_TOKEN; any verification failure (expired, malformed, wrong type)
// yields 401 INVALID_TOKEN without distinguishing the cause. The guard
// itself writes no audit events; that stays with the handlers.
func RequireAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"code": "NO_TOKEN", "message": "Authorization token required",
				})
			}
			claims, err := utils.VerifyToken(secret, raw, utils.TokenTypeAccess)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"code": "INVALID_TOKEN", "message": "Invalid or expired token",
				})
			}
			setPrincipal(c, claims.Principal())
			return next(c)
		}
	}
}

// OptionalAuth behaves like RequireAuth on success but treats every
// failure (missing header, invalid token) as an anonymous caller instead
// of rejecting the request. Logout runs behind it so anonymous callers can
// clear their cookie while authenticated ones get an attributed audit row.
func OptionalAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearerToken(c); ok {
				if claims, err := utils.VerifyToken(secret, raw, utils.TokenTypeAccess); err == nil {
					setPrincipal(c, claims.Principal())
					return next(c)
				}
			}
			setPrincipal(c, model.Principal{}) // anonymous
			return next(c)
		}
	}
}

// CurrentPrincipal returns the principal stored by the auth guards. The
// second result is false when no guard ran on the route.
func CurrentPrincipal(c echo.Context) (model.Principal, bool) {
	p, ok := c.Get(principalKey).(model.Principal)
	return p, ok
}

func setPrincipal(c echo.Context, p model.Principal) {
	c.Set(principalKey, p)
	// Kept as separate keys too so the rate limiter and access logs can
	// read them without importing the model package.
	c.Set("user_id", p.UserID)
	c.Set("role", p.Role)
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")
	return raw, raw != ""
}
