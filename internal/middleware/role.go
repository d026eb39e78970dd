package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zeawatch/backend/internal/model"
)

// RequireAdmin enforces that the authenticated principal has the admin
// role. It must run after RequireAuth; a request that reaches it without
// a principal is treated as unauthenticated. Non-admins get 403.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok || p.IsAnonymous() {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"code": "NO_TOKEN", "message": "Authorization token required",
				})
			}
			if p.Role != model.RoleAdmin {
				return c.JSON(http.StatusForbidden, echo.Map{
					"code": "FORBIDDEN", "message": "Admin access required",
				})
			}
			return next(c)
		}
	}
}

// RequirePremium gates endpoints reserved for paying users. It currently
// only checks that the caller is authenticated; the subscription tier is
// not consulted, matching the behaviour the rest of the product was built
// against.
// TODO: enforce subscription_tier here once the billing states are final.
func RequirePremium() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := CurrentPrincipal(c)
			if !ok || p.IsAnonymous() {
				return c.JSON(http.StatusUnauthorized, echo.Map{
					"code": "NO_TOKEN", "message": "Authorization token required",
				})
			}
			return next(c)
		}
	}
}
