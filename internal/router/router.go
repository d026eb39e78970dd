// Package router wires the HTTP surface: public auth endpoints behind
// their per-IP rate limits, and protected endpoints behind the token
// guards.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/zeawatch/backend/internal/config"
	"github.com/zeawatch/backend/internal/handler"
	"github.com/zeawatch/backend/internal/middleware"
)

// RegisterRoutes registers routes that need no dependencies. Currently
// only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication surface under /api/auth. The
// sensitive anonymous endpoints (register, login, forgot) each sit behind
// their own per-IP token bucket; protected endpoints run the access-token
// guard first.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/api/auth")

	g.POST("/register", a.Register,
		middleware.NewTokenBucket(rl.Limit("register", 5, 12*time.Second), rdb)) // 5/min
	g.POST("/login", a.Login,
		middleware.NewTokenBucket(rl.Limit("login", 10, 6*time.Second), rdb)) // 10/min
	g.POST("/forgot", a.Forgot,
		middleware.NewTokenBucket(rl.Limit("forgot", 3, 20*time.Minute), rdb)) // 3/hour

	g.POST("/refresh", a.Refresh)
	g.POST("/reset", a.Reset)
	g.GET("/verify", a.Verify)

	// Logout works for anonymous callers too; with a valid bearer token it
	// additionally attributes the audit event.
	g.POST("/logout", a.Logout, middleware.OptionalAuth(a.Cfg.JWTSecret))

	g.GET("/me", a.Me, middleware.RequireAuth(a.Cfg.JWTSecret))
}
