// Package router registers the HTTP routes of the dive-center API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/handler"
	"github.com/Ismailibrahim/Fareeh-Dive-App-sub005/internal/middleware"
)

// RegisterRoutes registers routes that need no authentication: the health
// check and the uploaded files.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, uploadDir, uploadBaseURL string) {
	e.GET("/healthz", handler.Health(db))
	e.Static(uploadBaseURL, uploadDir)
}

// RegisterAuth registers the /v1/auth routes. Register, login, refresh and
// logout check their own credentials; /me needs an access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}
