package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/avelyth/loresheet/internal/handler"
	"github.com/avelyth/loresheet/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance, plus the CORS middleware the browser editor needs
// for preflight requests.
func RegisterRoutes(e *echo.Echo) {
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.PUT, echo.DELETE, echo.OPTIONS},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes. Unauthenticated
// operations live under /v1/auth; /v1/auth/me requires a bearer token. The
// optional limiter middleware (redis token bucket) shields the credential
// endpoints from brute force.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if limiter != nil {
		mws = append(mws, limiter)
	}
	g := e.Group("/v1/auth", mws...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/forgot-password", a.ForgotPassword)
	g.POST("/reset-password", a.ResetPassword)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterCharacters registers the owner-scoped character endpoints under
// /v1/characters. All routes require a valid bearer token; ownership is
// enforced by the repository layer, which treats foreign rows as missing.
func RegisterCharacters(e *echo.Echo, h *handler.CharacterHandler, jwtSecret string) {
	g := e.Group("/v1/characters", middleware.JWTAuth(jwtSecret))

	g.GET("", h.List)
	g.POST("", h.Create)

	// The active-character routes must be registered before /:id so echo
	// does not treat "active" as an id.
	g.GET("/active", h.GetActive)
	g.POST("/active", h.SetActive)

	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update) // {isShared} bodies route to the sharing toggle
	g.DELETE("/:id", h.Delete)

	e.DELETE("/v1/admin/reset-all", h.ResetAllData, middleware.JWTAuth(jwtSecret))
}

// RegisterPublic registers the unauthenticated share-link endpoint. The
// optional cache middleware (redis response cache) fronts it since shared
// sheets are read-heavy and identical for every viewer.
func RegisterPublic(e *echo.Echo, h *handler.CharacterHandler, cache echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{}
	if cache != nil {
		mws = append(mws, cache)
	}
	e.GET("/v1/characters/shared/:token", h.GetShared, mws...)
}
