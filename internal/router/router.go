package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/quickseat/quickseat/internal/handler"    // import the handlers that implement business logic
	"github.com/quickseat/quickseat/internal/middleware" // import middleware for JWT authentication and role enforcement
	"github.com/quickseat/quickseat/internal/realtime"   // import the websocket endpoint
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Map the GET request at path "/healthz" to the Health handler.  This
	// endpoint can be used by load balancers or monitoring systems to verify
	// that the service is up and running.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication‑related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while protected endpoints live under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	// Create a route group under the /v1/auth prefix for operations that do
	// not require an existing session (register, login, refresh).  Each of
	// these handlers is responsible for generating or exchanging tokens.
	g := e.Group("/v1/auth")
	// Register a POST endpoint to handle user registration at /v1/auth/register.
	g.POST("/register", a.Register)
	// Register a POST endpoint to handle user login at /v1/auth/login.
	g.POST("/login", a.Login)
	// Register a POST endpoint to refresh access tokens at /v1/auth/refresh. This rotates the refresh token.
	g.POST("/refresh", a.Refresh)
	// Register a POST endpoint to issue a new access token without rotating the refresh token.
	g.POST("/refresh-access", a.RefreshAccess)
	// Register a POST endpoint to log out.  The handler accepts either a
	// JSON body containing a `refresh_token` (single-session logout) or a
	// bearer token (all-session logout) and does not require middleware.
	g.POST("/logout", a.Logout)

	// Create another group for routes that require a valid access token.  All
	// handlers registered on this group will execute the JWTAuth middleware
	// before being invoked.  Protected endpoints live under /v1.
	auth := e.Group("/v1")
	// Apply the JWTAuth middleware to the protected group using the provided secret.
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole("OWNER", "CUSTOMER", "RESTAURANT"))
	// Register a GET endpoint at /v1/me that returns the authenticated user's information.
	auth.GET("/me", a.Me)

	// Additionally map POST /v1/logout to the same handler so clients can
	// call either /v1/auth/logout or /v1/logout.
	e.POST("/v1/logout", a.Logout)
}

// RegisterRealtime registers the websocket endpoint and the room-token
// minting endpoint.  The socket itself is unauthenticated at the HTTP layer
// and validates the signed room token from the query string; minting that
// token requires a valid session.
func RegisterRealtime(e *echo.Echo, ws *realtime.WSHandler, t *handler.RealtimeTokenHandler, jwtSecret string) {
	e.GET("/ws", ws.Serve)
	e.GET("/realtime/token", t.Token, middleware.JWTAuth(jwtSecret))
}
