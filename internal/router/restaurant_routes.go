package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/handler"
	"github.com/quickseat/quickseat/internal/middleware"
)

// RegisterRestaurant registers restaurant browse, registration, the manager
// dashboard login and menu-item CRUD.  Browse and menu listing are public;
// registration requires an OWNER session; profile and menu mutations
// require the managing owner or a dashboard session.
func RegisterRestaurant(e *echo.Echo, h *handler.RestaurantHandler, jwtSecret string) {
	// Public browse endpoints, used by the customer-facing pages.
	e.GET("/restaurants", h.List)
	e.GET("/restaurants/:id", h.Get)
	e.GET("/restaurants/:id/menu", h.ListMenu)

	// Dashboard login exchanges loginId/password for a RESTAURANT session.
	e.POST("/restaurants/login", h.Login)

	owner := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER"),
	)
	owner.POST("/restaurants", h.Create)

	manage := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER", "RESTAURANT"),
	)
	manage.PATCH("/restaurants/:id", h.Update)
	manage.POST("/restaurants/:id/menu", h.CreateMenuItem)
	manage.PATCH("/restaurants/:id/menu/:itemId", h.UpdateMenuItem)
	manage.DELETE("/restaurants/:id/menu/:itemId", h.DeleteMenuItem)
}
