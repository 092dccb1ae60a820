package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/handler"
	"github.com/quickseat/quickseat/internal/middleware"
)

// RegisterFloorPlan registers the collaborative floor-plan editor surface
// under /api/floorplan.  Reading a floor is public so customers can browse
// the plan before booking; every mutation requires a session (the service
// additionally verifies the actor owns the restaurant).
func RegisterFloorPlan(e *echo.Echo, h *handler.FloorPlanHandler, jwtSecret string) {
	// Public read of a floor and its items.
	e.GET("/api/floorplan/:restaurantId/:floorKey", h.GetFloor)

	g := e.Group(
		"/api/floorplan/:restaurantId/:floorKey",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("OWNER", "RESTAURANT"),
	)
	g.POST("/add-item", h.AddItem)
	g.POST("/update-item", h.UpdateItem)
	g.DELETE("/item/:itemId", h.DeleteItem)
	g.POST("/toggle-reserve", h.ToggleReserve)
	// Wholesale save of canvas metadata plus the full item set.
	g.POST("", h.SaveFloor)
}
