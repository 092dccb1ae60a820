package router

import (
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/handler"
	"github.com/quickseat/quickseat/internal/middleware"
)

// RegisterBooking registers the reservation lifecycle endpoints.  Customers
// create and cancel bookings; the restaurant side (dashboard session or
// managing owner) approves and rejects them.  The guest entry point is the
// only unauthenticated mutation in the API.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string) {
	// Guest bookings identify the customer by email in the body.
	e.POST("/restaurants/:id/reserve/guest", h.ReserveGuest)

	customer := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "OWNER"),
	)
	customer.POST("/restaurants/:id/reserve", h.Reserve)
	customer.GET("/my-bookings", h.ListMine)
	customer.POST("/my-bookings/:id/cancel", h.Cancel)

	restaurant := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("RESTAURANT", "OWNER"),
	)
	// The dashboard PATCH speaks the confirmed/rejected aliases.
	restaurant.PATCH("/reservations/:id/status", h.UpdateStatus)
	restaurant.POST("/reservations/:id/approve", h.Approve)
	restaurant.POST("/reservations/:id/reject", h.Reject)
	restaurant.GET("/restaurants/:id/reservations", h.ListForRestaurant)

	// Reservation detail is visible to both sides; the handler checks that
	// the caller is the owning customer or the restaurant side.
	any := e.Group(
		"",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER", "OWNER", "RESTAURANT"),
	)
	any.GET("/reservations/:id", h.Get)
}
