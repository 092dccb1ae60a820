package handler

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/service"
)

// BookingHandler exposes the reservation lifecycle API: creation by
// customers and guests, status transitions by the restaurant side, and
// cancellation by the owning customer. All responses for mutations carry a
// `notified` flag reporting whether the best-effort notification went out.
type BookingHandler struct {
	Bookings *service.BookingService
	validate *validator.Validate
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(b *service.BookingService) *BookingHandler {
	if b == nil {
		panic("nil service passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: b, validate: validator.New()}
}

type reserveReq struct {
	DateTime  time.Time `json:"dateTime" validate:"required"`
	PartySize int       `json:"partySize" validate:"required,min=1"`
	Notes     string    `json:"notes"`
	MenuItems []string  `json:"menuItems" validate:"omitempty,dive,uuid4"`
}

type guestReserveReq struct {
	reserveReq
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

// bookingResp shapes the mutation responses.
func bookingResp(res service.BookingResult) echo.Map {
	return echo.Map{"booking": res.Reservation, "notified": res.Notified}
}

// Reserve handles POST /restaurants/:id/reserve for authenticated
// customers.
func (h *BookingHandler) Reserve(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req reserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.Bookings.Create(c.Request().Context(), service.CreateRequest{
		RestaurantID: c.Param("id"),
		CustomerID:   userID,
		DateTime:     req.DateTime,
		PartySize:    req.PartySize,
		Notes:        req.Notes,
		MenuItemIDs:  req.MenuItems,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingResp(res))
}

// ReserveGuest handles POST /restaurants/:id/reserve/guest: bookings from
// unauthenticated visitors identified by email. A guest account is created
// or reused behind the scenes.
func (h *BookingHandler) ReserveGuest(c echo.Context) error {
	var req guestReserveReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	res, err := h.Bookings.Create(c.Request().Context(), service.CreateRequest{
		RestaurantID: c.Param("id"),
		GuestEmail:   req.Email,
		GuestName:    req.FullName,
		GuestPhone:   req.Phone,
		DateTime:     req.DateTime,
		PartySize:    req.PartySize,
		Notes:        req.Notes,
		MenuItemIDs:  req.MenuItems,
	})
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingResp(res))
}

type statusReq struct {
	Status string `json:"status"`
}

// updateStatus applies one transition with the given external alias.
func (h *BookingHandler) updateStatus(c echo.Context, alias string) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Bookings.UpdateStatus(c.Request().Context(), actor, c.Param("id"), alias)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, bookingResp(res))
}

// UpdateStatus handles PATCH /reservations/:id/status with body
// {status: confirmed|rejected}. The dashboard speaks these aliases; they
// map to approved/declined internally.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req statusReq
	if err := c.Bind(&req); err != nil || req.Status == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status is required"})
	}
	return h.updateStatus(c, req.Status)
}

// Approve handles POST /reservations/:id/approve.
func (h *BookingHandler) Approve(c echo.Context) error {
	return h.updateStatus(c, "approved")
}

// Reject handles POST /reservations/:id/reject.
func (h *BookingHandler) Reject(c echo.Context) error {
	return h.updateStatus(c, "rejected")
}

// Cancel handles POST /my-bookings/:id/cancel for the owning customer.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.updateStatus(c, "cancelled")
}

// Get handles GET /reservations/:id, visible to the owning customer and the
// restaurant side.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	res, err := h.Bookings.GetForActor(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"booking": res})
}

// ListMine handles GET /my-bookings for the authenticated customer.
func (h *BookingHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	out, err := h.Bookings.ListMine(c.Request().Context(), userID)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}

// ListForRestaurant handles GET /restaurants/:id/reservations for the
// dashboard.
func (h *BookingHandler) ListForRestaurant(c echo.Context) error {
	actor, err := getActor(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	out, err := h.Bookings.ListForRestaurant(c.Request().Context(), actor, c.Param("id"))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookings": out})
}
