package handler // handler defines http handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/service"
)

// errUnauthorized and errForbidden flow out of the access-check helpers so
// the calling handler writes exactly one response. The helpers themselves
// never touch the response writer.
var (
	errUnauthorized = errors.New("unauthorized")
	errForbidden    = errors.New("forbidden")
)

// accessError maps a failed access check onto its HTTP response.
func accessError(c echo.Context, err error) error {
	if errors.Is(err, errUnauthorized) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if errors.Is(err, errForbidden) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return serviceError(c, err)
}

// getUserID extracts the user_id stored by the JWT middleware. Subjects are
// uuid strings; anything else means the request is unauthenticated.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid user_id in context")
}

// getActor builds the service-level actor from the JWT claims. Dashboard
// sessions carry role RESTAURANT with the restaurant id as subject; all
// other sessions are users.
func getActor(c echo.Context) (service.Actor, error) {
	sub, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, _ := c.Get("role").(string)
	if role == "RESTAURANT" {
		return service.Actor{RestaurantID: sub, Role: role}, nil
	}
	return service.Actor{UserID: sub, Role: role}, nil
}

// serviceError maps the service sentinel taxonomy onto HTTP responses.
// Unknown errors become a generic 500 so internals never leak.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidTransition):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
