package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/service"
)

// FloorPlanHandler exposes the collaborative floor-plan editor API. The GET
// endpoint is public (customers browse the plan before booking); every
// mutation requires an authenticated owner-side actor, which the service
// re-validates against the restaurant.
type FloorPlanHandler struct {
	Floors *service.FloorPlanService
}

// NewFloorPlanHandler constructs a FloorPlanHandler.
func NewFloorPlanHandler(floors *service.FloorPlanService) *FloorPlanHandler {
	if floors == nil {
		panic("nil service passed to NewFloorPlanHandler")
	}
	return &FloorPlanHandler{Floors: floors}
}

// GetFloor handles GET /api/floorplan/:restaurantId/:floorKey. A floor that
// was never saved is a 404; the dashboard creates it on first save.
func (h *FloorPlanHandler) GetFloor(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	floor, found, err := h.Floors.GetFloor(c.Request().Context(), restaurantID, floorKey)
	if err != nil {
		return serviceError(c, err)
	}
	if !found {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "floor not found"})
	}
	return c.JSON(http.StatusOK, floor)
}

// ownership resolves whether the authenticated actor may edit the
// restaurant's floor plan. It writes nothing; callers map a non-nil error
// through accessError and stop.
func (h *FloorPlanHandler) ownership(c echo.Context, restaurantID string) (bool, error) {
	actor, err := getActor(c)
	if err != nil {
		return false, errUnauthorized
	}
	return h.Floors.IsOwner(c.Request().Context(), actor, restaurantID)
}

type itemReq struct {
	Item model.LayoutItem `json:"item"`
}

// AddItem handles POST /api/floorplan/:restaurantId/:floorKey/add-item.
func (h *FloorPlanHandler) AddItem(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	isOwner, err := h.ownership(c, restaurantID)
	if err != nil {
		return accessError(c, err)
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	item, err := h.Floors.AddItem(c.Request().Context(), isOwner, restaurantID, floorKey, req.Item)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": item})
}

// UpdateItem handles POST /api/floorplan/:restaurantId/:floorKey/update-item.
func (h *FloorPlanHandler) UpdateItem(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	isOwner, err := h.ownership(c, restaurantID)
	if err != nil {
		return accessError(c, err)
	}
	var req itemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Item.ID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "item id is required"})
	}
	item, err := h.Floors.UpdateItem(c.Request().Context(), isOwner, restaurantID, floorKey, req.Item)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

// DeleteItem handles DELETE /api/floorplan/:restaurantId/:floorKey/item/:itemId.
func (h *FloorPlanHandler) DeleteItem(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	isOwner, err := h.ownership(c, restaurantID)
	if err != nil {
		return accessError(c, err)
	}
	if err := h.Floors.DeleteItem(c.Request().Context(), isOwner, restaurantID, floorKey, c.Param("itemId")); err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}

type toggleReserveReq struct {
	ItemID        string `json:"itemId"`
	Reserved      bool   `json:"reserved"`
	OwnerReserved bool   `json:"ownerReserved"`
}

// ToggleReserve handles POST /api/floorplan/:restaurantId/:floorKey/toggle-reserve.
func (h *FloorPlanHandler) ToggleReserve(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	isOwner, err := h.ownership(c, restaurantID)
	if err != nil {
		return accessError(c, err)
	}
	var req toggleReserveReq
	if err := c.Bind(&req); err != nil || req.ItemID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "itemId is required"})
	}
	item, err := h.Floors.ToggleReservation(c.Request().Context(), isOwner, restaurantID, floorKey,
		req.ItemID, req.Reserved, req.OwnerReserved)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": item})
}

type saveFloorReq struct {
	FloorName string             `json:"floorName"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Items     []model.LayoutItem `json:"items"`
}

// SaveFloor handles POST /api/floorplan/:restaurantId/:floorKey — the
// wholesale floor save from the dashboard editor.
func (h *FloorPlanHandler) SaveFloor(c echo.Context) error {
	restaurantID := c.Param("restaurantId")
	floorKey := c.Param("floorKey")
	isOwner, err := h.ownership(c, restaurantID)
	if err != nil {
		return accessError(c, err)
	}
	var req saveFloorReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	floor := model.Floor{
		RestaurantID: restaurantID,
		FloorKey:     floorKey,
		FloorName:    req.FloorName,
		Width:        req.Width,
		Height:       req.Height,
		Items:        req.Items,
	}
	saved, err := h.Floors.SaveFloor(c.Request().Context(), isOwner, floor)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, saved)
}
