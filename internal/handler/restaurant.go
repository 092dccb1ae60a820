package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/config"
	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/repository"
	"github.com/quickseat/quickseat/internal/utils"
)

// defaultMaxPartySize applies when a restaurant is registered without an
// explicit limit.
const defaultMaxPartySize = 8

// RestaurantStore is the slice of *repository.RestaurantRepo this handler
// uses; tests plug in fakes.
type RestaurantStore interface {
	Create(ctx context.Context, rest *model.Restaurant) error
	GetByID(ctx context.Context, id string) (model.Restaurant, error)
	GetByLoginID(ctx context.Context, loginID string) (model.Restaurant, error)
	List(ctx context.Context) ([]model.Restaurant, error)
	UpdateProfile(ctx context.Context, rest model.Restaurant) error
}

// MenuItemStore is the slice of *repository.MenuItemRepo this handler uses.
type MenuItemStore interface {
	Create(ctx context.Context, m *model.MenuItem) error
	GetByID(ctx context.Context, id string) (model.MenuItem, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.MenuItem, error)
	Update(ctx context.Context, m model.MenuItem) error
	Delete(ctx context.Context, restaurantID, id string) error
}

// RestaurantHandler exposes restaurant registration, the manager dashboard
// login, public browse endpoints and menu-item CRUD. Restaurant mutations
// require the managing OWNER user or a dashboard session for the same
// restaurant.
type RestaurantHandler struct {
	Cfg         config.Config
	Restaurants RestaurantStore
	Menu        MenuItemStore
	validate    *validator.Validate
}

// NewRestaurantHandler constructs a RestaurantHandler.
func NewRestaurantHandler(cfg config.Config, r RestaurantStore, m MenuItemStore) *RestaurantHandler {
	if r == nil || m == nil {
		panic("nil repository passed to NewRestaurantHandler")
	}
	return &RestaurantHandler{Cfg: cfg, Restaurants: r, Menu: m, validate: validator.New()}
}

type createRestaurantReq struct {
	Name         string `json:"name" validate:"required"`
	Address      string `json:"address"`
	Email        string `json:"email" validate:"required,email"`
	LoginID      string `json:"loginId" validate:"required,min=3"`
	Password     string `json:"password" validate:"required,min=8"`
	TotalTables  int    `json:"totalTables"`
	MaxPartySize int    `json:"maxPartySize"`
}

// Create handles POST /restaurants. The calling OWNER user becomes the
// restaurant's manager.
func (h *RestaurantHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRestaurantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create restaurant failed"})
	}
	maxParty := req.MaxPartySize
	if maxParty <= 0 {
		maxParty = defaultMaxPartySize
	}
	rest := model.Restaurant{
		ID:            uuid.NewString(),
		Name:          strings.TrimSpace(req.Name),
		Address:       strings.TrimSpace(req.Address),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		LoginID:       strings.TrimSpace(req.LoginID),
		PasswordHash:  hash,
		TotalTables:   req.TotalTables,
		MaxPartySize:  maxParty,
		ManagerUserID: userID,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Restaurants.Create(ctx, &rest); err != nil {
		if err == repository.ErrLoginIDExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "login id already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create restaurant failed"})
	}
	return c.JSON(http.StatusCreated, rest)
}

type restaurantLoginReq struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

// Login handles POST /restaurants/login — the manager dashboard login. The
// issued access token carries role RESTAURANT with the restaurant id as
// subject, which is what authorizes approve/reject and floor editing.
func (h *RestaurantHandler) Login(c echo.Context) error {
	var req restaurantLoginReq
	if err := c.Bind(&req); err != nil || req.LoginID == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "loginId/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	rest, err := h.Restaurants.GetByLoginID(ctx, strings.TrimSpace(req.LoginID))
	if err != nil {
		if err == repository.ErrRestaurantNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(rest.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, rest.ID, "RESTAURANT", h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue access failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"restaurant": rest,
		"access":     tokenPart{Token: access.Token, Expires: access.Exp},
	})
}

// List handles GET /restaurants — the public browse page.
func (h *RestaurantHandler) List(c echo.Context) error {
	out, err := h.Restaurants.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"restaurants": out})
}

// Get handles GET /restaurants/:id.
func (h *RestaurantHandler) Get(c echo.Context) error {
	rest, err := h.Restaurants.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if err == repository.ErrRestaurantNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, rest)
}

// requireRestaurantAccess checks that the actor manages the restaurant:
// either a dashboard session for it or its managing OWNER user. It writes
// nothing; callers map a non-nil error through restaurantAccessError and
// return before touching any state.
func (h *RestaurantHandler) requireRestaurantAccess(c echo.Context, restaurantID string) (model.Restaurant, error) {
	rest, err := h.Restaurants.GetByID(c.Request().Context(), restaurantID)
	if err != nil {
		return rest, err
	}
	actor, err := getActor(c)
	if err != nil {
		return rest, errUnauthorized
	}
	if actor.RestaurantID == restaurantID {
		return rest, nil
	}
	if actor.UserID != "" && actor.Role == "OWNER" && rest.ManagerUserID == actor.UserID {
		return rest, nil
	}
	return rest, errForbidden
}

// restaurantAccessError maps a failed requireRestaurantAccess onto its HTTP
// response.
func restaurantAccessError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrRestaurantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
	case errors.Is(err, errUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, errForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
}

type updateRestaurantReq struct {
	Name         string `json:"name"`
	Address      string `json:"address"`
	Email        string `json:"email" validate:"omitempty,email"`
	TotalTables  int    `json:"totalTables"`
	MaxPartySize int    `json:"maxPartySize"`
}

// Update handles PATCH /restaurants/:id.
func (h *RestaurantHandler) Update(c echo.Context) error {
	rest, err := h.requireRestaurantAccess(c, c.Param("id"))
	if err != nil {
		return restaurantAccessError(c, err)
	}
	var req updateRestaurantReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.Name != "" {
		rest.Name = strings.TrimSpace(req.Name)
	}
	if req.Address != "" {
		rest.Address = strings.TrimSpace(req.Address)
	}
	if req.Email != "" {
		rest.Email = strings.ToLower(strings.TrimSpace(req.Email))
	}
	if req.TotalTables > 0 {
		rest.TotalTables = req.TotalTables
	}
	if req.MaxPartySize > 0 {
		rest.MaxPartySize = req.MaxPartySize
	}
	if err := h.Restaurants.UpdateProfile(c.Request().Context(), rest); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, rest)
}

// ----- menu items -----

type menuItemReq struct {
	Name        string `json:"name" validate:"required"`
	PriceCents  uint32 `json:"priceCents" validate:"required"`
	Category    string `json:"category"`
	IsAvailable *bool  `json:"isAvailable"`
}

// ListMenu handles GET /restaurants/:id/menu — public, so customers can
// pre-order while booking.
func (h *RestaurantHandler) ListMenu(c echo.Context) error {
	restaurantID := c.Param("id")
	if _, err := h.Restaurants.GetByID(c.Request().Context(), restaurantID); err != nil {
		if err == repository.ErrRestaurantNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "restaurant not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	items, err := h.Menu.ListByRestaurant(c.Request().Context(), restaurantID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"menuItems": items})
}

// CreateMenuItem handles POST /restaurants/:id/menu.
func (h *RestaurantHandler) CreateMenuItem(c echo.Context) error {
	restaurantID := c.Param("id")
	if _, err := h.requireRestaurantAccess(c, restaurantID); err != nil {
		return restaurantAccessError(c, err)
	}
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.validate.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	item := model.MenuItem{
		ID:           uuid.NewString(),
		RestaurantID: restaurantID,
		Name:         strings.TrimSpace(req.Name),
		PriceCents:   req.PriceCents,
		Category:     strings.TrimSpace(req.Category),
		IsAvailable:  available,
	}
	if err := h.Menu.Create(c.Request().Context(), &item); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create menu item failed"})
	}
	return c.JSON(http.StatusCreated, item)
}

// UpdateMenuItem handles PATCH /restaurants/:id/menu/:itemId.
func (h *RestaurantHandler) UpdateMenuItem(c echo.Context) error {
	restaurantID := c.Param("id")
	if _, err := h.requireRestaurantAccess(c, restaurantID); err != nil {
		return restaurantAccessError(c, err)
	}
	item, err := h.Menu.GetByID(c.Request().Context(), c.Param("itemId"))
	if err != nil || item.RestaurantID != restaurantID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "menu item not found"})
	}
	var req menuItemReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if req.Name != "" {
		item.Name = strings.TrimSpace(req.Name)
	}
	if req.PriceCents > 0 {
		item.PriceCents = req.PriceCents
	}
	if req.Category != "" {
		item.Category = strings.TrimSpace(req.Category)
	}
	if req.IsAvailable != nil {
		item.IsAvailable = *req.IsAvailable
	}
	if err := h.Menu.Update(c.Request().Context(), item); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update menu item failed"})
	}
	return c.JSON(http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /restaurants/:id/menu/:itemId.
func (h *RestaurantHandler) DeleteMenuItem(c echo.Context) error {
	restaurantID := c.Param("id")
	if _, err := h.requireRestaurantAccess(c, restaurantID); err != nil {
		return restaurantAccessError(c, err)
	}
	if err := h.Menu.Delete(c.Request().Context(), restaurantID, c.Param("itemId")); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete menu item failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}
