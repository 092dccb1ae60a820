package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/config"
	"github.com/quickseat/quickseat/internal/realtime"
	"github.com/quickseat/quickseat/internal/utils"
)

// roomTokenTTL bounds how long a minted room token can be used to open a
// socket. Established connections are not cut when it lapses.
const roomTokenTTL = 5 * time.Minute

// RealtimeTokenHandler mints the signed room tokens the websocket endpoint
// requires. Joining rooms is authorization-gated here, at an authenticated
// HTTP endpoint, so the socket itself only has to verify a signature.
type RealtimeTokenHandler struct {
	Cfg config.Config
}

// NewRealtimeTokenHandler constructs a RealtimeTokenHandler.
func NewRealtimeTokenHandler(cfg config.Config) *RealtimeTokenHandler {
	return &RealtimeTokenHandler{Cfg: cfg}
}

// Token handles GET /realtime/token?restaurantId=... The caller always gets
// its own private room; watching a restaurant room is open to any
// authenticated identity, since the floor plan itself is public.
func (h *RealtimeTokenHandler) Token(c echo.Context) error {
	sub, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	var rooms []string
	switch role {
	case "RESTAURANT":
		// Dashboard session: the subject is the restaurant id.
		rooms = append(rooms, realtime.RestaurantRoom(sub))
	default:
		rooms = append(rooms, realtime.CustomerRoom(sub))
	}
	if rid := c.QueryParam("restaurantId"); rid != "" {
		room := realtime.RestaurantRoom(rid)
		if len(rooms) == 0 || rooms[0] != room {
			rooms = append(rooms, room)
		}
	}

	token, err := utils.NewRoomToken(h.Cfg.JWTSecret, sub, rooms, roomTokenTTL)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "issue token failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"token":   token,
		"rooms":   rooms,
		"expires": time.Now().UTC().Add(roomTokenTTL),
	})
}
