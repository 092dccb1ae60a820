package realtime

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 45 * time.Second

	// maxFrameSize bounds inbound frames; join frames carry a JWT, nothing
	// a client sends is larger.
	maxFrameSize = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browsers connect from the separately served frontend, so the Origin
	// header is not restricted here. Authorization comes from the signed
	// room tokens instead.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades clients to a websocket and streams room events to them.
// A socket starts with no room membership (unless the upgrade request
// presents a room token) and joins rooms with joinRestaurant/joinCustomer
// frames, each carrying a signed room token minted by the realtime-token
// endpoint. All mutations still go through the REST API.
type WSHandler struct {
	Hub       *Hub
	JWTSecret string
}

// NewWSHandler constructs a WSHandler.
func NewWSHandler(hub *Hub, secret string) *WSHandler {
	return &WSHandler{Hub: hub, JWTSecret: secret}
}

// clientFrame is the wire shape of a client-to-server message.
type clientFrame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// joinPayload carries the signed room token of a join frame.
type joinPayload struct {
	Token string `json:"token"`
}

// Serve handles GET /ws. An optional ?token=... pre-joins the rooms that
// room token grants; further rooms are joined per-frame. A token that is
// present but unverifiable is rejected before the upgrade.
func (h *WSHandler) Serve(c echo.Context) error {
	var rooms []string
	if token := c.QueryParam("token"); token != "" {
		claims, err := utils.ParseRoomToken(h.JWTSecret, token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
		}
		rooms = claims.Rooms
	}
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		return nil
	}
	sub := h.Hub.Subscribe(rooms)
	go h.writeLoop(conn, sub)
	h.readLoop(conn, sub)
	return nil
}

// readLoop consumes client frames until the socket dies. Join frames grow
// the subscription's room set; anything else is discarded.
func (h *WSHandler) readLoop(conn *websocket.Conn, sub *Subscription) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("realtime: read: %v", err)
			}
			return
		}
		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		switch frame.Event {
		case EventJoinRestaurant, EventJoinCustomer:
			h.join(sub, frame)
		}
	}
}

// join admits the socket to the rooms its token grants, filtered to the
// room kind the frame asked for. Unsigned or mismatched tokens are refused;
// the socket stays connected with its existing membership.
func (h *WSHandler) join(sub *Subscription, frame clientFrame) {
	var req joinPayload
	if err := json.Unmarshal(frame.Payload, &req); err != nil || req.Token == "" {
		log.Printf("realtime: %s without room token refused", frame.Event)
		return
	}
	claims, err := utils.ParseRoomToken(h.JWTSecret, req.Token)
	if err != nil {
		log.Printf("realtime: %s refused: %v", frame.Event, err)
		return
	}
	prefix := restaurantRoomPrefix
	if frame.Event == EventJoinCustomer {
		prefix = customerRoomPrefix
	}
	var rooms []string
	for _, room := range claims.Rooms {
		if strings.HasPrefix(room, prefix) {
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		log.Printf("realtime: %s refused: token grants no such room", frame.Event)
		return
	}
	sub.Join(rooms)
}

// writeLoop pumps subscribed events into the socket and keeps it alive with
// periodic pings. It exits when the subscription closes or a write fails.
func (h *WSHandler) writeLoop(conn *websocket.Conn, sub *Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case data := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
