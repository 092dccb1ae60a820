package editorclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/realtime"
)

// connCloser is the slice of the websocket connection the client holds onto
// after Connect, kept narrow so tests can substitute a pipe.
type connCloser interface {
	Close() error
}

// inboundEnvelope mirrors the server's event envelope with the payload left
// raw so it can be decoded per event name.
type inboundEnvelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// tokenResponse is the body of GET /realtime/token.
type tokenResponse struct {
	Token string   `json:"token"`
	Rooms []string `json:"rooms"`
}

// Connect mints a room token for this restaurant's room, dials the
// websocket and starts the read loop.  Requires an access token; a
// read-only viewer still needs a session to subscribe.  Delivery is
// at-most-once with no replay, so callers should LoadFloor after Connect
// (and after any reconnect) to recover missed events.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.AccessToken == "" {
		return fmt.Errorf("editorclient: connect requires an access token")
	}

	tok, err := c.roomToken(ctx)
	if err != nil {
		return err
	}

	wsURL, err := c.socketURL(tok)
	if err != nil {
		return err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("editorclient: dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

// Close tears down the websocket.  The mirror keeps its last state.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Done is closed when the read loop exits, whether by Close or by the
// server dropping the connection.
func (c *Client) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.done
}

// roomToken exchanges the session for a short-lived signed room token.
func (c *Client) roomToken(ctx context.Context) (string, error) {
	u := fmt.Sprintf("%s/realtime/token?restaurantId=%s",
		c.cfg.BaseURL, url.QueryEscape(c.cfg.RestaurantID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", apiError(resp)
	}
	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", err
	}
	return tr.Token, nil
}

// socketURL rewrites the HTTP base URL into the websocket endpoint.
func (c *Client) socketURL(token string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	u.RawQuery = "token=" + url.QueryEscape(token)
	return u.String(), nil
}

// readLoop consumes envelopes until the connection drops.
func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		conn.Close()
		c.mu.Lock()
		done := c.done
		c.mu.Unlock()
		if done != nil {
			close(done)
		}
	}()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env inboundEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("editorclient: bad envelope: %v", err)
			continue
		}
		c.handleEvent(env)
	}
}

// handleEvent reconciles one server event into the mirror.  The rule is
// always "server wins": an unknown item is created, a known item is
// overwritten in place, and a wholesale save forces a full reload rather
// than a patch.  Events for other floors of the same restaurant are
// filtered out here.
func (c *Client) handleEvent(env inboundEnvelope) {
	switch env.Event {
	case realtime.EventItemAdded, realtime.EventItemUpdated:
		var ev struct {
			FloorKey string           `json:"floor"`
			Item     model.LayoutItem `json:"item"`
		}
		if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.FloorKey != c.cfg.FloorKey {
			return
		}
		c.upsert(ev.Item)

	case realtime.EventItemDeleted:
		var ev struct {
			FloorKey string `json:"floor"`
			ItemID   string `json:"itemId"`
		}
		if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.FloorKey != c.cfg.FloorKey {
			return
		}
		c.mu.Lock()
		delete(c.items, ev.ItemID)
		c.mu.Unlock()
		c.changed()

	case realtime.EventTableReserved:
		var ev struct {
			FloorKey string           `json:"floor"`
			Item     model.LayoutItem `json:"item"`
		}
		if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.FloorKey != c.cfg.FloorKey {
			return
		}
		c.upsert(ev.Item)

	case realtime.EventFloorplanUpdated:
		var ev struct {
			FloorKey string `json:"floor"`
		}
		if err := json.Unmarshal(env.Payload, &ev); err != nil || ev.FloorKey != c.cfg.FloorKey {
			return
		}
		// The event deliberately carries no items; reload authoritative
		// state over HTTP.
		if err := c.LoadFloor(context.Background()); err != nil {
			log.Printf("editorclient: reload after floorplanUpdated: %v", err)
		}

	default:
		// Booking events and anything newer than this client; ignore.
	}
}
