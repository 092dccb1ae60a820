// Package editorclient is the Go runtime behind the floor-plan editor: a
// local mirror of one floor's items, the HTTP mutation calls a canvas
// surface needs, and a websocket feed that reconciles the mirror against
// server broadcasts.  The mirror is never authoritative — whatever the
// server last broadcast wins, and a pending local edit is only trusted once
// the server echoes it back.
package editorclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/quickseat/quickseat/internal/model"
)

// ErrNotOwner is returned by mutations gated on the owner flag.  The server
// re-validates ownership on every call; this is only the client-side gate
// that keeps a viewer's UI from offering edits it cannot perform.
var ErrNotOwner = errors.New("editorclient: not the restaurant owner")

// ErrItemNotFound is returned when a gesture or tap references an item id
// that is not in the local mirror.
var ErrItemNotFound = errors.New("editorclient: item not in local mirror")

// Config carries everything the client needs to talk to one floor.
type Config struct {
	BaseURL      string // e.g. "http://localhost:8080"
	AccessToken  string // bearer token; empty for a read-only viewer
	RestaurantID string
	FloorKey     string
	IsOwner      bool         // enables edit gestures; server re-checks
	HTTPClient   *http.Client // defaults to http.DefaultClient
}

// Client mirrors one floor and applies edits through the HTTP surface.
// All exported methods are safe for concurrent use; the websocket read loop
// mutates the mirror under the same lock the accessors take.
type Client struct {
	cfg  Config
	http *http.Client

	mu        sync.RWMutex
	floorName string
	width     float64
	height    float64
	items     map[string]model.LayoutItem
	loaded    bool

	conn connCloser
	done chan struct{}

	// OnChange, when set before Connect, is called after every mirror
	// mutation caused by a server event.  Redraw hook; must not block.
	OnChange func()
}

// New builds a client for one restaurant floor.  Call LoadFloor to populate
// the mirror and Connect to start receiving broadcasts.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		cfg:   cfg,
		http:  hc,
		items: map[string]model.LayoutItem{},
	}
}

// floorURL returns the base URL of this floor's HTTP surface.
func (c *Client) floorURL() string {
	return fmt.Sprintf("%s/api/floorplan/%s/%s",
		c.cfg.BaseURL, url.PathEscape(c.cfg.RestaurantID), url.PathEscape(c.cfg.FloorKey))
}

// floorPayload is the GET response and full-save request body.
type floorPayload struct {
	FloorName string             `json:"floorName"`
	Width     float64            `json:"width"`
	Height    float64            `json:"height"`
	Items     []model.LayoutItem `json:"items"`
}

// LoadFloor fetches the floor over HTTP and replaces the mirror wholesale.
// A 404 means the floor has never been saved: the mirror becomes an empty
// canvas with default dimensions rather than an error.
func (c *Client) LoadFloor(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.floorURL(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.reset(floorPayload{Width: model.DefaultFloorWidth, Height: model.DefaultFloorHeight})
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	var fp floorPayload
	if err := json.NewDecoder(resp.Body).Decode(&fp); err != nil {
		return err
	}
	c.reset(fp)
	return nil
}

// reset replaces the whole mirror from a floor payload.
func (c *Client) reset(fp floorPayload) {
	c.mu.Lock()
	c.floorName = fp.FloorName
	c.width = fp.Width
	c.height = fp.Height
	c.items = make(map[string]model.LayoutItem, len(fp.Items))
	for _, it := range fp.Items {
		c.items[it.ID] = it
	}
	c.loaded = true
	c.mu.Unlock()
	c.changed()
}

// changed invokes the redraw hook when one is installed.
func (c *Client) changed() {
	if c.OnChange != nil {
		c.OnChange()
	}
}

// Items returns a snapshot copy of the mirrored items.
func (c *Client) Items() []model.LayoutItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]model.LayoutItem, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	return out
}

// Item returns one mirrored item by id.
func (c *Client) Item(id string) (model.LayoutItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	it, ok := c.items[id]
	return it, ok
}

// Canvas returns the floor name and canvas dimensions from the last load.
func (c *Client) Canvas() (name string, width, height float64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.floorName, c.width, c.height
}

// itemEnvelope wraps the single-item request and response bodies.
type itemEnvelope struct {
	Item model.LayoutItem `json:"item"`
}

// AddItem places a new item of the given kind at (x, y) with the per-kind
// default geometry.  The server assigns the id; the returned item, already
// folded into the mirror, carries it.
func (c *Client) AddItem(ctx context.Context, kind model.ItemKind, x, y float64) (model.LayoutItem, error) {
	if !c.cfg.IsOwner {
		return model.LayoutItem{}, ErrNotOwner
	}
	it := model.DefaultItemByKind(kind)
	it.X, it.Y = x, y

	var out itemEnvelope
	if err := c.post(ctx, c.floorURL()+"/add-item", itemEnvelope{Item: it}, &out); err != nil {
		return model.LayoutItem{}, err
	}
	c.upsert(out.Item)
	return out.Item, nil
}

// DeleteItem removes an item.  Deleting an id the server no longer has is
// still a success; the mirror entry is dropped either way.
func (c *Client) DeleteItem(ctx context.Context, itemID string) error {
	if !c.cfg.IsOwner {
		return ErrNotOwner
	}
	u := c.floorURL() + "/item/" + url.PathEscape(itemID)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return err
	}
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	c.mu.Lock()
	delete(c.items, itemID)
	c.mu.Unlock()
	c.changed()
	return nil
}

// DoubleTap toggles the reservation highlight on a table.  A free or
// owner-locked item becomes plainly held/free respectively; the stricter
// owner lock is set through OwnerLock, not by tapping.
func (c *Client) DoubleTap(ctx context.Context, itemID string) (model.LayoutItem, error) {
	if !c.cfg.IsOwner {
		return model.LayoutItem{}, ErrNotOwner
	}
	it, ok := c.Item(itemID)
	if !ok {
		return model.LayoutItem{}, ErrItemNotFound
	}
	return c.toggle(ctx, itemID, !it.State.Reserved(), false)
}

// OwnerLock sets or clears the owner-reserved override on a table.
func (c *Client) OwnerLock(ctx context.Context, itemID string, locked bool) (model.LayoutItem, error) {
	if !c.cfg.IsOwner {
		return model.LayoutItem{}, ErrNotOwner
	}
	if _, ok := c.Item(itemID); !ok {
		return model.LayoutItem{}, ErrItemNotFound
	}
	return c.toggle(ctx, itemID, locked, locked)
}

// toggle posts the reservation flag pair and folds the result back in.
func (c *Client) toggle(ctx context.Context, itemID string, reserved, ownerReserved bool) (model.LayoutItem, error) {
	body := struct {
		ItemID        string `json:"itemId"`
		Reserved      bool   `json:"reserved"`
		OwnerReserved bool   `json:"ownerReserved"`
	}{itemID, reserved, ownerReserved}

	var out itemEnvelope
	if err := c.post(ctx, c.floorURL()+"/toggle-reserve", body, &out); err != nil {
		return model.LayoutItem{}, err
	}
	c.upsert(out.Item)
	return out.Item, nil
}

// SaveFloor persists the canvas metadata plus the mirror's full item set in
// one wholesale write.  Peers receive a floorplanUpdated event and reload.
func (c *Client) SaveFloor(ctx context.Context, floorName string, width, height float64) error {
	if !c.cfg.IsOwner {
		return ErrNotOwner
	}
	fp := floorPayload{FloorName: floorName, Width: width, Height: height, Items: c.Items()}
	if err := c.post(ctx, c.floorURL(), fp, nil); err != nil {
		return err
	}
	c.mu.Lock()
	c.floorName = floorName
	c.width = width
	c.height = height
	c.mu.Unlock()
	return nil
}

// Gesture is an in-progress drag, resize or rotate on one item.  Moves are
// applied to the local mirror only so the canvas follows the pointer;
// nothing reaches the server until End.
type Gesture struct {
	c        *Client
	itemID   string
	original model.LayoutItem
	ended    bool
}

// BeginGesture snapshots an item and starts a gesture on it.
func (c *Client) BeginGesture(itemID string) (*Gesture, error) {
	if !c.cfg.IsOwner {
		return nil, ErrNotOwner
	}
	it, ok := c.Item(itemID)
	if !ok {
		return nil, ErrItemNotFound
	}
	return &Gesture{c: c, itemID: itemID, original: it}, nil
}

// apply mutates the gesture's item in the mirror.  A broadcast may have
// deleted the item mid-gesture; the mutation is silently dropped then.
func (g *Gesture) apply(fn func(*model.LayoutItem)) {
	g.c.mu.Lock()
	if it, ok := g.c.items[g.itemID]; ok {
		fn(&it)
		g.c.items[g.itemID] = it
	}
	g.c.mu.Unlock()
	g.c.changed()
}

// MoveTo drags the item to a new position.
func (g *Gesture) MoveTo(x, y float64) {
	g.apply(func(it *model.LayoutItem) { it.X, it.Y = x, y })
}

// ResizeTo sets the item's width and height.
func (g *Gesture) ResizeTo(width, height float64) {
	g.apply(func(it *model.LayoutItem) { it.Width, it.Height = width, height })
}

// RotateTo sets the item's rotation, normalised into 0-359.
func (g *Gesture) RotateTo(degrees int) {
	d := degrees % 360
	if d < 0 {
		d += 360
	}
	g.apply(func(it *model.LayoutItem) { it.Rotation = d })
}

// End commits the gesture: one updateItem call carrying the item's current
// mirror state.  Called on pointer-up, never per pointer-move, so a long
// drag costs a single request.
func (g *Gesture) End(ctx context.Context) (model.LayoutItem, error) {
	if g.ended {
		return model.LayoutItem{}, errors.New("editorclient: gesture already ended")
	}
	g.ended = true
	it, ok := g.c.Item(g.itemID)
	if !ok {
		// Deleted out from under us by a broadcast; nothing to commit.
		return model.LayoutItem{}, ErrItemNotFound
	}
	var out itemEnvelope
	if err := g.c.post(ctx, g.c.floorURL()+"/update-item", itemEnvelope{Item: it}, &out); err != nil {
		// The server refused; roll the mirror back to the pre-gesture
		// snapshot so the canvas does not show a phantom position.
		g.c.upsert(g.original)
		return model.LayoutItem{}, err
	}
	g.c.upsert(out.Item)
	return out.Item, nil
}

// Cancel abandons the gesture and restores the pre-gesture snapshot.
func (g *Gesture) Cancel() {
	if g.ended {
		return
	}
	g.ended = true
	g.c.upsert(g.original)
}

// upsert folds one item into the mirror and fires the redraw hook.
func (c *Client) upsert(it model.LayoutItem) {
	c.mu.Lock()
	c.items[it.ID] = it
	c.mu.Unlock()
	c.changed()
}

// post sends a JSON body and decodes a JSON response when out is non-nil.
func (c *Client) post(ctx context.Context, u string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return apiError(resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// authorize attaches the bearer token when the client has one.
func (c *Client) authorize(req *http.Request) {
	if c.cfg.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	}
}

// apiError turns an error response into a Go error carrying the server's
// message, which the API sends as {"error": "..."}.
func apiError(resp *http.Response) error {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error != "" {
		return fmt.Errorf("editorclient: %s (%d)", body.Error, resp.StatusCode)
	}
	return fmt.Errorf("editorclient: unexpected status %d", resp.StatusCode)
}
