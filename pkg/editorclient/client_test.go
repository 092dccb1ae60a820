package editorclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/realtime"
)

func envelope(t *testing.T, event string, payload interface{}) inboundEnvelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return inboundEnvelope{Event: event, Payload: raw}
}

func testClient(baseURL string, owner bool) *Client {
	return New(Config{
		BaseURL:      baseURL,
		AccessToken:  "tok",
		RestaurantID: "r1",
		FloorKey:     "main",
		IsOwner:      owner,
	})
}

func TestReconcileUnknownItemCreates(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"

	c.handleEvent(envelope(t, realtime.EventItemAdded,
		realtime.ItemEvent{RestaurantID: "r1", FloorKey: "main", Item: it}))

	got, ok := c.Item("t-1")
	if !ok {
		t.Fatal("broadcast item was not created locally")
	}
	if got.Kind != model.KindTable {
		t.Fatalf("kind = %s", got.Kind)
	}
}

func TestReconcileKnownItemOverwrites(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	it.X = 10
	c.upsert(it)

	// A local pending position must lose to the server's broadcast.
	g, err := c.BeginGesture("t-1")
	if err != nil {
		t.Fatalf("BeginGesture: %v", err)
	}
	g.MoveTo(500, 500)

	it.X, it.Y = 42, 24
	it.Version = 3
	c.handleEvent(envelope(t, realtime.EventItemUpdated,
		realtime.ItemEvent{RestaurantID: "r1", FloorKey: "main", Item: it}))

	got, _ := c.Item("t-1")
	if got.X != 42 || got.Y != 24 || got.Version != 3 {
		t.Fatalf("server broadcast did not win: %+v", got)
	}
}

func TestReconcileFiltersOtherFloors(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"

	c.handleEvent(envelope(t, realtime.EventItemAdded,
		realtime.ItemEvent{RestaurantID: "r1", FloorKey: "terrace", Item: it}))

	if _, ok := c.Item("t-1"); ok {
		t.Fatal("event for another floor reached the mirror")
	}
}

func TestReconcileDelete(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	c.upsert(it)

	c.handleEvent(envelope(t, realtime.EventItemDeleted,
		realtime.ItemDeletedEvent{RestaurantID: "r1", FloorKey: "main", ItemID: "t-1"}))

	if _, ok := c.Item("t-1"); ok {
		t.Fatal("deleted item survived reconciliation")
	}
}

func TestReconcileTableReserved(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	c.upsert(it)

	it.State = model.StateHeld
	c.handleEvent(envelope(t, realtime.EventTableReserved, realtime.TableReservedEvent{
		RestaurantID: "r1", FloorKey: "main", ItemID: "t-1",
		IsReserved: true, OwnerReserved: false, Item: it,
	}))

	got, _ := c.Item("t-1")
	if got.State != model.StateHeld {
		t.Fatalf("state = %d, want held", got.State)
	}
}

func TestFloorplanUpdatedForcesReload(t *testing.T) {
	reload := model.DefaultItemByKind(model.KindBooth)
	reload.ID = "fresh"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("reload used %s", r.Method)
		}
		json.NewEncoder(w).Encode(floorPayload{
			FloorName: "Main", Width: 1200, Height: 800,
			Items: []model.LayoutItem{reload},
		})
	}))
	defer srv.Close()

	c := testClient(srv.URL, true)
	stale := model.DefaultItemByKind(model.KindTable)
	stale.ID = "stale"
	c.upsert(stale)

	c.handleEvent(envelope(t, realtime.EventFloorplanUpdated,
		realtime.FloorplanUpdatedEvent{RestaurantID: "r1", FloorKey: "main"}))

	if _, ok := c.Item("stale"); ok {
		t.Fatal("full reload kept a stale local item")
	}
	if _, ok := c.Item("fresh"); !ok {
		t.Fatal("full reload did not adopt server state")
	}
}

func TestLoadFloorMissingIsEmptyCanvas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"floor not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := testClient(srv.URL, false)
	if err := c.LoadFloor(context.Background()); err != nil {
		t.Fatalf("LoadFloor on a missing floor: %v", err)
	}
	if len(c.Items()) != 0 {
		t.Fatal("missing floor produced items")
	}
	_, w, h := c.Canvas()
	if w != model.DefaultFloorWidth || h != model.DefaultFloorHeight {
		t.Fatalf("canvas = %gx%g, want defaults", w, h)
	}
}

func TestGestureEndSendsSingleUpdate(t *testing.T) {
	var updates int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/floorplan/r1/main/update-item" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		updates++
		var body itemEnvelope
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode update body: %v", err)
		}
		if body.Item.X != 300 || body.Item.Y != 200 {
			t.Errorf("committed position = (%g, %g)", body.Item.X, body.Item.Y)
		}
		body.Item.Version++
		json.NewEncoder(w).Encode(body)
	}))
	defer srv.Close()

	c := testClient(srv.URL, true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	it.Version = 1
	c.upsert(it)

	g, err := c.BeginGesture("t-1")
	if err != nil {
		t.Fatalf("BeginGesture: %v", err)
	}
	// A drag is many pointer moves but exactly one request.
	g.MoveTo(100, 100)
	g.MoveTo(200, 150)
	g.MoveTo(300, 200)

	got, err := g.End(context.Background())
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if updates != 1 {
		t.Fatalf("gesture issued %d updates, want 1", updates)
	}
	if got.Version != 2 {
		t.Fatalf("version = %d, want the server's bump", got.Version)
	}
}

func TestGestureEndRollsBackOnRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"version conflict"}`, http.StatusConflict)
	}))
	defer srv.Close()

	c := testClient(srv.URL, true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	it.X = 10
	c.upsert(it)

	g, _ := c.BeginGesture("t-1")
	g.MoveTo(999, 999)
	if _, err := g.End(context.Background()); err == nil {
		t.Fatal("rejected update reported success")
	}

	got, _ := c.Item("t-1")
	if got.X != 10 {
		t.Fatalf("mirror kept the phantom position: x = %g", got.X)
	}
}

func TestGestureCancelRestoresSnapshot(t *testing.T) {
	c := testClient("http://unused", true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	it.Rotation = 45
	c.upsert(it)

	g, _ := c.BeginGesture("t-1")
	g.RotateTo(180)
	g.Cancel()

	got, _ := c.Item("t-1")
	if got.Rotation != 45 {
		t.Fatalf("rotation = %d after cancel, want 45", got.Rotation)
	}
}

func TestEditsGatedOnOwnerFlag(t *testing.T) {
	c := testClient("http://unused", false)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	c.upsert(it)

	if _, err := c.BeginGesture("t-1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("BeginGesture err = %v, want ErrNotOwner", err)
	}
	if _, err := c.DoubleTap(context.Background(), "t-1"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("DoubleTap err = %v, want ErrNotOwner", err)
	}
	if _, err := c.AddItem(context.Background(), model.KindTable, 0, 0); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("AddItem err = %v, want ErrNotOwner", err)
	}
}

func TestDoubleTapTogglesReservation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/floorplan/r1/main/toggle-reserve" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var body struct {
			ItemID        string `json:"itemId"`
			Reserved      bool   `json:"reserved"`
			OwnerReserved bool   `json:"ownerReserved"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode: %v", err)
		}
		if !body.Reserved || body.OwnerReserved {
			t.Errorf("flags = (%v, %v), want (true, false)", body.Reserved, body.OwnerReserved)
		}
		it := model.DefaultItemByKind(model.KindTable)
		it.ID = body.ItemID
		it.State = model.StateHeld
		json.NewEncoder(w).Encode(itemEnvelope{Item: it})
	}))
	defer srv.Close()

	c := testClient(srv.URL, true)
	it := model.DefaultItemByKind(model.KindTable)
	it.ID = "t-1"
	c.upsert(it)

	got, err := c.DoubleTap(context.Background(), "t-1")
	if err != nil {
		t.Fatalf("DoubleTap: %v", err)
	}
	if got.State != model.StateHeld {
		t.Fatalf("state = %d, want held", got.State)
	}
	mirrored, _ := c.Item("t-1")
	if mirrored.State != model.StateHeld {
		t.Fatal("toggle result not folded into the mirror")
	}
}
