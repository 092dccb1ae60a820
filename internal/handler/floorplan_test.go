package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/realtime"
	"github.com/quickseat/quickseat/internal/service"
)

// fakeFloorStore implements service.FloorStore as an inert store that
// counts mutations, so tests can assert a denied request never persisted.
type fakeFloorStore struct {
	inserts, updates, deletes, replaces int
}

func (f *fakeFloorStore) GetFloor(ctx context.Context, r, k string) (model.Floor, bool, error) {
	return model.Floor{RestaurantID: r, FloorKey: k}, true, nil
}
func (f *fakeFloorStore) EnsureFloor(ctx context.Context, r, k string) error { return nil }
func (f *fakeFloorStore) GetItem(ctx context.Context, r, k, id string) (model.LayoutItem, error) {
	return model.LayoutItem{ID: id}, nil
}
func (f *fakeFloorStore) InsertItem(ctx context.Context, r, k string, it model.LayoutItem) error {
	f.inserts++
	return nil
}
func (f *fakeFloorStore) UpdateItem(ctx context.Context, r, k string, it model.LayoutItem) (model.LayoutItem, error) {
	f.updates++
	return it, nil
}
func (f *fakeFloorStore) DeleteItem(ctx context.Context, r, k, id string) error {
	f.deletes++
	return nil
}
func (f *fakeFloorStore) UpdateItemState(ctx context.Context, r, k, id string, st model.ReservationState) (model.LayoutItem, error) {
	return model.LayoutItem{ID: id, State: st}, nil
}
func (f *fakeFloorStore) ReplaceFloor(ctx context.Context, fl model.Floor) error {
	f.replaces++
	return nil
}

func newFloorPlanFixture() (*FloorPlanHandler, *fakeFloorStore) {
	floors := &fakeFloorStore{}
	svc := service.NewFloorPlanService(floors, managedRestaurant("r1", "owner-1"), &realtime.NopBroadcaster{})
	return NewFloorPlanHandler(svc), floors
}

func floorplanContext(e *echo.Echo, method, body string, rec *httptest.ResponseRecorder) echo.Context {
	c := jsonContext(e, method, body, rec)
	c.SetParamNames("restaurantId", "floorKey")
	c.SetParamValues("r1", "main")
	return c
}

func TestAddItemUnauthenticatedWritesOneResponse(t *testing.T) {
	h, floors := newFloorPlanFixture()
	e := echo.New()

	rec := httptest.NewRecorder()
	c := floorplanContext(e, http.MethodPost, `{"item":{"kind":"table"}}`, rec)

	if err := h.AddItem(c); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	doc := decodeSingleJSON(t, rec.Body.String())
	if doc["error"] != "unauthorized" {
		t.Fatalf("body = %v", doc)
	}
	if floors.inserts != 0 {
		t.Fatal("unauthenticated add reached the store")
	}
}

func TestAddItemForbiddenCustomerWritesOneResponse(t *testing.T) {
	h, floors := newFloorPlanFixture()
	e := echo.New()

	rec := httptest.NewRecorder()
	c := floorplanContext(e, http.MethodPost, `{"item":{"kind":"table"}}`, rec)
	c.Set("user_id", "cust-1")
	c.Set("role", "CUSTOMER")

	if err := h.AddItem(c); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	doc := decodeSingleJSON(t, rec.Body.String())
	if doc["error"] != "forbidden" {
		t.Fatalf("body = %v", doc)
	}
	if floors.inserts != 0 {
		t.Fatal("forbidden add reached the store")
	}
}

func TestSaveFloorUnauthenticatedWritesOneResponse(t *testing.T) {
	h, floors := newFloorPlanFixture()
	e := echo.New()

	rec := httptest.NewRecorder()
	c := floorplanContext(e, http.MethodPost, `{"floorName":"Main","items":[]}`, rec)

	if err := h.SaveFloor(c); err != nil {
		t.Fatalf("SaveFloor: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	decodeSingleJSON(t, rec.Body.String())
	if floors.replaces != 0 {
		t.Fatal("unauthenticated save reached the store")
	}
}
