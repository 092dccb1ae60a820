package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/quickseat/quickseat/internal/config"
	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/repository"
)

// fakeRestaurantStore implements RestaurantStore with per-method hooks and
// counts profile updates so tests can assert a denied mutation never ran.
type fakeRestaurantStore struct {
	getByID func(ctx context.Context, id string) (model.Restaurant, error)
	updates int
}

func (f *fakeRestaurantStore) Create(ctx context.Context, rest *model.Restaurant) error { return nil }
func (f *fakeRestaurantStore) GetByID(ctx context.Context, id string) (model.Restaurant, error) {
	return f.getByID(ctx, id)
}
func (f *fakeRestaurantStore) GetByLoginID(ctx context.Context, loginID string) (model.Restaurant, error) {
	return model.Restaurant{}, repository.ErrRestaurantNotFound
}
func (f *fakeRestaurantStore) List(ctx context.Context) ([]model.Restaurant, error) {
	return nil, nil
}
func (f *fakeRestaurantStore) UpdateProfile(ctx context.Context, rest model.Restaurant) error {
	f.updates++
	return nil
}

// fakeMenuStore implements MenuItemStore and counts every mutation.
type fakeMenuStore struct {
	created, updated, deleted int
}

func (f *fakeMenuStore) Create(ctx context.Context, m *model.MenuItem) error {
	f.created++
	return nil
}
func (f *fakeMenuStore) GetByID(ctx context.Context, id string) (model.MenuItem, error) {
	return model.MenuItem{ID: id, RestaurantID: "r1", Name: "Soup"}, nil
}
func (f *fakeMenuStore) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.MenuItem, error) {
	return nil, nil
}
func (f *fakeMenuStore) Update(ctx context.Context, m model.MenuItem) error {
	f.updated++
	return nil
}
func (f *fakeMenuStore) Delete(ctx context.Context, restaurantID, id string) error {
	f.deleted++
	return nil
}

func managedRestaurant(id, managerID string) *fakeRestaurantStore {
	return &fakeRestaurantStore{getByID: func(ctx context.Context, got string) (model.Restaurant, error) {
		if got != id {
			return model.Restaurant{}, repository.ErrRestaurantNotFound
		}
		return model.Restaurant{ID: id, Name: "Spice Hut", ManagerUserID: managerID, MaxPartySize: 8}, nil
	}}
}

// decodeSingleJSON fails when the body holds more than one JSON document,
// which is what a handler continuing past an already-written error response
// produces.
func decodeSingleJSON(t *testing.T, body string) map[string]interface{} {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(body))
	var doc map[string]interface{}
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("decode response body %q: %v", body, err)
	}
	if dec.More() {
		t.Fatalf("response carries more than one JSON document: %q", body)
	}
	return doc
}

func jsonContext(e *echo.Echo, method, body string, rec *httptest.ResponseRecorder) echo.Context {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return e.NewContext(req, rec)
}

func TestRestaurantUpdateForbiddenForNonManager(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	h := NewRestaurantHandler(config.Config{}, store, &fakeMenuStore{})
	e := echo.New()

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPatch, `{"name":"Hacked Name"}`, rec)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	c.Set("user_id", "intruder")
	c.Set("role", "OWNER")

	if err := h.Update(c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	doc := decodeSingleJSON(t, rec.Body.String())
	if doc["error"] != "forbidden" {
		t.Fatalf("body = %v", doc)
	}
	if store.updates != 0 {
		t.Fatal("forbidden update reached the store")
	}
}

func TestRestaurantUpdateRequiresAuthentication(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	h := NewRestaurantHandler(config.Config{}, store, &fakeMenuStore{})
	e := echo.New()

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPatch, `{"name":"New Name"}`, rec)
	c.SetParamNames("id")
	c.SetParamValues("r1")

	if err := h.Update(c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	decodeSingleJSON(t, rec.Body.String())
	if store.updates != 0 {
		t.Fatal("unauthenticated update reached the store")
	}
}

func TestRestaurantUpdateUnknownRestaurant(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	h := NewRestaurantHandler(config.Config{}, store, &fakeMenuStore{})
	e := echo.New()

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPatch, `{"name":"New Name"}`, rec)
	c.SetParamNames("id")
	c.SetParamValues("ghost")
	c.Set("user_id", "owner-1")
	c.Set("role", "OWNER")

	if err := h.Update(c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if store.updates != 0 {
		t.Fatal("update of a missing restaurant reached the store")
	}
}

func TestRestaurantUpdateByManagingOwner(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	h := NewRestaurantHandler(config.Config{}, store, &fakeMenuStore{})
	e := echo.New()

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPatch, `{"name":"New Name"}`, rec)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	c.Set("user_id", "owner-1")
	c.Set("role", "OWNER")

	if err := h.Update(c); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if store.updates != 1 {
		t.Fatalf("store saw %d updates, want 1", store.updates)
	}
	doc := decodeSingleJSON(t, rec.Body.String())
	if doc["name"] != "New Name" {
		t.Fatalf("updated name = %v", doc["name"])
	}
}

func TestMenuMutationsForbiddenForOtherDashboard(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	menu := &fakeMenuStore{}
	h := NewRestaurantHandler(config.Config{}, store, menu)
	e := echo.New()

	// A dashboard session for a different restaurant.
	run := func(name string, invoke func(echo.Context) error, method, body string, params, values []string) {
		rec := httptest.NewRecorder()
		c := jsonContext(e, method, body, rec)
		c.SetParamNames(params...)
		c.SetParamValues(values...)
		c.Set("user_id", "r2")
		c.Set("role", "RESTAURANT")
		if err := invoke(c); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s status = %d, want 403", name, rec.Code)
		}
		doc := decodeSingleJSON(t, rec.Body.String())
		if doc["error"] != "forbidden" {
			t.Fatalf("%s body = %v", name, doc)
		}
	}

	run("CreateMenuItem", h.CreateMenuItem, http.MethodPost,
		`{"name":"Soup","priceCents":500}`, []string{"id"}, []string{"r1"})
	run("UpdateMenuItem", h.UpdateMenuItem, http.MethodPatch,
		`{"name":"Stew"}`, []string{"id", "itemId"}, []string{"r1", "m1"})
	run("DeleteMenuItem", h.DeleteMenuItem, http.MethodDelete,
		"", []string{"id", "itemId"}, []string{"r1", "m1"})

	if menu.created != 0 || menu.updated != 0 || menu.deleted != 0 {
		t.Fatalf("forbidden menu mutations reached the store: %+v", menu)
	}
}

func TestCreateMenuItemByDashboardSession(t *testing.T) {
	store := managedRestaurant("r1", "owner-1")
	menu := &fakeMenuStore{}
	h := NewRestaurantHandler(config.Config{}, store, menu)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := jsonContext(e, http.MethodPost, `{"name":"Soup","priceCents":500}`, rec)
	c.SetParamNames("id")
	c.SetParamValues("r1")
	c.Set("user_id", "r1")
	c.Set("role", "RESTAURANT")

	if err := h.CreateMenuItem(c); err != nil {
		t.Fatalf("CreateMenuItem: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if menu.created != 1 {
		t.Fatalf("store saw %d creates, want 1", menu.created)
	}
}
