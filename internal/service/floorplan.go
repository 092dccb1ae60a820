package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/realtime"
	"github.com/quickseat/quickseat/internal/repository"
)

// FloorStore is the persistence surface the floor-plan service needs.
// *repository.FloorRepo satisfies it; tests plug in fakes.
type FloorStore interface {
	GetFloor(ctx context.Context, restaurantID, floorKey string) (model.Floor, bool, error)
	EnsureFloor(ctx context.Context, restaurantID, floorKey string) error
	GetItem(ctx context.Context, restaurantID, floorKey, itemID string) (model.LayoutItem, error)
	InsertItem(ctx context.Context, restaurantID, floorKey string, it model.LayoutItem) error
	UpdateItem(ctx context.Context, restaurantID, floorKey string, it model.LayoutItem) (model.LayoutItem, error)
	DeleteItem(ctx context.Context, restaurantID, floorKey, itemID string) error
	UpdateItemState(ctx context.Context, restaurantID, floorKey, itemID string, state model.ReservationState) (model.LayoutItem, error)
	ReplaceFloor(ctx context.Context, f model.Floor) error
}

// RestaurantStore is the slice of restaurant persistence the services need.
type RestaurantStore interface {
	GetByID(ctx context.Context, id string) (model.Restaurant, error)
}

// FloorPlanService owns the collaborative floor-plan editing rules: who may
// edit, how server-side ids are issued, and which events each mutation
// broadcasts. Every broadcast happens only after the persist succeeded and
// carries the floor key so clients can filter.
type FloorPlanService struct {
	floors      FloorStore
	restaurants RestaurantStore
	broadcast   realtime.Broadcaster
}

// NewFloorPlanService wires the service.
func NewFloorPlanService(floors FloorStore, restaurants RestaurantStore, b realtime.Broadcaster) *FloorPlanService {
	return &FloorPlanService{floors: floors, restaurants: restaurants, broadcast: b}
}

// GetFloor returns a restaurant's floor. A floor that was never saved comes
// back empty with found=false, never as an error; an unknown restaurant is
// ErrNotFound. The HTTP layer turns found=false into a 404 while internal
// callers can keep working with the empty floor.
func (s *FloorPlanService) GetFloor(ctx context.Context, restaurantID, floorKey string) (model.Floor, bool, error) {
	if _, err := s.restaurants.GetByID(ctx, restaurantID); err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return model.Floor{}, false, ErrNotFound
		}
		return model.Floor{}, false, err
	}
	return s.floors.GetFloor(ctx, restaurantID, floorKey)
}

// IsOwner reports whether the actor is the restaurant's owner side: a
// dashboard session for this restaurant, or an OWNER user who manages it.
func (s *FloorPlanService) IsOwner(ctx context.Context, actor Actor, restaurantID string) (bool, error) {
	if actor.RestaurantID != "" {
		return actor.RestaurantID == restaurantID, nil
	}
	if actor.UserID != "" && actor.Role == "OWNER" {
		rest, err := s.restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			if errors.Is(err, repository.ErrRestaurantNotFound) {
				return false, ErrNotFound
			}
			return false, err
		}
		return rest.ManagerUserID == actor.UserID, nil
	}
	return false, nil
}

// requireOwner rejects non-owner mutations. The flag is derived by the
// handler from the authenticated identity; the service trusts it only as a
// claim about that identity, never from the request body.
func requireOwner(isOwner bool) error {
	if !isOwner {
		return ErrForbidden
	}
	return nil
}

// idInsertAttempts bounds how often AddItem regenerates a colliding id
// before giving up.
const idInsertAttempts = 3

// AddItem creates a new layout item on the floor. The client-supplied id is
// only a hint: the server issues a fresh uuid whenever the hint is empty or
// collides. Unset geometry fields are filled from the kind defaults.
func (s *FloorPlanService) AddItem(ctx context.Context, isOwner bool, restaurantID, floorKey string, it model.LayoutItem) (model.LayoutItem, error) {
	if err := requireOwner(isOwner); err != nil {
		return model.LayoutItem{}, err
	}
	normalized, err := normalizeNewItem(it)
	if err != nil {
		return model.LayoutItem{}, err
	}
	if err := s.floors.EnsureFloor(ctx, restaurantID, floorKey); err != nil {
		return model.LayoutItem{}, err
	}
	for attempt := 0; attempt < idInsertAttempts; attempt++ {
		if normalized.ID == "" {
			normalized.ID = uuid.NewString()
		}
		err := s.floors.InsertItem(ctx, restaurantID, floorKey, normalized)
		if err == nil {
			normalized.Version = 1
			s.broadcast.Publish(realtime.RestaurantRoom(restaurantID), realtime.EventItemAdded,
				realtime.ItemEvent{RestaurantID: restaurantID, FloorKey: floorKey, Item: normalized})
			return normalized, nil
		}
		if errors.Is(err, repository.ErrDuplicateID) {
			normalized.ID = "" // hint collided, issue a fresh id
			continue
		}
		return model.LayoutItem{}, err
	}
	return model.LayoutItem{}, fmt.Errorf("%w: could not allocate item id", ErrConflict)
}

// normalizeNewItem validates the kind and fills zero-valued fields from the
// per-kind defaults, keeping whatever the client did set.
func normalizeNewItem(it model.LayoutItem) (model.LayoutItem, error) {
	it.Kind = model.NormalizeKind(it.Kind)
	def := model.DefaultItemByKind(it.Kind)
	if it.Shape == "" {
		it.Shape = def.Shape
	}
	if it.Width <= 0 {
		it.Width = def.Width
	}
	if it.Height <= 0 {
		it.Height = def.Height
	}
	if it.Seats < 0 {
		return it, fmt.Errorf("%w: seats must not be negative", ErrValidation)
	}
	if it.Seats == 0 {
		it.Seats = def.Seats
	}
	if it.Meta == nil {
		it.Meta = map[string]string{}
	}
	if _, ok := it.Meta["label"]; !ok {
		if l := def.Meta["label"]; l != "" {
			it.Meta["label"] = l
		}
	}
	it.Rotation = normalizeRotation(it.Rotation)
	it.State = model.StateFree
	return it, nil
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg
}

// UpdateItem replaces an item's mutable fields wholesale. The version in
// the payload must match the persisted one; otherwise the caller's copy is
// stale and the update is refused with ErrConflict.
func (s *FloorPlanService) UpdateItem(ctx context.Context, isOwner bool, restaurantID, floorKey string, it model.LayoutItem) (model.LayoutItem, error) {
	if err := requireOwner(isOwner); err != nil {
		return model.LayoutItem{}, err
	}
	it.Kind = model.NormalizeKind(it.Kind)
	if it.Width <= 0 || it.Height <= 0 {
		return model.LayoutItem{}, fmt.Errorf("%w: width and height must be positive", ErrValidation)
	}
	if it.Seats < 0 {
		return model.LayoutItem{}, fmt.Errorf("%w: seats must not be negative", ErrValidation)
	}
	it.Rotation = normalizeRotation(it.Rotation)
	updated, err := s.floors.UpdateItem(ctx, restaurantID, floorKey, it)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrItemNotFound):
			return model.LayoutItem{}, ErrNotFound
		case errors.Is(err, repository.ErrConflict):
			return model.LayoutItem{}, ErrConflict
		}
		return model.LayoutItem{}, err
	}
	s.broadcast.Publish(realtime.RestaurantRoom(restaurantID), realtime.EventItemUpdated,
		realtime.ItemEvent{RestaurantID: restaurantID, FloorKey: floorKey, Item: updated})
	return updated, nil
}

// DeleteItem removes an item. Deleting an id that is already gone succeeds
// silently, but only actual deletions broadcast.
func (s *FloorPlanService) DeleteItem(ctx context.Context, isOwner bool, restaurantID, floorKey, itemID string) error {
	if err := requireOwner(isOwner); err != nil {
		return err
	}
	_, err := s.floors.GetItem(ctx, restaurantID, floorKey, itemID)
	if errors.Is(err, repository.ErrItemNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := s.floors.DeleteItem(ctx, restaurantID, floorKey, itemID); err != nil {
		return err
	}
	s.broadcast.Publish(realtime.RestaurantRoom(restaurantID), realtime.EventItemDeleted,
		realtime.ItemDeletedEvent{RestaurantID: restaurantID, FloorKey: floorKey, ItemID: itemID})
	return nil
}

// ToggleReservation sets an item's reservation flags. Only the owner may
// change seating state through the floor plan; customers go through the
// booking flow instead. The broadcast payload mirrors exactly what was
// persisted.
func (s *FloorPlanService) ToggleReservation(ctx context.Context, isOwner bool, restaurantID, floorKey, itemID string, reserved, ownerReserved bool) (model.LayoutItem, error) {
	if err := requireOwner(isOwner); err != nil {
		return model.LayoutItem{}, err
	}
	state := model.StateFromFlags(reserved, ownerReserved)
	updated, err := s.floors.UpdateItemState(ctx, restaurantID, floorKey, itemID, state)
	if err != nil {
		if errors.Is(err, repository.ErrItemNotFound) {
			return model.LayoutItem{}, ErrNotFound
		}
		return model.LayoutItem{}, err
	}
	isReserved, owner := updated.State.Flags()
	s.broadcast.Publish(realtime.RestaurantRoom(restaurantID), realtime.EventTableReserved,
		realtime.TableReservedEvent{
			RestaurantID:  restaurantID,
			FloorKey:      floorKey,
			ItemID:        itemID,
			IsReserved:    isReserved,
			OwnerReserved: owner,
			Item:          updated,
		})
	return updated, nil
}

// SaveFloor replaces the whole floor: canvas metadata and item set. Items
// keep client ids here (the dashboard saves what it loaded), but each gets
// a fresh uuid when the id is missing. The broadcast deliberately carries
// no items; clients reload over HTTP.
func (s *FloorPlanService) SaveFloor(ctx context.Context, isOwner bool, f model.Floor) (model.Floor, error) {
	if err := requireOwner(isOwner); err != nil {
		return model.Floor{}, err
	}
	if f.Width <= 0 {
		f.Width = model.DefaultFloorWidth
	}
	if f.Height <= 0 {
		f.Height = model.DefaultFloorHeight
	}
	seen := make(map[string]struct{}, len(f.Items))
	for i := range f.Items {
		normalized, err := normalizeNewItem(f.Items[i])
		if err != nil {
			return model.Floor{}, err
		}
		// State survives a wholesale save; normalizeNewItem resets it for
		// genuinely new items only.
		normalized.State = f.Items[i].State
		if normalized.ID == "" {
			normalized.ID = uuid.NewString()
		}
		if _, dup := seen[normalized.ID]; dup {
			normalized.ID = uuid.NewString()
		}
		seen[normalized.ID] = struct{}{}
		normalized.Version = 1
		f.Items[i] = normalized
	}
	if err := s.floors.ReplaceFloor(ctx, f); err != nil {
		return model.Floor{}, err
	}
	log.Printf("floorplan: restaurant=%s floor=%s saved %d items", f.RestaurantID, f.FloorKey, len(f.Items))
	s.broadcast.Publish(realtime.RestaurantRoom(f.RestaurantID), realtime.EventFloorplanUpdated,
		realtime.FloorplanUpdatedEvent{RestaurantID: f.RestaurantID, FloorKey: f.FloorKey})
	return f, nil
}
