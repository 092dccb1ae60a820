package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/queue"
	"github.com/quickseat/quickseat/internal/realtime"
	"github.com/quickseat/quickseat/internal/repository"
)

// ReservationStore is the persistence surface the booking service needs.
type ReservationStore interface {
	Create(ctx context.Context, res *model.Reservation) error
	GetByID(ctx context.Context, id string) (model.Reservation, error)
	UpdateStatusFrom(ctx context.Context, id string, from, to model.ReservationStatus) error
	ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Reservation, error)
}

// UserStore is the slice of user persistence the booking service needs.
type UserStore interface {
	GetByID(ctx context.Context, id string) (model.User, error)
	GetOrCreateGuest(ctx context.Context, email, fullName, phone string) (model.User, error)
}

// MenuStore validates and resolves pre-ordered menu items.
type MenuStore interface {
	CountForRestaurant(ctx context.Context, restaurantID string, ids []string) (int, error)
	ListByRestaurant(ctx context.Context, restaurantID string) ([]model.MenuItem, error)
}

// Notifier dispatches a booking notification to the message broker. The
// queue package provides the production implementation; tests record calls.
type Notifier interface {
	Notify(ctx context.Context, ev queue.BookingNotification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, ev queue.BookingNotification) error

func (f NotifierFunc) Notify(ctx context.Context, ev queue.BookingNotification) error {
	return f(ctx, ev)
}

// Actor identifies who is performing a booking operation. Exactly one of
// the two id fields is set: UserID for customer/owner sessions,
// RestaurantID for dashboard sessions authenticated via restaurant login.
type Actor struct {
	UserID       string
	RestaurantID string
	Role         string
}

// BookingService owns the reservation lifecycle: creation, the status
// transition table, actor authorization, and the best-effort notification
// and broadcast side effects.
type BookingService struct {
	reservations ReservationStore
	restaurants  RestaurantStore
	users        UserStore
	menu         MenuStore
	notifier     Notifier
	broadcast    realtime.Broadcaster
}

// NewBookingService wires the service.
func NewBookingService(res ReservationStore, rest RestaurantStore, users UserStore, menu MenuStore, n Notifier, b realtime.Broadcaster) *BookingService {
	return &BookingService{reservations: res, restaurants: rest, users: users, menu: menu, notifier: n, broadcast: b}
}

// CreateRequest carries a booking creation payload after handler-level
// decoding. CustomerID is set for authenticated customers; GuestEmail (plus
// optional name/phone) for guest bookings.
type CreateRequest struct {
	RestaurantID string
	CustomerID   string
	GuestEmail   string
	GuestName    string
	GuestPhone   string
	DateTime     time.Time
	PartySize    int
	Notes        string
	MenuItemIDs  []string
}

// BookingResult is a reservation plus whether the notification side effect
// succeeded. Notified is informational only; the core operation has already
// committed by the time it is computed.
type BookingResult struct {
	Reservation model.Reservation
	Notified    bool
}

// Create validates and persists a new pending reservation, then fires the
// best-effort side effects: a broker notification for the restaurant and a
// newBooking broadcast to the restaurant room.
func (s *BookingService) Create(ctx context.Context, req CreateRequest) (BookingResult, error) {
	rest, err := s.restaurants.GetByID(ctx, req.RestaurantID)
	if err != nil {
		if errors.Is(err, repository.ErrRestaurantNotFound) {
			return BookingResult{}, ErrNotFound
		}
		return BookingResult{}, err
	}
	if req.DateTime.IsZero() {
		return BookingResult{}, fmt.Errorf("%w: dateTime is required", ErrValidation)
	}
	if req.PartySize < 1 {
		return BookingResult{}, fmt.Errorf("%w: partySize must be at least 1", ErrValidation)
	}
	if rest.MaxPartySize > 0 && req.PartySize > rest.MaxPartySize {
		return BookingResult{}, fmt.Errorf("%w: partySize exceeds the restaurant limit of %d", ErrValidation, rest.MaxPartySize)
	}

	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		return BookingResult{}, err
	}

	if len(req.MenuItemIDs) > 0 {
		n, err := s.menu.CountForRestaurant(ctx, req.RestaurantID, req.MenuItemIDs)
		if err != nil {
			return BookingResult{}, err
		}
		if n != len(req.MenuItemIDs) {
			return BookingResult{}, fmt.Errorf("%w: unknown or unavailable menu items", ErrValidation)
		}
	}

	res := model.Reservation{
		ID:           uuid.NewString(),
		RestaurantID: req.RestaurantID,
		CustomerID:   customer.ID,
		DateTime:     req.DateTime.UTC(),
		PartySize:    req.PartySize,
		Notes:        req.Notes,
		MenuItemIDs:  req.MenuItemIDs,
		Status:       model.StatusPending,
	}
	if err := s.reservations.Create(ctx, &res); err != nil {
		return BookingResult{}, err
	}

	notified := s.notify(ctx, rest, customer, res, "")
	s.broadcast.Publish(realtime.RestaurantRoom(rest.ID), realtime.EventNewBooking,
		realtime.BookingEvent{
			ReservationID: res.ID,
			BookingID:     res.ID,
			CustomerID:    customer.ID,
			RestaurantID:  rest.ID,
			Status:        string(res.Status),
			Booking:       res,
		})
	return BookingResult{Reservation: res, Notified: notified}, nil
}

// resolveCustomer maps the request to a customer row: the authenticated
// user as-is, or a guest account looked up or created by email.
func (s *BookingService) resolveCustomer(ctx context.Context, req CreateRequest) (model.User, error) {
	if req.CustomerID != "" {
		u, err := s.users.GetByID(ctx, req.CustomerID)
		if err != nil {
			return model.User{}, err
		}
		return u, nil
	}
	if req.GuestEmail == "" {
		return model.User{}, fmt.Errorf("%w: email is required for guest bookings", ErrValidation)
	}
	return s.users.GetOrCreateGuest(ctx, req.GuestEmail, req.GuestName, req.GuestPhone)
}

// UpdateStatus applies one transition of the booking state machine. The
// alias parameter is what the caller sent (confirmed, rejected, cancelled,
// approved, declined); it is canonicalized for storage and echoed back as
// newStatus in the broadcast payload.
func (s *BookingService) UpdateStatus(ctx context.Context, actor Actor, reservationID, alias string) (BookingResult, error) {
	target := model.CanonicalStatus(alias)
	if target == "" || target == model.StatusPending {
		return BookingResult{}, fmt.Errorf("%w: unknown status %q", ErrValidation, alias)
	}
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return BookingResult{}, ErrNotFound
		}
		return BookingResult{}, err
	}
	if err := s.authorizeTransition(ctx, actor, res, target); err != nil {
		return BookingResult{}, err
	}
	if !transitionAllowed(res.Status, target) {
		return BookingResult{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, res.Status, target)
	}

	if err := s.reservations.UpdateStatusFrom(ctx, reservationID, res.Status, target); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return BookingResult{}, ErrConflict
		}
		return BookingResult{}, err
	}
	previous := res.Status
	res.Status = target
	res.UpdatedAt = time.Now().UTC()

	rest, restErr := s.restaurants.GetByID(ctx, res.RestaurantID)
	customer, custErr := s.users.GetByID(ctx, res.CustomerID)
	notified := false
	if restErr == nil && custErr == nil {
		notified = s.notify(ctx, rest, customer, res, string(previous))
	} else {
		log.Printf("booking: skipping notification for %s: restaurant/customer lookup failed", res.ID)
	}

	ev := realtime.BookingEvent{
		ReservationID: res.ID,
		BookingID:     res.ID,
		CustomerID:    res.CustomerID,
		RestaurantID:  res.RestaurantID,
		Status:        string(res.Status),
		NewStatus:     alias,
		Booking:       res,
	}
	s.broadcast.Publish(realtime.RestaurantRoom(res.RestaurantID), realtime.EventBookingStatusChanged, ev)
	s.broadcast.Publish(realtime.CustomerRoom(res.CustomerID), realtime.EventBookingStatusChanged, ev)
	return BookingResult{Reservation: res, Notified: notified}, nil
}

// transitionAllowed encodes the status transition table. Declined and
// cancelled are terminal.
func transitionAllowed(from, to model.ReservationStatus) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case model.StatusApproved, model.StatusDeclined:
		return from == model.StatusPending
	case model.StatusCancelled:
		return from == model.StatusPending || from == model.StatusApproved
	}
	return false
}

// authorizeTransition enforces who may apply which transition: approvals
// and declines belong to the restaurant side, cancellations to the owning
// customer.
func (s *BookingService) authorizeTransition(ctx context.Context, actor Actor, res model.Reservation, target model.ReservationStatus) error {
	switch target {
	case model.StatusApproved, model.StatusDeclined:
		return s.requireRestaurantActor(ctx, actor, res.RestaurantID)
	case model.StatusCancelled:
		if actor.UserID == "" || actor.UserID != res.CustomerID {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// requireRestaurantActor accepts a dashboard session for the restaurant or
// an OWNER user who manages it.
func (s *BookingService) requireRestaurantActor(ctx context.Context, actor Actor, restaurantID string) error {
	if actor.RestaurantID != "" {
		if actor.RestaurantID != restaurantID {
			return ErrForbidden
		}
		return nil
	}
	if actor.UserID != "" && actor.Role == "OWNER" {
		rest, err := s.restaurants.GetByID(ctx, restaurantID)
		if err != nil {
			return err
		}
		if rest.ManagerUserID == actor.UserID {
			return nil
		}
	}
	return ErrForbidden
}

// GetForActor returns one reservation, visible only to the owning customer
// or the restaurant side.
func (s *BookingService) GetForActor(ctx context.Context, actor Actor, reservationID string) (model.Reservation, error) {
	res, err := s.reservations.GetByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrReservationNotFound) {
			return model.Reservation{}, ErrNotFound
		}
		return model.Reservation{}, err
	}
	if actor.UserID != "" && actor.UserID == res.CustomerID {
		return res, nil
	}
	if err := s.requireRestaurantActor(ctx, actor, res.RestaurantID); err != nil {
		return model.Reservation{}, err
	}
	return res, nil
}

// ListMine returns the calling customer's reservations.
func (s *BookingService) ListMine(ctx context.Context, customerID string) ([]model.Reservation, error) {
	return s.reservations.ListByCustomer(ctx, customerID)
}

// ListForRestaurant returns a restaurant's reservations for its dashboard.
func (s *BookingService) ListForRestaurant(ctx context.Context, actor Actor, restaurantID string) ([]model.Reservation, error) {
	if err := s.requireRestaurantActor(ctx, actor, restaurantID); err != nil {
		return nil, err
	}
	return s.reservations.ListByRestaurant(ctx, restaurantID)
}

// notify publishes the broker notification; failures are logged, not
// returned. The boolean feeds the notified flag in HTTP responses.
func (s *BookingService) notify(ctx context.Context, rest model.Restaurant, customer model.User, res model.Reservation, previous string) bool {
	ev := queue.BookingNotification{
		ReservationID:   res.ID,
		RestaurantID:    rest.ID,
		RestaurantName:  rest.Name,
		RestaurantEmail: rest.Email,
		CustomerID:      customer.ID,
		CustomerName:    customer.FullName,
		CustomerEmail:   customer.Email,
		DateTime:        res.DateTime.UTC().Format(time.RFC3339),
		PartySize:       res.PartySize,
		Status:          string(res.Status),
		PreviousStatus:  previous,
		MenuItemNames:   s.menuItemNames(ctx, rest.ID, res.MenuItemIDs),
		OccurredAt:      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Printf("booking: notification for %s failed: %v", res.ID, err)
		return false
	}
	return true
}

// menuItemNames resolves pre-ordered item ids to display names for the
// notification email. Lookup failures degrade to an empty list.
func (s *BookingService) menuItemNames(ctx context.Context, restaurantID string, ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	all, err := s.menu.ListByRestaurant(ctx, restaurantID)
	if err != nil {
		log.Printf("booking: menu lookup for notification failed: %v", err)
		return nil
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var names []string
	for _, m := range all {
		if _, ok := wanted[m.ID]; ok {
			names = append(names, m.Name)
		}
	}
	return names
}
