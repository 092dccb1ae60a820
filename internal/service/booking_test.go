package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/quickseat/quickseat/internal/model"
	"github.com/quickseat/quickseat/internal/queue"
	"github.com/quickseat/quickseat/internal/realtime"
	"github.com/quickseat/quickseat/internal/repository"
)

type fakeReservationStore struct {
	create           func(ctx context.Context, res *model.Reservation) error
	getByID          func(ctx context.Context, id string) (model.Reservation, error)
	updateStatusFrom func(ctx context.Context, id string, from, to model.ReservationStatus) error
	listByCustomer   func(ctx context.Context, customerID string) ([]model.Reservation, error)
	listByRestaurant func(ctx context.Context, restaurantID string) ([]model.Reservation, error)
}

func (f *fakeReservationStore) Create(ctx context.Context, res *model.Reservation) error {
	return f.create(ctx, res)
}
func (f *fakeReservationStore) GetByID(ctx context.Context, id string) (model.Reservation, error) {
	return f.getByID(ctx, id)
}
func (f *fakeReservationStore) UpdateStatusFrom(ctx context.Context, id string, from, to model.ReservationStatus) error {
	return f.updateStatusFrom(ctx, id, from, to)
}
func (f *fakeReservationStore) ListByCustomer(ctx context.Context, id string) ([]model.Reservation, error) {
	return f.listByCustomer(ctx, id)
}
func (f *fakeReservationStore) ListByRestaurant(ctx context.Context, id string) ([]model.Reservation, error) {
	return f.listByRestaurant(ctx, id)
}

type fakeUserStore struct {
	getByID          func(ctx context.Context, id string) (model.User, error)
	getOrCreateGuest func(ctx context.Context, email, fullName, phone string) (model.User, error)
}

func (f *fakeUserStore) GetByID(ctx context.Context, id string) (model.User, error) {
	return f.getByID(ctx, id)
}
func (f *fakeUserStore) GetOrCreateGuest(ctx context.Context, email, fullName, phone string) (model.User, error) {
	return f.getOrCreateGuest(ctx, email, fullName, phone)
}

type fakeMenuStore struct {
	countForRestaurant func(ctx context.Context, restaurantID string, ids []string) (int, error)
	listByRestaurant   func(ctx context.Context, restaurantID string) ([]model.MenuItem, error)
}

func (f *fakeMenuStore) CountForRestaurant(ctx context.Context, r string, ids []string) (int, error) {
	return f.countForRestaurant(ctx, r, ids)
}
func (f *fakeMenuStore) ListByRestaurant(ctx context.Context, r string) ([]model.MenuItem, error) {
	if f.listByRestaurant == nil {
		return nil, nil
	}
	return f.listByRestaurant(ctx, r)
}

type recordingNotifier struct {
	events []queue.BookingNotification
	err    error
}

func (n *recordingNotifier) Notify(ctx context.Context, ev queue.BookingNotification) error {
	n.events = append(n.events, ev)
	return n.err
}

// bookingFixture bundles the fakes behind a BookingService with sensible
// defaults: restaurant r1 managed by owner-1, customer cust-1, all
// persistence succeeding.
type bookingFixture struct {
	reservations *fakeReservationStore
	users        *fakeUserStore
	menu         *fakeMenuStore
	notifier     *recordingNotifier
	broadcaster  *recordingBroadcaster
	svc          *BookingService
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		reservations: &fakeReservationStore{
			create: func(ctx context.Context, res *model.Reservation) error { return nil },
			updateStatusFrom: func(ctx context.Context, id string, from, to model.ReservationStatus) error {
				return nil
			},
		},
		users: &fakeUserStore{
			getByID: func(ctx context.Context, id string) (model.User, error) {
				return model.User{ID: id, Email: id + "@test", FullName: "Test User"}, nil
			},
		},
		menu: &fakeMenuStore{
			countForRestaurant: func(ctx context.Context, r string, ids []string) (int, error) {
				return len(ids), nil
			},
		},
		notifier:    &recordingNotifier{},
		broadcaster: &recordingBroadcaster{},
	}
	f.svc = NewBookingService(f.reservations, knownRestaurant("r1"), f.users, f.menu, f.notifier, f.broadcaster)
	return f
}

func pendingReservation(id string) model.Reservation {
	return model.Reservation{
		ID:           id,
		RestaurantID: "r1",
		CustomerID:   "cust-1",
		DateTime:     time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC),
		PartySize:    4,
		Status:       model.StatusPending,
	}
}

func TestCreateRejectsPartySize(t *testing.T) {
	f := newBookingFixture()
	req := CreateRequest{
		RestaurantID: "r1",
		CustomerID:   "cust-1",
		DateTime:     time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC),
	}

	req.PartySize = 0
	if _, err := f.svc.Create(context.Background(), req); !errors.Is(err, ErrValidation) {
		t.Fatalf("partySize=0: err = %v, want ErrValidation", err)
	}

	req.PartySize = 1
	res, err := f.svc.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("partySize=1: %v", err)
	}
	if res.Reservation.Status != model.StatusPending {
		t.Fatalf("status = %s, want pending", res.Reservation.Status)
	}
}

func TestCreateUnknownRestaurant(t *testing.T) {
	f := newBookingFixture()
	_, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "nope",
		CustomerID:   "cust-1",
		DateTime:     time.Now().Add(time.Hour),
		PartySize:    2,
	})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateBroadcastsNewBooking(t *testing.T) {
	f := newBookingFixture()
	res, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "r1",
		CustomerID:   "cust-1",
		DateTime:     time.Date(2026, 10, 1, 19, 0, 0, 0, time.UTC),
		PartySize:    4,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !res.Notified {
		t.Fatal("notified = false with a working notifier")
	}
	if len(f.broadcaster.events) != 1 {
		t.Fatalf("broadcast %d events, want 1", len(f.broadcaster.events))
	}
	ev := f.broadcaster.events[0]
	if ev.Room != realtime.RestaurantRoom("r1") || ev.Event != realtime.EventNewBooking {
		t.Fatalf("broadcast = %s/%s", ev.Room, ev.Event)
	}
	payload := ev.Payload.(realtime.BookingEvent)
	if payload.ReservationID != res.Reservation.ID || payload.Status != "pending" {
		t.Fatalf("payload = %+v", payload)
	}
	if len(f.notifier.events) != 1 || f.notifier.events[0].Status != "pending" {
		t.Fatalf("notifications = %+v", f.notifier.events)
	}
}

func TestCreateNotifierFailureDoesNotFail(t *testing.T) {
	f := newBookingFixture()
	f.notifier.err = errors.New("broker down")

	res, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "r1",
		CustomerID:   "cust-1",
		DateTime:     time.Now().Add(time.Hour),
		PartySize:    2,
	})
	if err != nil {
		t.Fatalf("notification failure leaked into the operation: %v", err)
	}
	if res.Notified {
		t.Fatal("notified = true although the broker is down")
	}
	if len(f.broadcaster.events) != 1 {
		t.Fatal("broadcast must still fire when notification fails")
	}
}

func TestCreateGuestLookupOrCreate(t *testing.T) {
	f := newBookingFixture()
	var gotEmail string
	f.users.getOrCreateGuest = func(ctx context.Context, email, fullName, phone string) (model.User, error) {
		gotEmail = email
		return model.User{ID: "guest-9", Email: email, FullName: fullName, IsGuest: true}, nil
	}

	res, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "r1",
		GuestEmail:   "walkin@example.com",
		GuestName:    "Walk In",
		DateTime:     time.Now().Add(time.Hour),
		PartySize:    2,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if gotEmail != "walkin@example.com" {
		t.Fatalf("guest lookup used email %q", gotEmail)
	}
	if res.Reservation.CustomerID != "guest-9" {
		t.Fatalf("customer id = %q, want the guest row", res.Reservation.CustomerID)
	}
}

func TestCreateGuestRequiresEmail(t *testing.T) {
	f := newBookingFixture()
	_, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "r1",
		DateTime:     time.Now().Add(time.Hour),
		PartySize:    2,
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateRejectsUnknownMenuItems(t *testing.T) {
	f := newBookingFixture()
	f.menu.countForRestaurant = func(ctx context.Context, r string, ids []string) (int, error) {
		return len(ids) - 1, nil
	}
	_, err := f.svc.Create(context.Background(), CreateRequest{
		RestaurantID: "r1",
		CustomerID:   "cust-1",
		DateTime:     time.Now().Add(time.Hour),
		PartySize:    2,
		MenuItemIDs:  []string{"m1", "m2"},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestUpdateStatusTransitionTable(t *testing.T) {
	restaurant := Actor{RestaurantID: "r1", Role: "RESTAURANT"}
	customer := Actor{UserID: "cust-1", Role: "CUSTOMER"}

	cases := []struct {
		name    string
		from    model.ReservationStatus
		alias   string
		actor   Actor
		wantErr error
	}{
		{"pending approved", model.StatusPending, "approved", restaurant, nil},
		{"pending confirmed alias", model.StatusPending, "confirmed", restaurant, nil},
		{"pending declined", model.StatusPending, "declined", restaurant, nil},
		{"pending rejected alias", model.StatusPending, "rejected", restaurant, nil},
		{"pending cancelled by customer", model.StatusPending, "cancelled", customer, nil},
		{"approved cancelled by customer", model.StatusApproved, "cancelled", customer, nil},
		{"approved approved again", model.StatusApproved, "approved", restaurant, ErrInvalidTransition},
		{"approved declined", model.StatusApproved, "declined", restaurant, ErrInvalidTransition},
		{"declined anything", model.StatusDeclined, "approved", restaurant, ErrInvalidTransition},
		{"cancelled anything", model.StatusCancelled, "cancelled", customer, ErrInvalidTransition},
		{"unknown alias", model.StatusPending, "done", restaurant, ErrValidation},
		{"back to pending", model.StatusApproved, "pending", restaurant, ErrValidation},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newBookingFixture()
			f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
				res := pendingReservation(id)
				res.Status = c.from
				return res, nil
			}
			_, err := f.svc.UpdateStatus(context.Background(), c.actor, "b-1", c.alias)
			if c.wantErr == nil && err != nil {
				t.Fatalf("err = %v, want nil", err)
			}
			if c.wantErr != nil && !errors.Is(err, c.wantErr) {
				t.Fatalf("err = %v, want %v", err, c.wantErr)
			}
		})
	}
}

func TestUpdateStatusAuthorization(t *testing.T) {
	cases := []struct {
		name  string
		alias string
		actor Actor
	}{
		{"customer approving own booking", "approved", Actor{UserID: "cust-1", Role: "CUSTOMER"}},
		{"other restaurant approving", "approved", Actor{RestaurantID: "r2", Role: "RESTAURANT"}},
		{"unrelated owner approving", "approved", Actor{UserID: "owner-2", Role: "OWNER"}},
		{"restaurant cancelling", "cancelled", Actor{RestaurantID: "r1", Role: "RESTAURANT"}},
		{"other customer cancelling", "cancelled", Actor{UserID: "cust-2", Role: "CUSTOMER"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f := newBookingFixture()
			persisted := false
			f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
				return pendingReservation(id), nil
			}
			f.reservations.updateStatusFrom = func(ctx context.Context, id string, from, to model.ReservationStatus) error {
				persisted = true
				return nil
			}
			_, err := f.svc.UpdateStatus(context.Background(), c.actor, "b-1", c.alias)
			if !errors.Is(err, ErrForbidden) {
				t.Fatalf("err = %v, want ErrForbidden", err)
			}
			if persisted {
				t.Fatal("forbidden transition reached the store")
			}
		})
	}
}

func TestUpdateStatusManagingOwnerMayApprove(t *testing.T) {
	f := newBookingFixture()
	f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
		return pendingReservation(id), nil
	}
	res, err := f.svc.UpdateStatus(context.Background(), Actor{UserID: "owner-1", Role: "OWNER"}, "b-1", "approved")
	if err != nil {
		t.Fatalf("managing owner approve: %v", err)
	}
	if res.Reservation.Status != model.StatusApproved {
		t.Fatalf("status = %s", res.Reservation.Status)
	}
}

func TestUpdateStatusAliasEchoedBothRooms(t *testing.T) {
	f := newBookingFixture()
	f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
		return pendingReservation(id), nil
	}

	res, err := f.svc.UpdateStatus(context.Background(), Actor{RestaurantID: "r1", Role: "RESTAURANT"}, "b-1", "confirmed")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if res.Reservation.Status != model.StatusApproved {
		t.Fatalf("status = %s, want approved", res.Reservation.Status)
	}

	if len(f.broadcaster.events) != 2 {
		t.Fatalf("broadcast %d events, want restaurant and customer rooms", len(f.broadcaster.events))
	}
	rooms := map[string]bool{}
	for _, ev := range f.broadcaster.events {
		if ev.Event != realtime.EventBookingStatusChanged {
			t.Fatalf("event = %s", ev.Event)
		}
		payload := ev.Payload.(realtime.BookingEvent)
		if payload.Status != "approved" || payload.NewStatus != "confirmed" {
			t.Fatalf("payload status = %q newStatus = %q", payload.Status, payload.NewStatus)
		}
		rooms[ev.Room] = true
	}
	if !rooms[realtime.RestaurantRoom("r1")] || !rooms[realtime.CustomerRoom("cust-1")] {
		t.Fatalf("rooms reached: %v", rooms)
	}

	if len(f.notifier.events) != 1 {
		t.Fatalf("notifications = %d", len(f.notifier.events))
	}
	if f.notifier.events[0].PreviousStatus != "pending" {
		t.Fatalf("previous status = %q", f.notifier.events[0].PreviousStatus)
	}
}

func TestUpdateStatusRaceConflicts(t *testing.T) {
	f := newBookingFixture()
	f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
		return pendingReservation(id), nil
	}
	f.reservations.updateStatusFrom = func(ctx context.Context, id string, from, to model.ReservationStatus) error {
		return repository.ErrConflict
	}
	_, err := f.svc.UpdateStatus(context.Background(), Actor{RestaurantID: "r1", Role: "RESTAURANT"}, "b-1", "approved")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(f.broadcaster.events) != 0 {
		t.Fatal("lost race must not broadcast")
	}
}

func TestGetForActor(t *testing.T) {
	f := newBookingFixture()
	f.reservations.getByID = func(ctx context.Context, id string) (model.Reservation, error) {
		return pendingReservation(id), nil
	}
	ctx := context.Background()

	if _, err := f.svc.GetForActor(ctx, Actor{UserID: "cust-1", Role: "CUSTOMER"}, "b-1"); err != nil {
		t.Fatalf("owning customer: %v", err)
	}
	if _, err := f.svc.GetForActor(ctx, Actor{RestaurantID: "r1", Role: "RESTAURANT"}, "b-1"); err != nil {
		t.Fatalf("restaurant side: %v", err)
	}
	if _, err := f.svc.GetForActor(ctx, Actor{UserID: "cust-2", Role: "CUSTOMER"}, "b-1"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("stranger: err = %v, want ErrForbidden", err)
	}
}
