// Package realtime fans out floor-plan and booking events to connected
// websocket clients. Delivery is room based: every restaurant has one room
// shared by its dashboard and all customers viewing its floor plan, and
// every customer has a private room for booking updates. Events are
// best-effort notifications; the database is always the source of truth and
// clients recover from missed events by reloading.
package realtime

import "fmt"

// Event names carried on the wire. Clients dispatch on these strings.
const (
	EventItemAdded            = "itemAdded"
	EventItemUpdated          = "itemUpdated"
	EventItemDeleted          = "itemDeleted"
	EventTableReserved        = "tableReserved"
	EventFloorplanUpdated     = "floorplanUpdated"
	EventNewBooking           = "newBooking"
	EventBookingStatusChanged = "bookingStatusChanged"
)

// Client-to-server frame names. A connected socket asks for room membership
// with these; each frame must carry a signed room token.
const (
	EventJoinRestaurant = "joinRestaurant"
	EventJoinCustomer   = "joinCustomer"
)

// Room name prefixes, used to match a join frame against the rooms its
// token grants.
const (
	restaurantRoomPrefix = "restaurant_"
	customerRoomPrefix   = "customer_"
)

// RestaurantRoom names the shared room for a restaurant's dashboard and the
// customers viewing its floor plan.
func RestaurantRoom(restaurantID string) string {
	return fmt.Sprintf("restaurant_%s", restaurantID)
}

// CustomerRoom names a customer's private room for booking updates.
func CustomerRoom(customerID string) string {
	return fmt.Sprintf("customer_%s", customerID)
}

// Envelope is the wire format of one event: a name and a JSON payload.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Broadcaster publishes an event to every subscriber of a room. Services
// depend on this interface rather than the concrete hub so tests can record
// published events without sockets.
type Broadcaster interface {
	Publish(room, event string, payload interface{})
}

// NopBroadcaster discards every event. Used where realtime delivery is not
// wired, such as the queue consumer binary.
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(room, event string, payload interface{}) {}

// ItemEvent is the payload for itemAdded and itemUpdated. The item field
// carries the full current state so receivers can reconcile without a
// follow-up fetch.
type ItemEvent struct {
	RestaurantID string      `json:"restaurantId"`
	FloorKey     string      `json:"floor"`
	Item         interface{} `json:"item"`
}

// ItemDeletedEvent is the payload for itemDeleted.
type ItemDeletedEvent struct {
	RestaurantID string `json:"restaurantId"`
	FloorKey     string `json:"floor"`
	ItemID       string `json:"itemId"`
}

// TableReservedEvent is the payload for tableReserved: a seating-state
// change on one table.
type TableReservedEvent struct {
	RestaurantID  string      `json:"restaurantId"`
	FloorKey      string      `json:"floor"`
	ItemID        string      `json:"itemId"`
	IsReserved    bool        `json:"isReserved"`
	OwnerReserved bool        `json:"ownerReserved"`
	Item          interface{} `json:"item"`
}

// FloorplanUpdatedEvent signals a wholesale floor save. It deliberately
// carries no items: receivers reload the floor over HTTP instead of
// applying a large diff.
type FloorplanUpdatedEvent struct {
	RestaurantID string `json:"restaurantId"`
	FloorKey     string `json:"floor"`
}

// BookingEvent is the payload for newBooking and bookingStatusChanged,
// delivered to the restaurant room and the booking customer's room. The
// duplicated id fields match what existing clients key on.
type BookingEvent struct {
	ReservationID string      `json:"reservationId"`
	BookingID     string      `json:"bookingId"`
	CustomerID    string      `json:"customerId"`
	RestaurantID  string      `json:"restaurantId"`
	Status        string      `json:"status"`
	NewStatus     string      `json:"newStatus,omitempty"`
	Booking       interface{} `json:"booking"`
}
