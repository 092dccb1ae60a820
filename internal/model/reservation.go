package model

import "time"

// ReservationStatus is the lifecycle state of a booking.  Reservations are
// never deleted; they only move through these states, which preserves an
// audit trail of every request.
type ReservationStatus string

const (
    StatusPending   ReservationStatus = "pending"
    StatusApproved  ReservationStatus = "approved"
    StatusDeclined  ReservationStatus = "declined"
    StatusCancelled ReservationStatus = "cancelled"
)

// CanonicalStatus maps external status aliases onto canonical statuses.  The
// dashboard PATCH endpoint speaks confirmed/rejected; internally those are
// approved/declined.  The empty string is returned for unknown values.
func CanonicalStatus(s string) ReservationStatus {
    switch s {
    case "approved", "confirmed":
        return StatusApproved
    case "declined", "rejected":
        return StatusDeclined
    case "cancelled":
        return StatusCancelled
    case "pending":
        return StatusPending
    }
    return ""
}

// Terminal reports whether no further transition is allowed from s.
func (s ReservationStatus) Terminal() bool {
    return s == StatusDeclined || s == StatusCancelled
}

// Reservation records a customer's request to be seated at a restaurant at a
// given time.  MenuItemIDs optionally pre-orders dishes with the booking.
type Reservation struct {
    ID           string            `json:"id"`
    RestaurantID string            `json:"restaurantId"`
    CustomerID   string            `json:"customerId"`
    DateTime     time.Time         `json:"dateTime"`
    PartySize    int               `json:"partySize"`
    Notes        string            `json:"notes,omitempty"`
    MenuItemIDs  []string          `json:"menuItems,omitempty"`
    Status       ReservationStatus `json:"status"`
    CreatedAt    time.Time         `json:"createdAt"`
    UpdatedAt    time.Time         `json:"updatedAt"`
}
