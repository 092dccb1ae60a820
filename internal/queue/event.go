// Package queue defines message payloads exchanged over the message broker.
package queue

// BookingNotification is published whenever a reservation is created or
// changes status. It contains enough information for downstream consumers to
// email the parties, log, or trigger analytics without querying the primary
// database.
type BookingNotification struct {
	ReservationID   string   `json:"reservation_id"`
	RestaurantID    string   `json:"restaurant_id"`
	RestaurantName  string   `json:"restaurant_name"`
	RestaurantEmail string   `json:"restaurant_email"`
	CustomerID      string   `json:"customer_id"`
	CustomerName    string   `json:"customer_name"`
	CustomerEmail   string   `json:"customer_email"`
	DateTime        string   `json:"date_time"`
	PartySize       int      `json:"party_size"`
	Status          string   `json:"status"`
	PreviousStatus  string   `json:"previous_status,omitempty"`
	MenuItemNames   []string `json:"menu_items,omitempty"`
	OccurredAt      string   `json:"occurred_at"`
}
