package model

import "time"

// Restaurant represents a venue managed through the dashboard.  LoginID is
// the short identifier the manager uses to sign in to the dashboard, stored
// alongside a separately hashed dashboard password; the manager is also a
// regular user (ManagerUserID) with the OWNER role.
//
// MaxPartySize is soft-enforced when a booking is created: oversized
// requests are rejected at entry but the stored data carries no hard
// invariant.
type Restaurant struct {
    ID            string    `json:"id"`
    Name          string    `json:"name"`
    Address       string    `json:"address"`
    Email         string    `json:"email"`
    LoginID       string    `json:"loginId"`
    PasswordHash  string    `json:"-"`
    TotalTables   int       `json:"totalTables"`
    MaxPartySize  int       `json:"maxPartySize"`
    ManagerUserID string    `json:"managerUserId"`
    CreatedAt     time.Time `json:"createdAt"`
    UpdatedAt     time.Time `json:"updatedAt"`
}

// User is a customer or owner account.  Guest users are created on the fly
// when an unauthenticated visitor books by email; repeated guest bookings
// with the same email reuse the existing row.
type User struct {
    ID           string    `json:"id"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    FullName     string    `json:"fullName"`
    Phone        string    `json:"phone,omitempty"`
    Role         string    `json:"role"` // CUSTOMER | OWNER
    IsGuest      bool      `json:"isGuest"`
    IsActive     bool      `json:"isActive"`
    CreatedAt    time.Time `json:"createdAt"`
    UpdatedAt    time.Time `json:"updatedAt"`
}

// MenuItem is a dish offered by a restaurant that a customer may pre-order
// with a booking.
type MenuItem struct {
    ID           string    `json:"id"`
    RestaurantID string    `json:"restaurantId"`
    Name         string    `json:"name"`
    PriceCents   uint32    `json:"priceCents"`
    Category     string    `json:"category,omitempty"`
    IsAvailable  bool      `json:"isAvailable"`
    CreatedAt    time.Time `json:"createdAt"`
    UpdatedAt    time.Time `json:"updatedAt"`
}
