package repository

import (
    "context"
    "database/sql"
    "errors"

    "github.com/quickseat/quickseat/internal/model"
)

// ErrReservationNotFound is returned when a reservation lookup yields no rows.
var ErrReservationNotFound = errors.New("reservation not found")

// ReservationRepo provides persistence for bookings and their pre-ordered
// menu items. Reservations are never deleted, only transitioned between
// statuses, so the table doubles as an audit trail. All timestamps are
// stored in UTC.
type ReservationRepo struct {
    db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, restaurant_id, customer_id, date_time, party_size, notes, status, created_at, updated_at`

// Create inserts a reservation and its menu-item links in one transaction.
// The caller supplies the id and the initial status.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return err
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    const q = `INSERT INTO reservations (id, restaurant_id, customer_id, date_time, party_size, notes, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
    if _, err := tx.ExecContext(ctx, q, res.ID, res.RestaurantID, res.CustomerID,
        res.DateTime.UTC(), res.PartySize, res.Notes, res.Status); err != nil {
        return err
    }
    if len(res.MenuItemIDs) > 0 {
        query := `INSERT INTO reservation_menu_items (reservation_id, menu_item_id) VALUES `
        args := make([]interface{}, 0, len(res.MenuItemIDs)*2)
        for i, mid := range res.MenuItemIDs {
            if i > 0 {
                query += ","
            }
            query += "(?, ?)"
            args = append(args, res.ID, mid)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    // Query back the row to populate timestamps.
    const sel = `SELECT created_at, updated_at FROM reservations WHERE id = ?`
    if err := tx.QueryRowContext(ctx, sel, res.ID).Scan(&res.CreatedAt, &res.UpdatedAt); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}

// GetByID loads a reservation with its menu-item ids.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
    var res model.Reservation
    err := r.db.QueryRowContext(ctx, q, id).Scan(
        &res.ID, &res.RestaurantID, &res.CustomerID, &res.DateTime, &res.PartySize,
        &res.Notes, &res.Status, &res.CreatedAt, &res.UpdatedAt,
    )
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return res, ErrReservationNotFound
        }
        return res, err
    }
    res.MenuItemIDs, err = r.menuItemIDs(ctx, id)
    return res, err
}

func (r *ReservationRepo) menuItemIDs(ctx context.Context, reservationID string) ([]string, error) {
    const q = `SELECT menu_item_id FROM reservation_menu_items WHERE reservation_id = ?`
    rows, err := r.db.QueryContext(ctx, q, reservationID)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var ids []string
    for rows.Next() {
        var id string
        if err := rows.Scan(&id); err != nil {
            return nil, err
        }
        ids = append(ids, id)
    }
    return ids, rows.Err()
}

// UpdateStatusFrom atomically transitions a reservation from one status to
// another. The WHERE predicate on the current status is what makes the
// transition safe against races: when zero rows are affected the caller
// re-reads to find out whether the reservation is missing or a concurrent
// transition got there first (reported as ErrConflict).
func (r *ReservationRepo) UpdateStatusFrom(ctx context.Context, id string, from, to model.ReservationStatus) error {
    const q = `UPDATE reservations SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = ?`
    res, err := r.db.ExecContext(ctx, q, to, id, from)
    if err != nil {
        return err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        if _, err := r.GetByID(ctx, id); err != nil {
            return err
        }
        return ErrConflict
    }
    return nil
}

// ListByCustomer returns a customer's reservations, newest booking time first.
func (r *ReservationRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE customer_id = ? ORDER BY date_time DESC`
    return r.list(ctx, q, customerID)
}

// ListByRestaurant returns a restaurant's reservations, newest booking time first.
func (r *ReservationRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.Reservation, error) {
    const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE restaurant_id = ? ORDER BY date_time DESC`
    return r.list(ctx, q, restaurantID)
}

func (r *ReservationRepo) list(ctx context.Context, query, arg string) ([]model.Reservation, error) {
    rows, err := r.db.QueryContext(ctx, query, arg)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var out []model.Reservation
    for rows.Next() {
        var res model.Reservation
        if err := rows.Scan(&res.ID, &res.RestaurantID, &res.CustomerID, &res.DateTime,
            &res.PartySize, &res.Notes, &res.Status, &res.CreatedAt, &res.UpdatedAt); err != nil {
            return nil, err
        }
        out = append(out, res)
    }
    return out, rows.Err()
}
