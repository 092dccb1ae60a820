package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quickseat/quickseat/internal/model"
)

// ErrMenuItemNotFound is returned when a menu item lookup yields no rows.
var ErrMenuItemNotFound = errors.New("menu item not found")

// MenuItemRepo mirrors the 'menu_items' table.
type MenuItemRepo struct{ DB *sql.DB }

func NewMenuItemRepo(db *sql.DB) *MenuItemRepo { return &MenuItemRepo{DB: db} }

const menuItemColumns = `id, restaurant_id, name, price_cents, category, is_available, created_at, updated_at`

// Create inserts a menu item.
func (r *MenuItemRepo) Create(ctx context.Context, m *model.MenuItem) error {
	const q = `INSERT INTO menu_items (id, restaurant_id, name, price_cents, category, is_available)
	           VALUES (?,?,?,?,?,?)`
	_, err := r.DB.ExecContext(ctx, q, m.ID, m.RestaurantID, m.Name, m.PriceCents, m.Category, m.IsAvailable)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrDuplicateID
	}
	return err
}

// GetByID fetches a menu item by id.
func (r *MenuItemRepo) GetByID(ctx context.Context, id string) (model.MenuItem, error) {
	const q = `SELECT ` + menuItemColumns + ` FROM menu_items WHERE id=? LIMIT 1`
	var m model.MenuItem
	err := r.DB.QueryRowContext(ctx, q, id).Scan(&m.ID, &m.RestaurantID, &m.Name,
		&m.PriceCents, &m.Category, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return m, ErrMenuItemNotFound
	}
	return m, err
}

// ListByRestaurant returns a restaurant's menu, available items first.
func (r *MenuItemRepo) ListByRestaurant(ctx context.Context, restaurantID string) ([]model.MenuItem, error) {
	const q = `SELECT ` + menuItemColumns + ` FROM menu_items
	           WHERE restaurant_id=? ORDER BY is_available DESC, category, name`
	rows, err := r.DB.QueryContext(ctx, q, restaurantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.MenuItem
	for rows.Next() {
		var m model.MenuItem
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.PriceCents,
			&m.Category, &m.IsAvailable, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountForRestaurant returns how many of the given ids belong to the
// restaurant and are currently available.  The booking service uses this to
// validate pre-orders in a single round trip.
func (r *MenuItemRepo) CountForRestaurant(ctx context.Context, restaurantID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `SELECT COUNT(*) FROM menu_items WHERE restaurant_id=? AND is_available=TRUE AND id IN (?` +
		strings.Repeat(",?", len(ids)-1) + `)`
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, restaurantID)
	for _, id := range ids {
		args = append(args, id)
	}
	var n int
	err := r.DB.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// Update replaces a menu item's mutable fields.
func (r *MenuItemRepo) Update(ctx context.Context, m model.MenuItem) error {
	const q = `UPDATE menu_items
	           SET name=?, price_cents=?, category=?, is_available=?, updated_at=CURRENT_TIMESTAMP
	           WHERE id=? AND restaurant_id=?`
	res, err := r.DB.ExecContext(ctx, q, m.Name, m.PriceCents, m.Category, m.IsAvailable, m.ID, m.RestaurantID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, m.ID); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a menu item. Absent ids are not an error.
func (r *MenuItemRepo) Delete(ctx context.Context, restaurantID, id string) error {
	const q = `DELETE FROM menu_items WHERE id=? AND restaurant_id=?`
	_, err := r.DB.ExecContext(ctx, q, id, restaurantID)
	return err
}
