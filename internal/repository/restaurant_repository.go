package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/quickseat/quickseat/internal/model"
)

// ErrRestaurantNotFound is returned when a restaurant lookup yields no rows.
var ErrRestaurantNotFound = errors.New("restaurant not found")

// ErrLoginIDExists is returned when a new restaurant's dashboard login id is
// already taken.
var ErrLoginIDExists = errors.New("login id already exists")

// RestaurantRepo mirrors the 'restaurants' table.
type RestaurantRepo struct{ DB *sql.DB }

func NewRestaurantRepo(db *sql.DB) *RestaurantRepo { return &RestaurantRepo{DB: db} }

const restaurantColumns = `id, name, address, email, login_id, password_hash, total_tables, max_party_size, manager_user_id, created_at, updated_at`

// Create inserts a restaurant row. The caller supplies the id and the hashed
// dashboard password.
func (r *RestaurantRepo) Create(ctx context.Context, rest *model.Restaurant) error {
	const q = `INSERT INTO restaurants
	           (id, name, address, email, login_id, password_hash, total_tables, max_party_size, manager_user_id)
	           VALUES (?,?,?,?,?,?,?,?,?)`
	_, err := r.DB.ExecContext(ctx, q, rest.ID, rest.Name, rest.Address, rest.Email,
		rest.LoginID, rest.PasswordHash, rest.TotalTables, rest.MaxPartySize, rest.ManagerUserID)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "1062") {
		return ErrLoginIDExists
	}
	return err
}

func (r *RestaurantRepo) scanOne(row *sql.Row) (model.Restaurant, error) {
	var rest model.Restaurant
	err := row.Scan(&rest.ID, &rest.Name, &rest.Address, &rest.Email, &rest.LoginID,
		&rest.PasswordHash, &rest.TotalTables, &rest.MaxPartySize, &rest.ManagerUserID,
		&rest.CreatedAt, &rest.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return rest, ErrRestaurantNotFound
	}
	return rest, err
}

// GetByID fetches a restaurant by id.
func (r *RestaurantRepo) GetByID(ctx context.Context, id string) (model.Restaurant, error) {
	const q = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE id=? LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, id))
}

// GetByLoginID fetches a restaurant by its dashboard login id.
func (r *RestaurantRepo) GetByLoginID(ctx context.Context, loginID string) (model.Restaurant, error) {
	const q = `SELECT ` + restaurantColumns + ` FROM restaurants WHERE login_id=? LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, q, loginID))
}

// List returns all restaurants ordered by name, for the public browse page.
func (r *RestaurantRepo) List(ctx context.Context) ([]model.Restaurant, error) {
	const q = `SELECT ` + restaurantColumns + ` FROM restaurants ORDER BY name`
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Restaurant
	for rows.Next() {
		var rest model.Restaurant
		if err := rows.Scan(&rest.ID, &rest.Name, &rest.Address, &rest.Email, &rest.LoginID,
			&rest.PasswordHash, &rest.TotalTables, &rest.MaxPartySize, &rest.ManagerUserID,
			&rest.CreatedAt, &rest.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, rest)
	}
	return out, rows.Err()
}

// UpdateProfile updates the mutable profile fields of a restaurant.
func (r *RestaurantRepo) UpdateProfile(ctx context.Context, rest model.Restaurant) error {
	const q = `UPDATE restaurants
	           SET name=?, address=?, email=?, total_tables=?, max_party_size=?, updated_at=CURRENT_TIMESTAMP
	           WHERE id=?`
	res, err := r.DB.ExecContext(ctx, q, rest.Name, rest.Address, rest.Email,
		rest.TotalTables, rest.MaxPartySize, rest.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rest.ID); err != nil {
			return err
		}
	}
	return nil
}
