package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/quickseat/quickseat/internal/model"
)

// ErrEmailExists is returned when a registration collides with an existing
// non-guest account.
var ErrEmailExists = errors.New("email already exists")

// UserRepo mirrors the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = `id, email, password_hash, full_name, phone, role, is_guest, is_active, created_at, updated_at`

// Create inserts a full account and returns its id.  The password is hashed
// by the caller; guest rows (no password) go through GetOrCreateGuest
// instead.
func (r *UserRepo) Create(ctx context.Context, email, passwordHash, fullName, phone, role string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	id := uuid.NewString()
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, full_name, phone, role, is_guest) VALUES (?,?,?,?,?,?,FALSE)",
		id, email, passwordHash, fullName, phone, role)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return "", ErrEmailExists
		}
		return "", err
	}
	return id, nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1",
		email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role,
		&u.IsGuest, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1",
		id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role,
		&u.IsGuest, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetOrCreateGuest returns the user row keyed by the given email, creating a
// guest account on the fly when none exists.  Repeated guest bookings with
// the same email reuse the first row, so a guest's reservation history stays
// attached to one id.  An existing full account is returned as-is.
func (r *UserRepo) GetOrCreateGuest(ctx context.Context, email, fullName, phone string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := r.GetByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return model.User{}, err
	}
	id := uuid.NewString()
	_, err = r.DB.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, full_name, phone, role, is_guest) VALUES (?,?,'',?,?,'CUSTOMER',TRUE)",
		id, email, fullName, phone)
	if err != nil {
		// A concurrent booking may have inserted the same email first.
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return r.GetByEmail(ctx, email)
		}
		return model.User{}, err
	}
	return r.GetByID(ctx, id)
}
