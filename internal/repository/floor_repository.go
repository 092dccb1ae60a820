package repository // repository defines data access for floors and layout items

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "strings"

    "github.com/quickseat/quickseat/internal/model"
)

// ErrItemNotFound is returned when a layout item lookup yields no rows.
var ErrItemNotFound = errors.New("layout item not found")

// FloorRepo provides methods to work with floors and their layout items.
// A floor row holds the canvas metadata (name, width, height); the items
// live in the layout_items table keyed by (restaurant_id, floor_key, id).
type FloorRepo struct {
    db *sql.DB
}

// NewFloorRepo constructs a FloorRepo with the given DB handle.
func NewFloorRepo(db *sql.DB) *FloorRepo { return &FloorRepo{db: db} }

// DB exposes the underlying handle for transaction scoping.
func (r *FloorRepo) DB() *sql.DB { return r.db }

// GetFloor loads a floor and all of its items. The second return value
// reports whether the floor row exists: a missing floor yields an empty
// floor and found=false, never an error, so callers can distinguish
// "empty floor" from "floor does not exist".
func (r *FloorRepo) GetFloor(ctx context.Context, restaurantID, floorKey string) (model.Floor, bool, error) {
    f := model.NewFloor(restaurantID, floorKey)
    const q = `SELECT floor_name, width, height FROM floors
	           WHERE restaurant_id = ? AND floor_key = ?`
    err := r.db.QueryRowContext(ctx, q, restaurantID, floorKey).
        Scan(&f.FloorName, &f.Width, &f.Height)
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return f, false, nil
        }
        return f, false, err
    }
    items, err := r.listItems(ctx, restaurantID, floorKey)
    if err != nil {
        return f, true, err
    }
    f.Items = items
    return f, true, nil
}

// EnsureFloor creates the floor row with default canvas dimensions if it
// does not exist yet. Adding an item to a floor that was never saved must
// not fail, so item mutations call this first.
func (r *FloorRepo) EnsureFloor(ctx context.Context, restaurantID, floorKey string) error {
    const q = `INSERT IGNORE INTO floors (restaurant_id, floor_key, floor_name, width, height)
	           VALUES (?, ?, ?, ?, ?)`
    _, err := r.db.ExecContext(ctx, q, restaurantID, floorKey, floorKey,
        model.DefaultFloorWidth, model.DefaultFloorHeight)
    return err
}

const itemColumns = `id, kind, shape, x, y, width, height, rotation, seats, state, meta, version`

func (r *FloorRepo) listItems(ctx context.Context, restaurantID, floorKey string) ([]model.LayoutItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM layout_items
	           WHERE restaurant_id = ? AND floor_key = ?`
    rows, err := r.db.QueryContext(ctx, q, restaurantID, floorKey)
    if err != nil {
        return nil, err
    }
    defer rows.Close()

    items := []model.LayoutItem{}
    for rows.Next() {
        it, err := scanItem(rows)
        if err != nil {
            return nil, err
        }
        items = append(items, it)
    }
    if err := rows.Err(); err != nil {
        return nil, err
    }
    return items, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...any) error
}

func scanItem(s rowScanner) (model.LayoutItem, error) {
    var (
        it    model.LayoutItem
        state uint8
        meta  sql.NullString
    )
    err := s.Scan(&it.ID, &it.Kind, &it.Shape, &it.X, &it.Y, &it.Width, &it.Height,
        &it.Rotation, &it.Seats, &state, &meta, &it.Version)
    if err != nil {
        return it, err
    }
    it.State = model.ReservationState(state)
    if meta.Valid && meta.String != "" {
        if err := json.Unmarshal([]byte(meta.String), &it.Meta); err != nil {
            return it, err
        }
    }
    return it, nil
}

func marshalMeta(meta map[string]string) (string, error) {
    if len(meta) == 0 {
        return "{}", nil
    }
    b, err := json.Marshal(meta)
    if err != nil {
        return "", err
    }
    return string(b), nil
}

// GetItem retrieves a single layout item.
func (r *FloorRepo) GetItem(ctx context.Context, restaurantID, floorKey, itemID string) (model.LayoutItem, error) {
    const q = `SELECT ` + itemColumns + ` FROM layout_items
	           WHERE restaurant_id = ? AND floor_key = ? AND id = ?`
    it, err := scanItem(r.db.QueryRowContext(ctx, q, restaurantID, floorKey, itemID))
    if err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return it, ErrItemNotFound
        }
        return it, err
    }
    return it, nil
}

// InsertItem inserts a single item at version 1. A primary-key collision is
// reported as ErrDuplicateID so the caller can regenerate the id and retry.
func (r *FloorRepo) InsertItem(ctx context.Context, restaurantID, floorKey string, it model.LayoutItem) error {
    metaJSON, err := marshalMeta(it.Meta)
    if err != nil {
        return err
    }
    const q = `INSERT INTO layout_items
	           (restaurant_id, floor_key, id, kind, shape, x, y, width, height, rotation, seats, state, meta, version)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`
    _, err = r.db.ExecContext(ctx, q, restaurantID, floorKey, it.ID, it.Kind, it.Shape,
        it.X, it.Y, it.Width, it.Height, it.Rotation, it.Seats, uint8(it.State), metaJSON)
    if err != nil {
        if strings.Contains(strings.ToLower(err.Error()), "1062") {
            return ErrDuplicateID
        }
        return err
    }
    return nil
}

// UpdateItem replaces an item's geometry, seating and meta wholesale,
// guarded by the optimistic version counter. When no row matches, the item
// is re-checked: an existing row with a different version yields
// ErrConflict, an absent row ErrItemNotFound.
func (r *FloorRepo) UpdateItem(ctx context.Context, restaurantID, floorKey string, it model.LayoutItem) (model.LayoutItem, error) {
    metaJSON, err := marshalMeta(it.Meta)
    if err != nil {
        return it, err
    }
    const q = `UPDATE layout_items
	           SET kind = ?, shape = ?, x = ?, y = ?, width = ?, height = ?, rotation = ?,
	               seats = ?, meta = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE restaurant_id = ? AND floor_key = ? AND id = ? AND version = ?`
    res, err := r.db.ExecContext(ctx, q, it.Kind, it.Shape, it.X, it.Y, it.Width, it.Height,
        it.Rotation, it.Seats, metaJSON, restaurantID, floorKey, it.ID, it.Version)
    if err != nil {
        return it, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        if _, err := r.GetItem(ctx, restaurantID, floorKey, it.ID); err != nil {
            return it, err
        }
        return it, ErrConflict
    }
    return r.GetItem(ctx, restaurantID, floorKey, it.ID)
}

// DeleteItem removes an item. Deleting an absent id is not an error.
func (r *FloorRepo) DeleteItem(ctx context.Context, restaurantID, floorKey, itemID string) error {
    const q = `DELETE FROM layout_items WHERE restaurant_id = ? AND floor_key = ? AND id = ?`
    _, err := r.db.ExecContext(ctx, q, restaurantID, floorKey, itemID)
    return err
}

// UpdateItemState sets an item's reservation state and returns the updated
// row. The version counter advances so concurrent geometry edits notice.
func (r *FloorRepo) UpdateItemState(ctx context.Context, restaurantID, floorKey, itemID string, state model.ReservationState) (model.LayoutItem, error) {
    const q = `UPDATE layout_items
	           SET state = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
	           WHERE restaurant_id = ? AND floor_key = ? AND id = ?`
    res, err := r.db.ExecContext(ctx, q, uint8(state), restaurantID, floorKey, itemID)
    if err != nil {
        return model.LayoutItem{}, err
    }
    if n, _ := res.RowsAffected(); n == 0 {
        // MySQL reports zero affected rows for no-op updates too, so check
        // existence before declaring the item missing.
        return r.GetItem(ctx, restaurantID, floorKey, itemID)
    }
    return r.GetItem(ctx, restaurantID, floorKey, itemID)
}

// ReplaceFloor performs the wholesale save: the floor row is upserted with
// the new canvas metadata and the item set is replaced inside a single
// transaction. Items are inserted in one bulk statement.
func (r *FloorRepo) ReplaceFloor(ctx context.Context, f model.Floor) error {
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

    const upsert = `INSERT INTO floors (restaurant_id, floor_key, floor_name, width, height)
	                VALUES (?, ?, ?, ?, ?)
	                ON DUPLICATE KEY UPDATE floor_name = VALUES(floor_name),
	                                        width = VALUES(width), height = VALUES(height)`
    if _, err := tx.ExecContext(ctx, upsert, f.RestaurantID, f.FloorKey, f.FloorName, f.Width, f.Height); err != nil {
        return err
    }
    const del = `DELETE FROM layout_items WHERE restaurant_id = ? AND floor_key = ?`
    if _, err := tx.ExecContext(ctx, del, f.RestaurantID, f.FloorKey); err != nil {
        return err
    }
    if len(f.Items) > 0 {
        query := `INSERT INTO layout_items
		          (restaurant_id, floor_key, id, kind, shape, x, y, width, height, rotation, seats, state, meta, version) VALUES `
        args := make([]interface{}, 0, len(f.Items)*14)
        for i, it := range f.Items {
            if i > 0 {
                query += ","
            }
            query += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)"
            metaJSON, err := marshalMeta(it.Meta)
            if err != nil {
                return err
            }
            args = append(args, f.RestaurantID, f.FloorKey, it.ID, it.Kind, it.Shape,
                it.X, it.Y, it.Width, it.Height, it.Rotation, it.Seats, uint8(it.State), metaJSON)
        }
        if _, err := tx.ExecContext(ctx, query, args...); err != nil {
            return err
        }
    }
    if err := tx.Commit(); err != nil {
        return err
    }
    committed = true
    return nil
}
