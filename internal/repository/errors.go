// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services to distinguish between different failure scenarios. For
// example, ErrConflict signals that a versioned update lost against a
// concurrent write, while the per-repository not-found sentinels mark
// lookups that yielded no rows.
package repository

import "errors"

// ErrConflict is returned when an update cannot be performed because of
// conflicting state, such as a layout item update carrying a stale version
// counter. Services translate this into a Conflict failure and handlers
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicateID is returned when an insert collides with an existing
// primary key. The floor-plan store reacts by regenerating the server-side
// id and retrying.
var ErrDuplicateID = errors.New("duplicate id")
