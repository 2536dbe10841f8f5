package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique constraint (handle or email)
// would be violated.
var ErrConflict = errors.New("already exists")
