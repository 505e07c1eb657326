package store

import "errors"

// ErrNotFound is returned when a requested check run does not exist.
var ErrNotFound = errors.New("not found")
