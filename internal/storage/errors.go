package storage

import "errors"

// ErrNotFound is returned by Get when the object does not exist.
var ErrNotFound = errors.New("object not found")
