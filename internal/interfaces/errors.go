package interfaces

import "errors"

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when an operation would violate a lifecycle or
// linkage invariant (terminal status overwrite, conflicting promotion link)
var ErrConflict = errors.New("conflicting state transition")
