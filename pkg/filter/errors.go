package filter

import "errors"

var (
	// ErrNotFound is returned when a filter id is not in the catalog.
	ErrNotFound = errors.New("filter not found")

	// ErrDuplicateID is returned when registering an id that already exists.
	ErrDuplicateID = errors.New("duplicate filter id")

	// ErrInvalidFilter is returned when a filter definition is malformed.
	ErrInvalidFilter = errors.New("invalid filter definition")
)
