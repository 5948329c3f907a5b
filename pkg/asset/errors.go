package asset

import "errors"

var (
	// ErrUnsupportedLocation is returned for asset locations no loader handles.
	ErrUnsupportedLocation = errors.New("asset: unsupported location")

	// ErrUnknownBuiltin is returned for builtin: names that do not exist.
	ErrUnknownBuiltin = errors.New("asset: unknown builtin")
)
