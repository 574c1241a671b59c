package util

import "errors"

// Sentinel errors for common failure modes
var (
	// ErrNotFound indicates a required resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates a malformed identifier, record or query
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates invalid configuration
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStoreUnavailable indicates the catalog database could not be reached
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrUpstream indicates a remote API answered with a failure
	ErrUpstream = errors.New("upstream failure")

	// ErrUnsupported indicates an input format that cannot be read
	ErrUnsupported = errors.New("unsupported")
)
