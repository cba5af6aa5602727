package models

import "errors"

var (
	// ErrTransientFetch marks a snapshot fetch that failed in transport or storage.
	ErrTransientFetch = errors.New("snapshot fetch failed")

	// ErrMalformedSnapshot marks a response that lacks required fields.
	ErrMalformedSnapshot = errors.New("malformed snapshot")

	// ErrServedFromCache accompanies a cached snapshot returned in place of a
	// failed upstream fetch. The snapshot is usable but the fetch still failed.
	ErrServedFromCache = errors.New("serving cached snapshot")
)
