package engine

import "errors"

// Failure taxonomy. Nothing here is fatal to the process: every failure
// degrades to "no data produced" with the prior snapshot left intact.
var (
	// ErrUnavailable means the Last.fm capability is not configured or a
	// call to it failed.
	ErrUnavailable = errors.New("external capability unavailable")

	// ErrNoResults means a lookup or tag fetch returned nothing, including
	// after the artist fallback tier.
	ErrNoResults = errors.New("no results found")

	// ErrRebuildFailed means matrix/index derivation failed.
	ErrRebuildFailed = errors.New("rebuild failed")

	// ErrPersistFailed means the feature log or artifact write failed.
	ErrPersistFailed = errors.New("persistence failed")
)
