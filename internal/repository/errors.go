package repository

import "errors"

var (
	// ErrSiteExists is returned by SaveSite when a record exists and
	// overwrite was not requested.
	ErrSiteExists = errors.New("site already exists")

	// ErrNotFound is returned by mutating methods when the domain has no
	// record. Read methods return (nil, nil) instead.
	ErrNotFound = errors.New("site not found")

	// ErrUnknownStorage is returned by Open for an unsupported storage kind.
	ErrUnknownStorage = errors.New("unknown storage kind")
)
