package store

import (
	apperrors "github.com/reciprocityapp/reciprocity-server/internal/errors"
)

// Sentinel errors. These alias the application error codes so callers can
// match with errors.Is regardless of which layer produced the failure.
var (
	// ErrNotFound is returned when a document does not exist. Cascade
	// callers treat it as "already cascaded" and continue.
	ErrNotFound = apperrors.ErrNotFound

	// ErrAlreadyExists is returned on a primary-key or unique-index
	// collision.
	ErrAlreadyExists = apperrors.ErrAlreadyExists

	// ErrTagExists is returned when a tag key already has a record.
	// FindOrCreateTag resolves the race by re-reading the winner.
	ErrTagExists = apperrors.AlreadyExists("tag already exists")
)

// storeErr wraps a raw Badger failure as a transient store error.
func storeErr(err error, msg string) error {
	return apperrors.Wrap(err, apperrors.CodeStore, msg)
}
