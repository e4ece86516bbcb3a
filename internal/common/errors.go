// Package common defines the sentinel errors shared across the service
// layers. Callers match them with errors.Is; the transport layer maps them
// to HTTP status codes.
package common

import "errors"

var (
	// ErrNotFound covers both an absent record and a record owned by someone
	// else. The two are deliberately indistinguishable so that probing ids
	// cannot reveal existence.
	ErrNotFound = errors.New("not found")

	// ErrContentMissing is returned when a file record exists but its content
	// does not (e.g. records migrated from an external blob store).
	ErrContentMissing = errors.New("file content not found")

	// ErrUnauthorized covers a missing, malformed, expired or forged session.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBadCredential is a wrong password on a credential-change operation.
	ErrBadCredential = errors.New("incorrect password")

	// ErrConflict is a duplicate unique identity (email already registered).
	ErrConflict = errors.New("already registered")

	// ErrNotEmpty blocks deletion of a folder that still has children.
	ErrNotEmpty = errors.New("folder is not empty")

	// ErrPayloadTooLarge rejects content above the upload size limit.
	ErrPayloadTooLarge = errors.New("payload too large")

	// ErrInternal wraps unexpected lower-level failures. Diagnostic detail
	// stays server-side; the response body never carries it.
	ErrInternal = errors.New("internal error")
)
