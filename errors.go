package vmix

import "errors"

var (
	// ErrBusy is returned when a job of the same kind is already in flight.
	ErrBusy = errors.New("vmix: job already in flight")
	// ErrNotFound is returned when an id does not resolve to a source,
	// history step or snapshot.
	ErrNotFound = errors.New("vmix: not found")
	// ErrInvalidDocument is returned for structurally invalid documents.
	ErrInvalidDocument = errors.New("vmix: invalid document")
	// ErrVersionMismatch marks a document written by another major version.
	// Loading proceeds; callers treat it as a warning.
	ErrVersionMismatch = errors.New("vmix: document version mismatch")
	// ErrThumbnailTimeout is returned when no frame fulfilled a thumbnail
	// request in time.
	ErrThumbnailTimeout = errors.New("vmix: thumbnail timeout")
	// ErrNoStore is returned by save and load when the mixer has no store.
	ErrNoStore = errors.New("vmix: no document store configured")
)
