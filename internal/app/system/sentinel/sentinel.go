// Package sentinel holds the storage-level facts that stores report.
//
// Stores return these (optionally wrapped); the moderation services translate
// them into apperr kinds. They say what happened to a record, not what the
// caller should be told.
package sentinel

import "errors"

var (
	// ErrNotFound: no document matched the id.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate: a unique index rejected the write.
	ErrDuplicate = errors.New("duplicate")
	// ErrStateChanged: a conditional update matched nothing because the
	// record was no longer in the expected state.
	ErrStateChanged = errors.New("state changed")
)
