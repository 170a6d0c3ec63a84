package lesson

import "errors"

var (
	// ErrNotFound: the operation was given no resolvable target.
	ErrNotFound = errors.New("not found")
	// ErrForbidden: the actor's role does not permit the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrFrozen: a student write arrived while the session is frozen.
	// Blocked writes are rejected, never silently dropped.
	ErrFrozen = errors.New("session is frozen")
	// ErrTransient: the durable store was unavailable. No retries here;
	// retry policy belongs to the persistence layer.
	ErrTransient = errors.New("storage unavailable")
)
