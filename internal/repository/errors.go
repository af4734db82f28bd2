package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected a write.
	ErrConflict = errors.New("repository: conflict")
	// ErrInvalidTransition indicates a guarded status update matched no row,
	// meaning the deployment was not in the expected prior state.
	ErrInvalidTransition = errors.New("repository: invalid status transition")
)
