package reorder

import "errors"

// ErrTaskNotFound and related errors are returned by engine operations.
var (
	ErrTaskNotFound = errors.New("task not found")
	ErrNoProjection = errors.New("no projection to commit")
	ErrNotDragging  = errors.New("no drag in progress")
	ErrDragActive   = errors.New("drag already in progress")
	errNoChange     = errors.New("drop leaves the board unchanged")
)
