package app

import "errors"

// ErrNotFound and related errors describe validation and runtime failures.
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidMove   = errors.New("invalid move")
	ErrInvalidUpdate = errors.New("update must keep the task set intact")
)
