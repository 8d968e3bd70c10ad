package repository

import "errors"

// Sentinel kinds for build store errors.
var (
	ErrNotFound        = errors.New("build not found")
	ErrCorruptSnapshot = errors.New("corrupt builds snapshot")
)
