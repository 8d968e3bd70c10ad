package queue

import "errors"

// ErrClosed indicates an operation on a queue that has been shut down.
var ErrClosed = errors.New("queue closed")
