package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrDuplicateRegistration = errors.New("metric already registered")
)
