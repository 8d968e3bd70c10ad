package api

import "errors"

// ErrBadRequest marks a request the handlers could not parse.
var ErrBadRequest = errors.New("bad request")
