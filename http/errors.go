package http

import "errors"

// ErrNoInjector indicates a request that did not pass through Middleware.
var ErrNoInjector = errors.New("no injector in request context")
