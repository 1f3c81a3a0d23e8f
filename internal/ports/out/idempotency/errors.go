package idempotency

import "errors"

// ErrUnavailable means the backing store could not be reached.
var ErrUnavailable = errors.New("idempotency store unavailable")
