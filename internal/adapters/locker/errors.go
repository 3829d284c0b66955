package locker

import "errors"

// ErrLock wraps a Redis failure while acquiring a lock.
var ErrLock = errors.New("lock unavailable")
