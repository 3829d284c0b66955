package channels

import "errors"

// ErrMessageGone means the message was deleted before the operation.
var ErrMessageGone = errors.New("message no longer exists")
