package notify

import "errors"

// ErrChannelNotFound is returned by a ChannelDirectory for an unknown name.
var ErrChannelNotFound = errors.New("channel not found")
