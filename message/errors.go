package message

import "errors"

// ErrUnregistered is returned when wrapping a value whose type was never registered.
var ErrUnregistered = errors.New("message type is not registered")
