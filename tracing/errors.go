package tracing

import "errors"

var (
	// ErrZeroTraceID is returned when a trace id is zero.
	ErrZeroTraceID = errors.New("trace id must not be zero")

	// ErrInvalidTraceID is returned for malformed trace ids.
	ErrInvalidTraceID = errors.New("invalid trace id")
)
