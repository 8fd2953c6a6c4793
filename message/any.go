package message

// Any owns one message value of any registered type. It carries no type
// tag of its own; the tag travels next to it in the Envelope.
type Any struct {
	value any
}

// NewAny wraps v.
func NewAny(v any) Any {
	return Any{value: v}
}

// Value returns the wrapped value.
func (a Any) Value() any {
	return a.value
}

// IsEmpty reports whether nothing is wrapped.
func (a Any) IsEmpty() bool {
	return a.value == nil
}

// AnyAs returns the wrapped value as T.
func AnyAs[T any](a Any) (T, bool) {
	v, ok := a.value.(T)
	return v, ok
}
