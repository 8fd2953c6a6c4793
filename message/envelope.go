package message

import (
	"fmt"
	"reflect"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/tracing"
)

// Kind says how an envelope relates to request correlation.
type Kind uint8

const (
	// KindRegular is a fire-and-forget message.
	KindRegular Kind = iota

	// KindRequest expects a response; the runtime pairs it with a token.
	KindRequest

	// KindResponse answers a request.
	KindResponse
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindRequest:
		return "request"
	case KindResponse:
		return "response"
	default:
		return "unknown"
	}
}

// Envelope is the unit delivered to actors: a type-erased payload, its type
// tag and routing metadata.
type Envelope struct {
	TypeID  LocalTypeID
	Kind    Kind
	Sender  addr.Addr
	TraceID tracing.TraceID

	payload Any
}

// Wrap puts msg into a regular envelope. The dynamic type of msg must be
// registered in the process-wide registry.
func Wrap(msg any, sender addr.Addr) (*Envelope, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: <nil>", ErrUnregistered)
	}

	vt, ok := defaultRegistry.LookupType(reflect.TypeOf(msg))
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnregistered, msg)
	}

	return &Envelope{
		TypeID:  vt.TypeID,
		Kind:    KindRegular,
		Sender:  sender,
		payload: Any{value: msg},
	}, nil
}

// New is like Wrap but panics on unregistered types.
func New(msg any, sender addr.Addr) *Envelope {
	env, err := Wrap(msg, sender)
	if err != nil {
		panic("message: " + err.Error())
	}
	return env
}

// Message returns the payload value.
func (e *Envelope) Message() any {
	return e.payload.value
}

// Payload returns the type-erased payload.
func (e *Envelope) Payload() Any {
	return e.payload
}

// Name returns the registered name of the payload type.
func (e *Envelope) Name() string {
	return Lookup(e.TypeID).Name
}

// Clone duplicates the envelope, cloning the payload through its dispatch entry.
func (e *Envelope) Clone() *Envelope {
	dup := *e
	dup.payload = Lookup(e.TypeID).Clone(e.payload)
	return &dup
}

// String returns a short description for logs.
func (e *Envelope) String() string {
	return fmt.Sprintf("%s %s from %s trace %s", e.Kind, e.Name(), e.Sender, e.TraceID)
}

// As returns the payload of env as T.
func As[T any](env *Envelope) (T, bool) {
	if env == nil {
		var zero T
		return zero, false
	}
	return AnyAs[T](env.payload)
}

// Is reports whether env carries a T.
func Is[T any](env *Envelope) bool {
	if env == nil {
		return false
	}
	id, ok := TypeIDOf[T]()
	return ok && env.TypeID == id
}
