package request

import (
	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
)

// TypedToken is a Token whose response is known to be an R.
type TypedToken[R any] struct {
	tok *Token
}

// Into narrows tok to a typed token. The obligation moves into the result
// and tok is forgotten. R must be a registered message type; Into panics
// otherwise and tok keeps its obligation.
func Into[R any](tok *Token) *TypedToken[R] {
	message.MustTypeIDOf[R]()
	return &TypedToken[R]{tok: tok.transfer()}
}

// Untyped widens the token back. The obligation moves into the result and
// t is forgotten.
func (t *TypedToken[R]) Untyped() *Token {
	return t.tok.transfer()
}

// Respond delivers resp, sent by sender, and discharges the token.
func (t *TypedToken[R]) Respond(resp R, sender addr.Addr) {
	if t.tok.IsForgotten() {
		return
	}
	t.tok.Respond(message.New(resp, sender))
}

// Decline discharges the token without a response.
func (t *TypedToken[R]) Decline() {
	t.tok.Decline()
}

// IsForgotten reports whether the token no longer carries an obligation.
func (t *TypedToken[R]) IsForgotten() bool {
	return t.tok.IsForgotten()
}

// ID returns the request id.
func (t *TypedToken[R]) ID() RequestID {
	return t.tok.ID()
}
