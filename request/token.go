package request

import (
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
)

const (
	stateForgotten uint32 = iota
	stateActive
)

// obligation is the right and duty to resolve one response of a request.
type obligation struct {
	table *Table
	id    RequestID
	state atomic.Uint32
}

// take moves the obligation from active to forgotten. Only one caller wins.
func (o *obligation) take() bool {
	return o.state.CompareAndSwap(stateActive, stateForgotten)
}

// discharge resolves the request with env unless the obligation was
// already taken. env is marked as a response only when it is recorded.
func (o *obligation) discharge(env *message.Envelope) {
	if !o.take() {
		return
	}
	if env != nil {
		env.Kind = message.KindResponse
	}
	o.table.resolve(o.id, env)
}

// Token is the obligation to deliver, or decline, one response of a request.
//
// Tokens are handled by pointer and are discharged at most once: the first
// Respond or Decline wins and every later call is a no-op. A token that
// becomes unreachable while still active is declined by the garbage
// collector, so a vanished responder never leaves a request hanging; code
// that drops a token should still Decline it to resolve the request promptly.
type Token struct {
	ob *obligation
}

func newToken(t *Table, id RequestID) *Token {
	ob := &obligation{table: t, id: id}
	ob.state.Store(stateActive)

	tok := &Token{ob: ob}
	runtime.AddCleanup(tok, declineLeaked, ob)
	return tok
}

func declineLeaked(ob *obligation) {
	ob.discharge(nil)
}

// Forgotten returns a placeholder token that carries no obligation.
func Forgotten() *Token {
	return &Token{}
}

// IsForgotten reports whether the token no longer carries an obligation.
func (t *Token) IsForgotten() bool {
	return t == nil || t.ob == nil || t.ob.state.Load() != stateActive
}

// ID returns the request id, or NullID for a placeholder token.
func (t *Token) ID() RequestID {
	if t == nil || t.ob == nil {
		return NullID
	}
	return t.ob.id
}

// Owner returns the address of the actor waiting for the response.
func (t *Token) Owner() addr.Addr {
	if t == nil || t.ob == nil {
		return addr.Null
	}
	return t.ob.table.owner
}

// Respond delivers env as the response and discharges the token.
func (t *Token) Respond(env *message.Envelope) {
	if t == nil || t.ob == nil {
		return
	}
	t.ob.discharge(env)
}

// Decline discharges the token without a response.
func (t *Token) Decline() {
	if t == nil || t.ob == nil {
		return
	}
	t.ob.discharge(nil)
}

// Clone registers one more expected response; see Table.CloneToken.
func (t *Token) Clone() *Token {
	if t.IsForgotten() {
		return nil
	}
	return t.ob.table.CloneToken(t)
}

// transfer moves the obligation into a new token and forgets t.
func (t *Token) transfer() *Token {
	if t == nil || t.ob == nil || !t.ob.take() {
		return Forgotten()
	}
	return newToken(t.ob.table, t.ob.id)
}

// String returns a short description for logs.
func (t *Token) String() string {
	if t.IsForgotten() {
		return "token(forgotten)"
	}
	return fmt.Sprintf("token(%s#%d)", t.Owner(), t.ID())
}
