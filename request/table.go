// Package request tracks in-flight requests of one actor and the responses
// collected for them.
//
// A request is created with NewRequest, which hands out a Token. Every token
// represents one expected response; CloneToken registers one more. A token is
// discharged exactly once, either with a response (Respond) or without one
// (Decline, or automatically once it becomes unreachable). When every token of
// a request has been discharged, Wait returns the collected responses, in the
// order they were resolved. Declined responses appear as nil entries.
package request

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
)

// RequestID identifies one request within a table. IDs are never reused.
type RequestID uint64

// NullID is never allocated to a request.
const NullID RequestID = 0

// IsNull reports whether id is NullID.
func (id RequestID) IsNull() bool {
	return id == NullID
}

type requestInfo struct {
	// remainder counts responses not yet resolved.
	remainder int
	data      []*message.Envelope

	// abandoned requests have no waiter; they are dropped once resolved.
	abandoned bool
	createdAt time.Time
}

// Table is the request correlation table of one owner. It is safe for
// concurrent use; the lock is held only for bookkeeping, never while waiting.
type Table struct {
	owner   addr.Addr
	metrics Metrics

	mu       sync.Mutex
	requests map[RequestID]*requestInfo
	lastID   RequestID

	// resolved counts requests with remainder 0 that no Wait has removed yet.
	resolved int
	notifier event
}

// Option configures a Table.
type Option func(*Table)

// WithMetrics sets the metrics sink of the table.
func WithMetrics(m Metrics) Option {
	return func(t *Table) {
		if m != nil {
			t.metrics = m
		}
	}
}

// NewTable creates the request table of owner.
func NewTable(owner addr.Addr, opts ...Option) *Table {
	t := &Table{
		owner:    owner,
		metrics:  NopMetrics(),
		requests: make(map[RequestID]*requestInfo),
		notifier: newEvent(),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

// Owner returns the address the table belongs to.
func (t *Table) Owner() addr.Addr {
	return t.owner
}

// Len returns the number of requests not yet removed.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.requests)
}

// NewRequest allocates a request expecting one response.
func (t *Table) NewRequest() *Token {
	t.mu.Lock()
	t.lastID++
	id := t.lastID
	t.requests[id] = &requestInfo{
		remainder: 1,
		createdAt: time.Now(),
	}
	t.mu.Unlock()

	t.metrics.RequestStarted()
	return newToken(t, id)
}

// CloneToken registers one more expected response for the request of tok
// and returns a token for it. It returns nil when it is too late: the
// request was resolved, removed or abandoned, or tok was already discharged.
func (t *Table) CloneToken(tok *Token) *Token {
	if tok.IsForgotten() {
		return nil
	}
	t.checkOwner(tok)

	t.mu.Lock()
	info, ok := t.requests[tok.ob.id]
	if !ok || info.remainder == 0 || info.abandoned {
		t.mu.Unlock()
		return nil
	}
	info.remainder++
	t.mu.Unlock()

	return newToken(t, tok.ob.id)
}

// Respond discharges tok with env. Responding with a forgotten token does nothing.
func (t *Table) Respond(tok *Token, env *message.Envelope) {
	if tok.IsForgotten() {
		return
	}
	t.checkOwner(tok)
	tok.Respond(env)
}

// Wait blocks until every response of id is resolved, then removes the
// request and returns the collected responses.
//
// All requests of the table share one wake signal, so Wait may wake up for
// an unrelated request; it then re-checks its own entry and waits again.
//
// If ctx ends first, Wait returns ctx.Err() and the request is abandoned
// as with Discard. A request that resolved in the meantime is returned
// instead.
//
// Waiting for an unknown or abandoned request panics: Wait must not be
// called after Discard or after a cancelled Wait for the same id.
func (t *Table) Wait(ctx context.Context, id RequestID) ([]*message.Envelope, error) {
	for {
		t.mu.Lock()
		info := t.waitable(id)

		if info.remainder == 0 {
			t.remove(id)
			t.mu.Unlock()

			t.metrics.RequestCompleted(len(info.data), time.Since(info.createdAt))
			return info.data, nil
		}

		wake := t.notifier.wait()
		t.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return t.cancel(id, ctx.Err())
		}

		runtime.Gosched()
	}
}

// waitable returns the entry of id. It is called with t.mu held.
func (t *Table) waitable(id RequestID) *requestInfo {
	info, ok := t.requests[id]
	if !ok {
		t.mu.Unlock()
		panic(fmt.Sprintf("request: unknown request %d of %s", id, t.owner))
	}
	if info.abandoned {
		t.mu.Unlock()
		panic(fmt.Sprintf("request: wait for abandoned request %d of %s", id, t.owner))
	}
	return info
}

// cancel ends a Wait whose context is done. The wake signal and the
// context may fire together, so a request that resolved meanwhile is still
// returned.
func (t *Table) cancel(id RequestID, cause error) ([]*message.Envelope, error) {
	t.mu.Lock()
	info := t.waitable(id)
	if info.remainder == 0 {
		t.remove(id)
		t.mu.Unlock()

		t.metrics.RequestCompleted(len(info.data), time.Since(info.createdAt))
		return info.data, nil
	}
	info.abandoned = true
	t.mu.Unlock()

	t.metrics.RequestAbandoned()
	return nil, cause
}

// remove deletes the resolved entry of id. It is called with t.mu held.
func (t *Table) remove(id RequestID) {
	delete(t.requests, id)
	t.resolved--
	if t.resolved == 0 {
		t.notifier.reset()
	}
}

// Discard gives up on id. Outstanding tokens may still be discharged; the
// request is dropped silently once the last one is. Unknown ids are ignored.
func (t *Table) Discard(id RequestID) {
	t.mu.Lock()
	info, ok := t.requests[id]
	if !ok || info.abandoned {
		t.mu.Unlock()
		return
	}

	if info.remainder == 0 {
		t.remove(id)
	} else {
		info.abandoned = true
	}
	t.mu.Unlock()

	t.metrics.RequestAbandoned()
}

// resolve records one response (nil when declined) for id.
func (t *Table) resolve(id RequestID, env *message.Envelope) {
	t.mu.Lock()
	info, ok := t.requests[id]
	if !ok {
		t.mu.Unlock()
		panic(fmt.Sprintf("request: unknown request %d of %s", id, t.owner))
	}

	info.data = append(info.data, env)
	info.remainder--
	if info.remainder == 0 {
		if info.abandoned {
			delete(t.requests, id)
		} else {
			t.resolved++
			t.notifier.set()
		}
	}
	t.mu.Unlock()

	t.metrics.ResponseResolved(env == nil)
}

func (t *Table) checkOwner(tok *Token) {
	if tok.ob.table != t {
		panic(fmt.Sprintf("request: token of %s used with table of %s", tok.Owner(), t.owner))
	}
}
