package core

import (
	"context"
	"log/slog"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/request"
	"github.com/najoast/sngo/v2/tracing"
)

// MessageHandler processes incoming messages for an Actor.
type MessageHandler interface {
	// HandleMessage processes a single message.
	// It should return an error if processing fails.
	HandleMessage(ctx Context, env *message.Envelope) error
}

// HandlerFunc adapts a function to MessageHandler.
type HandlerFunc func(ctx Context, env *message.Envelope) error

// HandleMessage calls f.
func (f HandlerFunc) HandleMessage(ctx Context, env *message.Envelope) error {
	return f(ctx, env)
}

// Context is passed to a handler for the duration of one message. It is
// bound to the actor goroutine and must not be retained after the handler
// returns.
type Context interface {
	context.Context

	// Addr returns the address of the handling actor.
	Addr() addr.Addr

	// Envelope returns the message being handled.
	Envelope() *message.Envelope

	// TraceID returns the trace id outgoing messages are stamped with.
	TraceID() tracing.TraceID

	// StartTrace begins a new flow: a fresh trace id from the actor's
	// generator replaces the inherited one.
	StartTrace() tracing.TraceID

	// Send delivers msg to to as a regular message.
	Send(to addr.Addr, msg any) error

	// Request sends msg to to and waits for the response.
	Request(ctx context.Context, to addr.Addr, msg any) (*message.Envelope, error)

	// RequestAll sends msg to every target and waits until each one has
	// answered or declined. Declined answers are nil entries.
	RequestAll(ctx context.Context, to []addr.Addr, msg any) ([]*message.Envelope, error)

	// Respond answers the request being handled. It is a no-op for regular
	// messages and after the token was consumed or taken.
	Respond(msg any) error

	// TakeToken removes the response token from the context, so the handler
	// can answer later from elsewhere. The runtime then no longer declines it.
	TakeToken() *request.Token

	// Logger returns the actor logger annotated with the trace id.
	Logger() *slog.Logger
}

// Actor represents a computational unit that processes messages sequentially.
// Each Actor runs in its own goroutine and communicates through its mailbox.
type Actor interface {
	// Addr returns the address of this Actor.
	Addr() addr.Addr

	// Name returns the name of this Actor, empty for anonymous actors.
	Name() string

	// Stop gracefully shuts down the Actor. Queued requests are declined.
	Stop() error

	// Stats returns current runtime statistics for this Actor.
	Stats() ActorStats
}

// Router manages message routing between Actors.
type Router interface {
	// Register binds actor to its address and, if non-empty, its name.
	Register(actor Actor) error

	// Unregister removes an Actor from the routing table.
	Unregister(a addr.Addr) error

	// Lookup finds an Actor by its address.
	Lookup(a addr.Addr) (Actor, bool)

	// LookupName finds an Actor by its name.
	LookupName(name string) (Actor, bool)

	// List returns all registered addresses.
	List() []addr.Addr
}

// ActorSystem manages the lifecycle of all Actors in the system.
type ActorSystem interface {
	// NewActor creates and starts a new Actor.
	NewActor(handler MessageHandler, opts ActorOptions) (Actor, error)

	// NewService creates and starts a named Actor.
	NewService(name string, handler MessageHandler, opts ActorOptions) (Actor, error)

	// GetActor retrieves an Actor by its address.
	GetActor(a addr.Addr) (Actor, bool)

	// GetService retrieves a service by name.
	GetService(name string) (Actor, bool)

	// StopActor stops an Actor and removes it from the system.
	StopActor(a addr.Addr) error

	// Send sends a regular message on behalf of from, starting a new trace.
	Send(from, to addr.Addr, msg any) error

	// Request sends a request on behalf of from and waits for the response.
	Request(ctx context.Context, from, to addr.Addr, msg any) (*message.Envelope, error)

	// RequestAll sends a request to every target on behalf of from and
	// collects the responses; declined answers are nil entries.
	RequestAll(ctx context.Context, from addr.Addr, to []addr.Addr, msg any) ([]*message.Envelope, error)

	// Broadcast sends msg to every actor except from and returns the
	// number of actors that accepted it.
	Broadcast(from addr.Addr, msg any) int

	// Shutdown gracefully stops all Actors in the system.
	Shutdown(ctx context.Context) error

	// Stats returns statistics for all Actors.
	Stats() []ActorStats

	// ListActors returns the addresses of all live actors.
	ListActors() []addr.Addr

	// NodeNo returns the node number of the system.
	NodeNo() uint16

	// RunID identifies this run of the system in logs.
	RunID() string
}
