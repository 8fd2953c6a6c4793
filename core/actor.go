package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/request"
	"github.com/najoast/sngo/v2/tracing"
)

// actor implements the Actor interface.
type actor struct {
	addr    addr.Addr
	name    string
	handler MessageHandler
	system  *system
	logger  *slog.Logger

	// Channel for receiving messages
	mailbox chan delivery

	// closed fences enqueue against Stop: once it is set under the write
	// lock, nothing enters the mailbox any more.
	mu     sync.RWMutex
	closed bool

	// Context for controlling the Actor lifecycle
	ctx    context.Context
	cancel context.CancelFunc

	// Wait group for graceful shutdown
	wg sync.WaitGroup

	// Requests sent by this actor
	table *request.Table

	// Only used from the actor goroutine
	traceGen *tracing.Generator

	// Atomic counters for statistics
	state             atomic.Int32 // ActorState
	messagesProcessed atomic.Uint64
	createdAt         time.Time
	lastMessageAt     atomic.Int64 // Unix nanoseconds

	// Actor options
	opts ActorOptions
}

func newActor(s *system, a addr.Addr, handler MessageHandler, opts ActorOptions) *actor {
	ctx, cancel := context.WithCancel(context.Background())

	logger := opts.Logger
	if logger == nil {
		logger = s.logger
	}
	logger = logger.With("actor", a.String())
	if opts.Name != "" {
		logger = logger.With("name", opts.Name)
	}

	act := &actor{
		addr:      a,
		name:      opts.Name,
		handler:   handler,
		system:    s,
		logger:    logger,
		mailbox:   make(chan delivery, opts.MailboxSize),
		ctx:       ctx,
		cancel:    cancel,
		table:     request.NewTable(a, request.WithMetrics(s.requestMetrics)),
		traceGen:  tracing.NewGenerator(s.nodeNo),
		createdAt: time.Now(),
		opts:      opts,
	}
	act.state.Store(int32(ActorStateIdle))

	return act
}

// Addr returns the address of this Actor.
func (a *actor) Addr() addr.Addr {
	return a.addr
}

// Name returns the name of this Actor.
func (a *actor) Name() string {
	return a.name
}

// start begins the Actor's message processing loop.
func (a *actor) start() {
	a.wg.Add(1)
	go a.messageLoop()
}

// Stop gracefully shuts down the Actor. The message being handled is
// finished; every request still queued is declined. Stop must not be called
// from the actor's own handler.
func (a *actor) Stop() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrActorStopped, a.addr)
	}
	a.closed = true
	a.state.Store(int32(ActorStateStopping))
	a.mu.Unlock()

	// Cancel context to signal shutdown
	a.cancel()

	// Wait for message loop to finish
	a.wg.Wait()

	a.drainMailbox()
	a.state.Store(int32(ActorStateStopped))

	return nil
}

// enqueue puts d into the mailbox without blocking.
func (a *actor) enqueue(d delivery) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return fmt.Errorf("%w: %s", ErrActorStopped, a.addr)
	}

	select {
	case a.mailbox <- d:
		return nil
	default:
		a.system.actorMetrics.MailboxRejected()
		return fmt.Errorf("%w: %s", ErrMailboxFull, a.addr)
	}
}

// Stats returns current runtime statistics for this Actor.
func (a *actor) Stats() ActorStats {
	var lastMessageAt time.Time
	if last := a.lastMessageAt.Load(); last > 0 {
		lastMessageAt = time.Unix(0, last)
	}

	return ActorStats{
		Addr:              a.addr,
		Name:              a.name,
		State:             ActorState(a.state.Load()),
		MessagesProcessed: a.messagesProcessed.Load(),
		MailboxSize:       len(a.mailbox),
		PendingRequests:   a.table.Len(),
		CreatedAt:         a.createdAt,
		LastMessageAt:     lastMessageAt,
	}
}

// messageLoop is the main processing loop for the Actor.
func (a *actor) messageLoop() {
	defer a.wg.Done()

	for {
		select {
		case d := <-a.mailbox:
			a.process(d)

		case <-a.ctx.Done():
			return
		}
	}
}

// process handles a single delivery.
func (a *actor) process(d delivery) {
	a.state.CompareAndSwap(int32(ActorStateIdle), int32(ActorStateRunning))
	defer a.state.CompareAndSwap(int32(ActorStateRunning), int32(ActorStateIdle))

	a.messagesProcessed.Add(1)
	a.lastMessageAt.Store(time.Now().UnixNano())

	ctx, cancel := context.WithTimeout(a.ctx, a.opts.ProcessTimeout)
	defer cancel()

	c := &actorContext{
		Context: ctx,
		actor:   a,
		env:     d.env,
		token:   d.token,
		traceID: d.env.TraceID,
	}
	if c.token == nil {
		c.token = request.Forgotten()
	}

	// Whatever the handler does, the token is discharged when it returns.
	defer func() { c.token.Decline() }()

	start := time.Now()
	err := a.invoke(c)
	a.system.actorMetrics.MessageProcessed(d.env.Name(), err == nil, time.Since(start))

	if err != nil {
		c.Logger().Warn("handler failed", "message", d.env.Name(), "error", err)

		if !c.token.IsForgotten() {
			resp := message.New(Failure{Error: err.Error()}, a.addr)
			resp.TraceID = c.traceID
			c.token.Respond(resp)
		}
	}
}

func (a *actor) invoke(c *actorContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			a.system.actorMetrics.MessagePanic(c.env.Name())
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()

	return a.handler.HandleMessage(c, c.env)
}

// drainMailbox declines every request left in the mailbox.
func (a *actor) drainMailbox() {
	declined := 0
	for {
		select {
		case d := <-a.mailbox:
			if d.token != nil {
				d.token.Decline()
				declined++
			}
		default:
			if declined > 0 {
				a.logger.Debug("declined queued requests", "count", declined)
			}
			return
		}
	}
}
