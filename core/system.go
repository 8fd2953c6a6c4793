package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rs/xid"
	"golang.org/x/sync/errgroup"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/node"
	"github.com/najoast/sngo/v2/request"
	"github.com/najoast/sngo/v2/tracing"
)

// system implements the ActorSystem interface.
type system struct {
	router *router
	mu     sync.Mutex
	nodeNo uint16
	runID  string

	opts           SystemOptions
	logger         *slog.Logger
	actorMetrics   ActorMetrics
	requestMetrics request.Metrics

	// Shared by every trace generator of the system
	chunks *tracing.ChunkRegistry

	// Starts flows that do not originate in a handler
	traceMu  sync.Mutex
	traceGen *tracing.Generator

	shuttingDown atomic.Bool
}

// NewActorSystem creates a new ActorSystem on the node set with node.Set.
func NewActorSystem() ActorSystem {
	return NewActorSystemWithNodeNo(node.No())
}

// NewActorSystemWithNodeNo creates a new ActorSystem with a specific node number.
func NewActorSystemWithNodeNo(nodeNo uint16) ActorSystem {
	return NewActorSystemWithOptions(SystemOptions{NodeNo: nodeNo})
}

// NewActorSystemWithOptions creates a new ActorSystem.
func NewActorSystemWithOptions(opts SystemOptions) ActorSystem {
	if opts.DefaultActorOptions.MailboxSize <= 0 {
		opts.DefaultActorOptions = DefaultActorOptions()
	}
	if opts.ActorMetrics == nil {
		opts.ActorMetrics = NopActorMetrics()
	}
	if opts.RequestMetrics == nil {
		opts.RequestMetrics = request.NopMetrics()
	}

	runID := xid.New().String()

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("run_id", runID, "node_no", opts.NodeNo)

	return &system{
		router:         newRouter(opts.NodeNo),
		nodeNo:         opts.NodeNo,
		runID:          runID,
		opts:           opts,
		logger:         logger,
		actorMetrics:   opts.ActorMetrics,
		requestMetrics: opts.RequestMetrics,
		chunks:         tracing.NewChunkRegistry(),
		traceGen:       tracing.NewGenerator(opts.NodeNo),
	}
}

// NewActor creates and starts a new Actor.
func (s *system) NewActor(handler MessageHandler, opts ActorOptions) (Actor, error) {
	return s.spawn(handler, opts)
}

// NewService creates and starts a named Actor.
func (s *system) NewService(name string, handler MessageHandler, opts ActorOptions) (Actor, error) {
	if name == "" {
		return nil, fmt.Errorf("service name is empty")
	}
	opts.Name = name
	return s.spawn(handler, opts)
}

func (s *system) spawn(handler MessageHandler, opts ActorOptions) (Actor, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.shuttingDown.Load() {
		return nil, ErrSystemShutdown
	}
	if s.opts.MaxActors > 0 && s.router.Len() >= s.opts.MaxActors {
		return nil, fmt.Errorf("%w: limit %d", ErrTooManyActors, s.opts.MaxActors)
	}

	// Apply default options if needed
	if opts.MailboxSize <= 0 {
		opts.MailboxSize = s.opts.DefaultActorOptions.MailboxSize
	}
	if opts.ProcessTimeout <= 0 {
		opts.ProcessTimeout = s.opts.DefaultActorOptions.ProcessTimeout
	}

	act := newActor(s, s.router.reserve(), handler, opts)
	if err := s.router.Register(act); err != nil {
		return nil, fmt.Errorf("failed to register actor: %w", err)
	}

	act.start()
	s.actorMetrics.ActorsAlive(s.router.Len())
	act.logger.Debug("actor started")

	return act, nil
}

// GetActor retrieves an Actor by its address.
func (s *system) GetActor(a addr.Addr) (Actor, bool) {
	return s.router.Lookup(a)
}

// GetService retrieves a service by name.
func (s *system) GetService(name string) (Actor, bool) {
	return s.router.LookupName(name)
}

// StopActor stops an Actor and removes it from the system.
func (s *system) StopActor(a addr.Addr) error {
	act, ok := s.router.Lookup(a)
	if !ok {
		return fmt.Errorf("%w: %s", ErrActorNotFound, a)
	}
	if err := s.router.Unregister(a); err != nil {
		return err
	}
	s.actorMetrics.ActorsAlive(s.router.Len())

	return act.Stop()
}

func (s *system) lookup(a addr.Addr) (*actor, error) {
	act, ok := s.router.Lookup(a)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActorNotFound, a)
	}
	return act.(*actor), nil
}

// newTrace starts a flow outside of any handler.
func (s *system) newTrace() tracing.TraceID {
	s.traceMu.Lock()
	defer s.traceMu.Unlock()

	return s.traceGen.Generate(s.chunks)
}

func (s *system) deliver(to addr.Addr, d delivery) error {
	target, err := s.lookup(to)
	if err != nil {
		return err
	}
	return target.enqueue(d)
}

func (s *system) send(from, to addr.Addr, msg any, traceID tracing.TraceID) error {
	env, err := message.Wrap(msg, from)
	if err != nil {
		return err
	}
	env.TraceID = traceID

	return s.deliver(to, delivery{env: env})
}

// request sends msg to every target with one token each and waits for all
// of them. A target that cannot be reached counts as a declined answer.
func (s *system) request(ctx context.Context, from *actor, to []addr.Addr, msg any, traceID tracing.TraceID) ([]*message.Envelope, error) {
	if len(to) == 0 {
		return nil, nil
	}

	env, err := message.Wrap(msg, from.addr)
	if err != nil {
		return nil, err
	}
	env.Kind = message.KindRequest
	env.TraceID = traceID

	// Every token exists before the first delivery, so the request cannot
	// resolve while it is still being sent.
	tok := from.table.NewRequest()
	id := tok.ID()

	deliveries := make([]delivery, len(to))
	deliveries[0] = delivery{env: env, token: tok}
	for i := 1; i < len(to); i++ {
		deliveries[i] = delivery{env: env.Clone(), token: from.table.CloneToken(tok)}
	}

	var sendErr error
	for i, target := range to {
		if err := s.deliver(target, deliveries[i]); err != nil {
			from.logger.Debug("request not delivered", "to", target.String(), "error", err)
			deliveries[i].token.Decline()
			sendErr = err
		}
	}

	if len(to) == 1 && sendErr != nil {
		from.table.Discard(id)
		return nil, sendErr
	}

	return from.table.Wait(ctx, id)
}

func (s *system) requestOne(ctx context.Context, from *actor, to addr.Addr, msg any, traceID tracing.TraceID) (*message.Envelope, error) {
	data, err := s.request(ctx, from, []addr.Addr{to}, msg, traceID)
	if err != nil {
		return nil, err
	}

	resp := data[0]
	if resp == nil {
		return nil, fmt.Errorf("%w from %s", ErrNoResponse, to)
	}
	if f, ok := message.As[Failure](resp); ok {
		return nil, fmt.Errorf("%w: %s", ErrRemote, f.Error)
	}
	return resp, nil
}

// Send sends a regular message on behalf of from, starting a new trace.
// from may be addr.Null for messages originating outside the system.
func (s *system) Send(from, to addr.Addr, msg any) error {
	return s.send(from, to, msg, s.newTrace())
}

// Request sends a request on behalf of the actor from and waits for the response.
func (s *system) Request(ctx context.Context, from, to addr.Addr, msg any) (*message.Envelope, error) {
	act, err := s.lookup(from)
	if err != nil {
		return nil, err
	}
	return s.requestOne(ctx, act, to, msg, s.newTrace())
}

// RequestAll sends a request to every target on behalf of from.
func (s *system) RequestAll(ctx context.Context, from addr.Addr, to []addr.Addr, msg any) ([]*message.Envelope, error) {
	act, err := s.lookup(from)
	if err != nil {
		return nil, err
	}
	return s.request(ctx, act, to, msg, s.newTrace())
}

// Broadcast sends msg to every actor except from. Every recipient after the
// first gets its own clone of the payload.
func (s *system) Broadcast(from addr.Addr, msg any) int {
	env, err := message.Wrap(msg, from)
	if err != nil {
		s.logger.Warn("broadcast dropped", "error", err)
		return 0
	}
	env.TraceID = s.newTrace()

	sent := 0
	for _, to := range s.router.List() {
		if to == from {
			continue
		}

		d := delivery{env: env}
		if sent > 0 {
			d.env = env.Clone()
		}
		if err := s.deliver(to, d); err != nil {
			s.logger.Debug("broadcast not delivered", "to", to.String(), "error", err)
			continue
		}
		sent++
	}
	return sent
}

// Shutdown gracefully stops all Actors in the system.
func (s *system) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.shuttingDown.Store(true)
	s.mu.Unlock()

	// Actors stop concurrently: one blocked on a request to another is
	// released once the other declines its queue.
	g := new(errgroup.Group)
	for _, a := range s.router.List() {
		g.Go(func() error {
			err := s.StopActor(a)
			if errors.Is(err, ErrActorNotFound) || errors.Is(err, ErrActorStopped) {
				return nil
			}
			return err
		})
	}

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		s.logger.Info("actor system stopped")
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns statistics for all Actors.
func (s *system) Stats() []ActorStats {
	var stats []ActorStats

	for _, a := range s.router.List() {
		if act, exists := s.router.Lookup(a); exists {
			stats = append(stats, act.Stats())
		}
	}

	return stats
}

// ListActors returns the addresses of all live actors.
func (s *system) ListActors() []addr.Addr {
	return s.router.List()
}

// NodeNo returns the node number of the system.
func (s *system) NodeNo() uint16 {
	return s.nodeNo
}

// RunID identifies this run of the system in logs.
func (s *system) RunID() string {
	return s.runID
}
