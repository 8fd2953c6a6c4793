package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/message"
)

type echo struct{ Text string }

type reply struct{ Text string }

var (
	_ = message.Register[echo]()
	_ = message.Register[reply]()
)

// echoHandler answers every echo request with a reply.
func echoHandler(ctx Context, env *message.Envelope) error {
	if e, ok := message.As[echo](env); ok {
		return ctx.Respond(reply{Text: e.Text})
	}
	return nil
}

func nopHandler(Context, *message.Envelope) error { return nil }

func newTestSystem(t *testing.T) ActorSystem {
	t.Helper()

	sys := NewActorSystemWithNodeNo(3)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sys.Shutdown(ctx)
	})
	return sys
}

func TestNewActor(t *testing.T) {
	sys := newTestSystem(t)

	opts := DefaultActorOptions()
	opts.Name = "test-actor"

	actor, err := sys.NewActor(HandlerFunc(nopHandler), opts)
	require.NoError(t, err)

	assert.Equal(t, uint16(3), actor.Addr().NodeNo())
	assert.Equal(t, "test-actor", actor.Name())

	stats := actor.Stats()
	assert.Equal(t, "test-actor", stats.Name)
	assert.Equal(t, ActorStateIdle, stats.State)
	assert.Zero(t, stats.MessagesProcessed)
	assert.Zero(t, stats.PendingRequests)
}

func TestActorStartStop(t *testing.T) {
	sys := newTestSystem(t)

	actor, err := sys.NewActor(HandlerFunc(nopHandler), ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, actor.Stop())
	assert.Equal(t, ActorStateStopped, actor.Stats().State)

	err = actor.Stop()
	assert.ErrorIs(t, err, ErrActorStopped)

	err = sys.Send(addr.Null, actor.Addr(), echo{Text: "late"})
	assert.ErrorIs(t, err, ErrActorStopped)
}

func TestActorSend(t *testing.T) {
	sys := newTestSystem(t)

	received := make(chan *message.Envelope, 1)
	actor, err := sys.NewActor(HandlerFunc(func(ctx Context, env *message.Envelope) error {
		received <- env
		return nil
	}), ActorOptions{})
	require.NoError(t, err)

	require.NoError(t, sys.Send(addr.Null, actor.Addr(), echo{Text: "hello"}))

	select {
	case env := <-received:
		got, ok := message.As[echo](env)
		require.True(t, ok)
		assert.Equal(t, "hello", got.Text)
		assert.Equal(t, message.KindRegular, env.Kind)
		assert.Equal(t, addr.Null, env.Sender)
		assert.False(t, env.TraceID.IsZero())
		assert.Equal(t, uint16(3), env.TraceID.Layout().NodeNo)
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}

	require.Eventually(t, func() bool {
		return actor.Stats().MessagesProcessed == 1
	}, time.Second, 5*time.Millisecond)
}

func TestSendErrors(t *testing.T) {
	sys := newTestSystem(t)

	err := sys.Send(addr.Null, addr.New(3, 999), echo{})
	assert.ErrorIs(t, err, ErrActorNotFound)

	actor, err := sys.NewActor(HandlerFunc(nopHandler), ActorOptions{})
	require.NoError(t, err)

	type unregistered struct{}
	err = sys.Send(addr.Null, actor.Addr(), unregistered{})
	assert.ErrorIs(t, err, message.ErrUnregistered)
}

func TestMailboxFull(t *testing.T) {
	sys := newTestSystem(t)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	actor, err := sys.NewActor(HandlerFunc(func(ctx Context, env *message.Envelope) error {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}), ActorOptions{MailboxSize: 1})
	require.NoError(t, err)
	defer close(release)

	require.NoError(t, sys.Send(addr.Null, actor.Addr(), echo{}))
	<-started

	require.NoError(t, sys.Send(addr.Null, actor.Addr(), echo{}))
	err = sys.Send(addr.Null, actor.Addr(), echo{})
	assert.ErrorIs(t, err, ErrMailboxFull)
}

// stubActor lets the router be tested without running actors.
type stubActor struct {
	a    addr.Addr
	name string
}

func (s stubActor) Addr() addr.Addr   { return s.a }
func (s stubActor) Name() string      { return s.name }
func (s stubActor) Stop() error       { return nil }
func (s stubActor) Stats() ActorStats { return ActorStats{Addr: s.a, Name: s.name} }

func TestRouter(t *testing.T) {
	router := NewRouter(1)

	actor1 := stubActor{a: addr.New(1, 10)}
	actor2 := stubActor{a: addr.New(1, 20), name: "db"}

	require.NoError(t, router.Register(actor1))
	require.NoError(t, router.Register(actor2))
	assert.Error(t, router.Register(actor1))
	assert.Error(t, router.Register(nil))

	found, exists := router.Lookup(addr.New(1, 10))
	require.True(t, exists)
	assert.Equal(t, actor1.a, found.Addr())

	found, exists = router.LookupName("db")
	require.True(t, exists)
	assert.Equal(t, actor2.a, found.Addr())

	assert.Equal(t, []addr.Addr{actor1.a, actor2.a}, router.List())

	require.NoError(t, router.Unregister(actor2.a))
	_, exists = router.LookupName("db")
	assert.False(t, exists)

	assert.ErrorIs(t, router.Unregister(actor2.a), ErrActorNotFound)
}

func TestActorSystem(t *testing.T) {
	sys := NewActorSystemWithNodeNo(5)
	assert.Equal(t, uint16(5), sys.NodeNo())
	assert.NotEmpty(t, sys.RunID())

	actor, err := sys.NewActor(HandlerFunc(nopHandler), ActorOptions{Name: "test-system-actor"})
	require.NoError(t, err)

	found, exists := sys.GetActor(actor.Addr())
	require.True(t, exists)
	assert.Equal(t, actor.Addr(), found.Addr())

	stats := sys.Stats()
	require.Len(t, stats, 1)
	assert.Equal(t, "test-system-actor", stats[0].Name)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sys.Shutdown(ctx))

	assert.Empty(t, sys.ListActors())
	_, err = sys.NewActor(HandlerFunc(nopHandler), ActorOptions{})
	assert.ErrorIs(t, err, ErrSystemShutdown)
}

func TestServices(t *testing.T) {
	sys := newTestSystem(t)

	svc, err := sys.NewService("echo", HandlerFunc(echoHandler), ActorOptions{})
	require.NoError(t, err)

	found, ok := sys.GetService("echo")
	require.True(t, ok)
	assert.Equal(t, svc.Addr(), found.Addr())

	_, err = sys.NewService("echo", HandlerFunc(echoHandler), ActorOptions{})
	assert.ErrorIs(t, err, addr.ErrNameTaken)

	_, err = sys.NewService("", HandlerFunc(echoHandler), ActorOptions{})
	assert.Error(t, err)

	require.NoError(t, sys.StopActor(svc.Addr()))
	_, ok = sys.GetService("echo")
	assert.False(t, ok)
	assert.ErrorIs(t, sys.StopActor(svc.Addr()), ErrActorNotFound)
}

func TestMaxActors(t *testing.T) {
	sys := NewActorSystemWithOptions(SystemOptions{NodeNo: 1, MaxActors: 2})
	defer sys.Shutdown(context.Background())

	for i := 0; i < 2; i++ {
		_, err := sys.NewActor(HandlerFunc(nopHandler), ActorOptions{})
		require.NoError(t, err)
	}

	_, err := sys.NewActor(HandlerFunc(nopHandler), ActorOptions{})
	assert.ErrorIs(t, err, ErrTooManyActors)
}

func TestBroadcast(t *testing.T) {
	sys := newTestSystem(t)

	got := make(chan addr.Addr, 8)
	handler := HandlerFunc(func(ctx Context, env *message.Envelope) error {
		got <- ctx.Addr()
		return nil
	})

	sender, err := sys.NewActor(handler, ActorOptions{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := sys.NewActor(handler, ActorOptions{})
		require.NoError(t, err)
	}

	assert.Equal(t, 3, sys.Broadcast(sender.Addr(), echo{Text: "all"}))

	for i := 0; i < 3; i++ {
		select {
		case a := <-got:
			assert.NotEqual(t, sender.Addr(), a)
		case <-time.After(time.Second):
			t.Fatal("broadcast not delivered")
		}
	}
}

// tags carries a pointer, so recipients must each get their own copy.
type tags struct{ Items *[]string }

func (t tags) Clone() tags {
	items := append([]string(nil), *t.Items...)
	return tags{Items: &items}
}

var _ = message.Register[tags]()

// collectTags records the payload pointer of every tags message it handles
// and answers requests with the first item.
func collectTags(got chan<- *[]string) HandlerFunc {
	return func(ctx Context, env *message.Envelope) error {
		tg, ok := message.As[tags](env)
		if !ok {
			return nil
		}
		got <- tg.Items
		if env.Kind == message.KindRequest {
			return ctx.Respond(reply{Text: (*tg.Items)[0]})
		}
		return nil
	}
}

func distinct(t *testing.T, got <-chan *[]string, n int) {
	t.Helper()

	seen := make(map[*[]string]bool, n)
	for i := 0; i < n; i++ {
		select {
		case p := <-got:
			assert.Equal(t, []string{"x"}, *p)
			assert.False(t, seen[p], "payload shared between recipients")
			seen[p] = true
		case <-time.After(time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestBroadcastClonesPayload(t *testing.T) {
	sys := newTestSystem(t)
	got := make(chan *[]string, 8)

	sender := spawn(t, sys, nopHandler)
	for i := 0; i < 4; i++ {
		spawn(t, sys, collectTags(got))
	}

	assert.Equal(t, 4, sys.Broadcast(sender.Addr(), tags{Items: &[]string{"x"}}))
	distinct(t, got, 4)
}

