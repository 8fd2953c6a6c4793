package configurer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/najoast/sngo/v2/config"
	"github.com/najoast/sngo/v2/core"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/messages"
)

// participant records the configuration it was switched to.
type participant struct {
	veto    string
	fail    bool
	ack     bool
	updates atomic.Int32
	current atomic.Pointer[config.Config]
}

func (p *participant) HandleMessage(ctx core.Context, env *message.Envelope) error {
	switch msg := env.Message().(type) {
	case messages.ValidateConfig:
		if p.fail {
			return errors.New("cannot validate")
		}
		if p.veto != "" {
			return ctx.Respond(messages.ConfigRejected{Reason: p.veto})
		}
	case messages.UpdateConfig:
		p.updates.Add(1)
		p.current.Store(msg.Config)
		if p.ack {
			return ctx.Respond(messages.ConfigUpdated{})
		}
	}
	return nil
}

func setup(t *testing.T, participants ...*participant) (*Configurer, core.ActorSystem) {
	t.Helper()

	sys := core.NewActorSystemWithNodeNo(1)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = sys.Shutdown(ctx)
	})

	for _, p := range participants {
		_, err := sys.NewActor(p, core.ActorOptions{})
		require.NoError(t, err)
	}

	c, err := Start(sys, config.DefaultConfig(), nil)
	require.NoError(t, err)
	return c, sys
}

func newConfig(name string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.App.Name = name
	return cfg
}

func TestApplyAccepted(t *testing.T) {
	silent := &participant{}
	acking := &participant{ack: true}
	c, sys := setup(t, silent, acking)

	found, ok := sys.GetService(ServiceName)
	require.True(t, ok)
	assert.Equal(t, c.Addr(), found.Addr())

	report, err := c.Apply(t.Context(), newConfig("v2"))
	require.NoError(t, err)

	assert.True(t, report.Accepted())
	assert.Equal(t, 2, report.Targets)
	assert.Equal(t, 1, report.Updated)
	assert.Empty(t, report.Failures)

	assert.Equal(t, "v2", c.Current().App.Name)
	assert.Equal(t, int32(1), silent.updates.Load())
	assert.Equal(t, int32(1), acking.updates.Load())

	// Every actor got its own copy.
	require.NotNil(t, acking.current.Load())
	assert.NotSame(t, c.Current(), acking.current.Load())
	assert.NotSame(t, silent.current.Load(), acking.current.Load())
}

func TestApplyRejected(t *testing.T) {
	ok := &participant{ack: true}
	vetoing := &participant{veto: "port in use"}
	c, _ := setup(t, ok, vetoing)

	report, err := c.Apply(t.Context(), newConfig("v3"))
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "port in use")

	assert.False(t, report.Accepted())
	assert.Len(t, report.Rejections, 1)
	assert.Zero(t, report.Updated)

	assert.Zero(t, ok.updates.Load())
	assert.Equal(t, "sngo-app", c.Current().App.Name)
}

func TestApplyHandlerFailureRejects(t *testing.T) {
	failing := &participant{fail: true}
	c, _ := setup(t, failing)

	_, err := c.Apply(t.Context(), newConfig("v4"))
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "cannot validate")
	assert.Zero(t, failing.updates.Load())
}

func TestApplyWithoutParticipants(t *testing.T) {
	c, _ := setup(t)

	report, err := c.Apply(t.Context(), newConfig("alone"))
	require.NoError(t, err)
	assert.Zero(t, report.Targets)
	assert.Equal(t, "alone", c.Current().App.Name)
}

func TestWatchAppliesReloadedConfig(t *testing.T) {
	acking := &participant{ack: true}
	c, _ := setup(t, acking)

	dir := t.TempDir()
	path := filepath.Join(dir, "sngo.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: before\n"), 0o644))

	watcher, err := config.NewWatcher(path, config.NewLoader())
	require.NoError(t, err)
	defer watcher.Stop()

	c.Watch(watcher)

	require.NoError(t, os.WriteFile(path, []byte("app:\n  name: after\n"), 0o644))
	require.NoError(t, watcher.Reload())

	require.Eventually(t, func() bool {
		return c.Current().App.Name == "after"
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, "after", acking.current.Load().App.Name)
}
