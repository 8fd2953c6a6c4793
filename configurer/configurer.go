// Package configurer distributes configuration updates to every actor.
//
// An update happens in two rounds. First every actor receives
// messages.ValidateConfig; a single messages.ConfigRejected (or a failing
// handler) vetoes the update, while actors that do not answer accept it.
// Then every actor receives messages.UpdateConfig and acknowledges with
// messages.ConfigUpdated.
package configurer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/najoast/sngo/v2/addr"
	"github.com/najoast/sngo/v2/config"
	"github.com/najoast/sngo/v2/core"
	"github.com/najoast/sngo/v2/message"
	"github.com/najoast/sngo/v2/messages"
)

// ServiceName is the name the configurer registers under.
const ServiceName = "configurer"

// ErrRejected is returned by Apply when at least one actor vetoed the update.
var ErrRejected = errors.New("configuration rejected")

// Report describes the outcome of one update.
type Report struct {
	// Targets is the number of actors asked
	Targets int

	// Rejections holds the reasons of vetoing actors
	Rejections []string

	// Updated counts actors that acknowledged UpdateConfig
	Updated int

	// Failures holds the reasons of actors that could not apply the update
	Failures []string
}

// Accepted reports whether the validation round passed.
func (r Report) Accepted() bool {
	return len(r.Rejections) == 0
}

// apply asks the configurer actor to run an update.
type apply struct {
	Config *config.Config
}

var (
	_ = message.Register[Report]()
	_ = message.Register[apply]()
)

// Configurer is the handle to the configurer service.
type Configurer struct {
	system  core.ActorSystem
	self    core.Actor
	timeout time.Duration
	logger  *slog.Logger

	current atomic.Pointer[config.Config]
}

// Start launches the configurer service with initial as the current
// configuration. Requests to other actors are bounded by the request timeout
// of the configuration being applied.
func Start(system core.ActorSystem, initial *config.Config, logger *slog.Logger) (*Configurer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Configurer{
		system:  system,
		timeout: initial.Actor.Timeouts.Request,
		logger:  logger.With("service", ServiceName),
	}
	c.current.Store(initial)

	self, err := system.NewService(ServiceName, core.HandlerFunc(c.handle), core.ActorOptions{
		Logger: c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start configurer: %w", err)
	}
	c.self = self

	return c, nil
}

// Addr returns the address of the configurer service.
func (c *Configurer) Addr() addr.Addr {
	return c.self.Addr()
}

// Current returns the last configuration every actor accepted.
func (c *Configurer) Current() *config.Config {
	return c.current.Load()
}

// Apply runs an update with cfg and waits for its outcome. Updates are
// serialised by the configurer mailbox.
func (c *Configurer) Apply(ctx context.Context, cfg *config.Config) (Report, error) {
	resp, err := c.system.Request(ctx, c.self.Addr(), c.self.Addr(), apply{Config: cfg})
	if err != nil {
		return Report{}, err
	}

	report, ok := message.As[Report](resp)
	if !ok {
		return Report{}, fmt.Errorf("unexpected response %s", resp.Name())
	}
	if !report.Accepted() {
		return report, fmt.Errorf("%w: %s", ErrRejected, strings.Join(report.Rejections, "; "))
	}
	return report, nil
}

// Watch applies every configuration the watcher reloads.
func (c *Configurer) Watch(w *config.Watcher) {
	w.OnConfigChange(func(_, newConfig *config.Config) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*c.requestTimeout(newConfig))
		defer cancel()

		report, err := c.Apply(ctx, newConfig)
		if err != nil {
			c.logger.Warn("configuration not applied", "error", err)
			return
		}
		c.logger.Info("configuration applied",
			"targets", report.Targets, "updated", report.Updated, "failures", len(report.Failures))
	})
}

func (c *Configurer) requestTimeout(cfg *config.Config) time.Duration {
	if cfg != nil && cfg.Actor.Timeouts.Request > 0 {
		return cfg.Actor.Timeouts.Request
	}
	return c.timeout
}

func (c *Configurer) handle(ctx core.Context, env *message.Envelope) error {
	req, ok := message.As[apply](env)
	if !ok {
		return nil
	}

	ctx.StartTrace()
	ctx.Logger().Info("applying configuration")

	report, err := c.update(ctx, req.Config)
	if err != nil {
		return err
	}
	if report.Accepted() {
		c.current.Store(req.Config)
	}

	return ctx.Respond(report)
}

func (c *Configurer) update(ctx core.Context, cfg *config.Config) (Report, error) {
	var targets []addr.Addr
	for _, a := range c.system.ListActors() {
		if a != ctx.Addr() {
			targets = append(targets, a)
		}
	}
	report := Report{Targets: len(targets)}

	reqCtx, cancel := context.WithTimeout(ctx, c.requestTimeout(cfg))
	defer cancel()

	validated, err := ctx.RequestAll(reqCtx, targets, messages.ValidateConfig{Config: cfg.Clone()})
	if err != nil {
		return report, fmt.Errorf("validation round: %w", err)
	}
	for _, resp := range validated {
		if reason, rejected := rejection(resp); rejected {
			report.Rejections = append(report.Rejections, reason)
		}
	}
	if !report.Accepted() {
		return report, nil
	}

	updated, err := ctx.RequestAll(reqCtx, targets, messages.UpdateConfig{Config: cfg.Clone()})
	if err != nil {
		return report, fmt.Errorf("update round: %w", err)
	}
	for _, resp := range updated {
		if message.Is[messages.ConfigUpdated](resp) {
			report.Updated++
		} else if reason, failed := rejection(resp); failed {
			report.Failures = append(report.Failures, reason)
		}
	}

	return report, nil
}

// rejection extracts the veto carried by resp, if any. Absent responses
// and unrelated answers are not vetoes.
func rejection(resp *message.Envelope) (string, bool) {
	if r, ok := message.As[messages.ConfigRejected](resp); ok {
		return fmt.Sprintf("%s: %s", resp.Sender, r.Reason), true
	}
	if f, ok := message.As[core.Failure](resp); ok {
		return fmt.Sprintf("%s: %s", resp.Sender, f.Error), true
	}
	return "", false
}
