package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	promadapter "github.com/najoast/sngo/v2/adapters/prometheus"
	"github.com/najoast/sngo/v2/config"
	"github.com/najoast/sngo/v2/configurer"
	"github.com/najoast/sngo/v2/core"
	"github.com/najoast/sngo/v2/node"
)

// DefaultApplication wires one node together. It is built by
// ApplicationBuilder.
type DefaultApplication struct {
	cfg       *config.Config
	logger    *slog.Logger
	logCloser io.Closer

	registry  *prometheus.Registry
	system    core.ActorSystem
	lifecycle *DefaultLifecycleManager

	configurer *configurerService
	metrics    *metricsService

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

func newApplication(cfg *config.Config, watcher *config.Watcher, logger *slog.Logger, logCloser io.Closer) (*DefaultApplication, error) {
	if err := node.Set(cfg.Node.NodeNo); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := promadapter.NewAllMetrics(registry, cfg.Metrics.Namespace)

	system := core.NewActorSystemWithOptions(core.SystemOptions{
		NodeNo:    node.No(),
		MaxActors: cfg.Actor.MaxActors,
		DefaultActorOptions: core.ActorOptions{
			MailboxSize:    cfg.Actor.DefaultMailboxSize,
			ProcessTimeout: cfg.Actor.Timeouts.Process,
		},
		Logger:         logger,
		ActorMetrics:   metrics.Actor,
		RequestMetrics: metrics.Request,
	})

	app := &DefaultApplication{
		cfg:       cfg,
		logger:    logger,
		logCloser: logCloser,
		registry:  registry,
		system:    system,
		lifecycle: NewLifecycleManager(cfg.Actor.Timeouts.Shutdown, logger),
	}

	if err := app.lifecycle.Register(&actorSystemService{app: app}); err != nil {
		return nil, err
	}

	app.configurer = &configurerService{app: app, watcher: watcher}
	if err := app.lifecycle.Register(app.configurer, ActorSystemServiceName); err != nil {
		return nil, err
	}

	if cfg.Metrics.Enabled {
		app.metrics = &metricsService{app: app, cfg: cfg.Metrics}
		if err := app.lifecycle.Register(app.metrics, ActorSystemServiceName); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Run starts every service and blocks until ctx is done, SIGINT or SIGTERM
// arrives, or the metrics server fails. It then shuts the node down within
// the configured shutdown timeout.
func (app *DefaultApplication) Run(ctx context.Context) error {
	app.mu.Lock()
	if app.running {
		app.mu.Unlock()
		return ErrAlreadyRunning
	}
	app.running = true
	app.mu.Unlock()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app.mu.Lock()
	app.cancel = cancel
	app.mu.Unlock()

	if err := app.lifecycle.Start(ctx); err != nil {
		app.mu.Lock()
		app.running = false
		app.mu.Unlock()
		return fmt.Errorf("failed to start services: %w", err)
	}

	app.logger.Info("node started",
		"app", app.cfg.App.Name,
		"env", app.cfg.App.Environment.String(),
		"run_id", app.system.RunID(),
	)

	g, gctx := errgroup.WithContext(ctx)
	if app.metrics != nil {
		g.Go(func() error {
			return app.metrics.wait(gctx)
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		app.logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.cfg.Actor.Timeouts.Shutdown)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Shutdown stops every service in reverse start order and makes Run return.
func (app *DefaultApplication) Shutdown(ctx context.Context) error {
	app.mu.Lock()
	if !app.running {
		app.mu.Unlock()
		return nil
	}
	app.running = false
	cancel := app.cancel
	app.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	err := app.lifecycle.Stop(ctx)
	if err != nil {
		app.logger.Error("shutdown incomplete", "error", err)
	}
	if cerr := app.logCloser.Close(); cerr != nil {
		err = errors.Join(err, cerr)
	}
	return err
}

// Config returns the configuration the node started with.
func (app *DefaultApplication) Config() *config.Config {
	return app.cfg
}

// Logger returns the node logger.
func (app *DefaultApplication) Logger() *slog.Logger {
	return app.logger
}

// System returns the actor system of the node.
func (app *DefaultApplication) System() core.ActorSystem {
	return app.system
}

// Configurer returns the configurer service, or nil before Run.
func (app *DefaultApplication) Configurer() *configurer.Configurer {
	return app.configurer.get()
}

// Registry returns the Prometheus registry holding the node metrics.
func (app *DefaultApplication) Registry() *prometheus.Registry {
	return app.registry
}

// MetricsHandler returns the handler of the metrics server. It serves the
// metrics path and /healthz whether or not the server is enabled.
func (app *DefaultApplication) MetricsHandler() http.Handler {
	svc := app.metrics
	if svc == nil {
		svc = &metricsService{app: app, cfg: app.cfg.Metrics}
	}
	return svc.handler(app.registry)
}

// MetricsAddr returns the address the metrics server listens on, or "".
func (app *DefaultApplication) MetricsAddr() string {
	if app.metrics == nil {
		return ""
	}
	return app.metrics.addr()
}

// LifecycleManager returns the lifecycle manager
func (app *DefaultApplication) LifecycleManager() LifecycleManager {
	return app.lifecycle
}

type namedService struct {
	service Service
	deps    []string
}

type namedHandler struct {
	name    string
	handler core.MessageHandler
}

// ApplicationBuilder helps build and configure applications
type ApplicationBuilder struct {
	configFile string
	cfg        *config.Config
	loader     *config.Loader
	logOutput  io.Writer

	services []namedService
	handlers []namedHandler
}

// NewApplicationBuilder creates a new application builder
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{loader: config.NewLoader()}
}

// WithConfig uses cfg as is. It takes precedence over WithConfigFile.
func (b *ApplicationBuilder) WithConfig(cfg *config.Config) *ApplicationBuilder {
	b.cfg = cfg
	return b
}

// WithConfigFile loads the configuration from filename and watches it for
// changes, which the configurer then distributes to every actor.
func (b *ApplicationBuilder) WithConfigFile(filename string) *ApplicationBuilder {
	b.configFile = filename
	return b
}

// WithLoader replaces the configuration loader.
func (b *ApplicationBuilder) WithLoader(loader *config.Loader) *ApplicationBuilder {
	b.loader = loader
	return b
}

// WithLogOutput sends the node log to w instead of the configured output.
func (b *ApplicationBuilder) WithLogOutput(w io.Writer) *ApplicationBuilder {
	b.logOutput = w
	return b
}

// WithService registers a service started after deps.
func (b *ApplicationBuilder) WithService(service Service, deps ...string) *ApplicationBuilder {
	b.services = append(b.services, namedService{service: service, deps: deps})
	return b
}

// WithHandler runs handler as a named actor once the actor system is up.
func (b *ApplicationBuilder) WithHandler(name string, handler core.MessageHandler) *ApplicationBuilder {
	b.handlers = append(b.handlers, namedHandler{name: name, handler: handler})
	return b
}

// Build builds the configured application
func (b *ApplicationBuilder) Build() (*DefaultApplication, error) {
	cfg := b.cfg
	var watcher *config.Watcher

	switch {
	case cfg != nil:
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid configuration: %w", err)
		}
	case b.configFile != "":
		w, err := config.NewWatcher(b.configFile, b.loader)
		if err != nil {
			return nil, err
		}
		watcher = w
		cfg = w.GetConfig()
	default:
		c, err := b.loader.AutoLoad()
		if err != nil {
			return nil, err
		}
		cfg = c
	}

	app, err := b.assemble(cfg, watcher)
	if err != nil {
		if watcher != nil {
			watcher.Stop()
		}
		return nil, err
	}
	return app, nil
}

func (b *ApplicationBuilder) assemble(cfg *config.Config, watcher *config.Watcher) (*DefaultApplication, error) {
	logger, closer, err := b.logger(cfg.Log)
	if err != nil {
		return nil, err
	}
	if watcher != nil {
		watcher.SetLogger(logger)
	}

	app, err := newApplication(cfg, watcher, logger, closer)
	if err != nil {
		closer.Close()
		return nil, err
	}

	for _, h := range b.handlers {
		svc := &handlerService{app: app, name: h.name, handler: h.handler}
		if err := app.lifecycle.Register(svc, ActorSystemServiceName); err != nil {
			closer.Close()
			return nil, err
		}
	}
	for _, s := range b.services {
		if err := app.lifecycle.Register(s.service, s.deps...); err != nil {
			closer.Close()
			return nil, err
		}
	}
	return app, nil
}

func (b *ApplicationBuilder) logger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	if b.logOutput != nil {
		return config.NewLoggerTo(cfg, b.logOutput)
	}
	return config.NewLogger(cfg)
}
