package bootstrap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/process"

	"github.com/najoast/sngo/v2/config"
	"github.com/najoast/sngo/v2/configurer"
	"github.com/najoast/sngo/v2/core"
	"github.com/najoast/sngo/v2/tracing"
)

// Names of the built-in services.
const (
	ActorSystemServiceName = "actor-system"
	ConfigurerServiceName  = "configurer"
	MetricsServiceName     = "metrics"
)

// actorSystemService shuts the actor system down when stopped. The system
// itself is created with the application so handlers can be registered
// before Start.
type actorSystemService struct {
	app *DefaultApplication
}

func (s *actorSystemService) Name() string { return ActorSystemServiceName }

func (s *actorSystemService) Start(ctx context.Context) error { return nil }

func (s *actorSystemService) Stop(ctx context.Context) error {
	return s.app.system.Shutdown(ctx)
}

func (s *actorSystemService) Health(ctx context.Context) (HealthStatus, error) {
	stats := s.app.system.Stats()

	pending := 0
	for _, st := range stats {
		pending += st.PendingRequests
	}

	return HealthStatus{
		State:   HealthHealthy,
		Message: "actor system running",
		Data: map[string]any{
			"run_id":           s.app.system.RunID(),
			"node_no":          s.app.system.NodeNo(),
			"actors":           len(stats),
			"pending_requests": pending,
		},
	}, nil
}

// handlerService runs a named actor for the lifetime of the application.
type handlerService struct {
	app     *DefaultApplication
	name    string
	handler core.MessageHandler

	mu    sync.Mutex
	actor core.Actor
}

func (s *handlerService) Name() string { return s.name }

func (s *handlerService) Start(ctx context.Context) error {
	a, err := s.app.system.NewService(s.name, s.handler, core.ActorOptions{})
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.actor = a
	s.mu.Unlock()
	return nil
}

func (s *handlerService) Stop(ctx context.Context) error {
	s.mu.Lock()
	a := s.actor
	s.actor = nil
	s.mu.Unlock()

	if a == nil {
		return nil
	}
	err := s.app.system.StopActor(a.Addr())
	if errors.Is(err, core.ErrActorNotFound) {
		return nil
	}
	return err
}

func (s *handlerService) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	a := s.actor
	s.mu.Unlock()

	if a == nil {
		return HealthStatus{State: HealthStopped}, nil
	}

	st := a.Stats()
	return HealthStatus{
		State:   HealthHealthy,
		Message: st.State.String(),
		Data: map[string]any{
			"addr":      st.Addr.String(),
			"processed": st.MessagesProcessed,
			"mailbox":   st.MailboxSize,
		},
	}, nil
}

// configurerService runs the configurer and feeds it the reloads of the
// configuration watcher, if any.
type configurerService struct {
	app     *DefaultApplication
	watcher *config.Watcher

	mu         sync.Mutex
	configurer *configurer.Configurer
}

func (s *configurerService) Name() string { return ConfigurerServiceName }

func (s *configurerService) Start(ctx context.Context) error {
	c, err := configurer.Start(s.app.system, s.app.cfg, s.app.logger)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.configurer = c
	s.mu.Unlock()

	if s.watcher == nil {
		return nil
	}
	c.Watch(s.watcher)
	return s.watcher.Start()
}

func (s *configurerService) Stop(ctx context.Context) error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Stop()
}

func (s *configurerService) Health(ctx context.Context) (HealthStatus, error) {
	c := s.get()
	if c == nil {
		return HealthStatus{State: HealthStopped}, nil
	}

	return HealthStatus{
		State: HealthHealthy,
		Data: map[string]any{
			"addr":     c.Addr().String(),
			"watching": s.watcher != nil,
			"app":      c.Current().App.Name,
		},
	}, nil
}

func (s *configurerService) get() *configurer.Configurer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.configurer
}

// metricsService exposes the Prometheus registry, the health of every
// service and the actor table over HTTP.
type metricsService struct {
	app *DefaultApplication
	cfg config.MetricsConfig

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	served   chan error
}

func (s *metricsService) Name() string { return MetricsServiceName }

// handler returns the HTTP handler of the metrics server: the Prometheus
// registry on the configured path plus a small JSON API.
func (s *metricsService) handler(gatherer prometheus.Gatherer) http.Handler {
	r := mux.NewRouter()
	r.Handle(s.cfg.Path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{
		ErrorLog: slog.NewLogLogger(s.app.logger.Handler(), slog.LevelError),
	})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/api/actors", s.listActors).Methods(http.MethodGet)
	r.HandleFunc("/api/trace/{id}", s.decodeTrace).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", s.listResources).Methods(http.MethodGet)
	return r
}

func (s *metricsService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.app.logger.Warn("response encoding failed", "error", err)
	}
}

func (s *metricsService) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.app.lifecycle.Health(r.Context()))
}

type actorRsp struct {
	Addr              string    `json:"addr"`
	Name              string    `json:"name,omitempty"`
	State             string    `json:"state"`
	MessagesProcessed uint64    `json:"messages_processed"`
	MailboxSize       int       `json:"mailbox_size"`
	PendingRequests   int       `json:"pending_requests"`
	CreatedAt         time.Time `json:"created_at"`
}

func (s *metricsService) listActors(w http.ResponseWriter, _ *http.Request) {
	stats := s.app.system.Stats()
	rsp := make([]actorRsp, 0, len(stats))
	for _, st := range stats {
		rsp = append(rsp, actorRsp{
			Addr:              st.Addr.String(),
			Name:              st.Name,
			State:             st.State.String(),
			MessagesProcessed: st.MessagesProcessed,
			MailboxSize:       st.MailboxSize,
			PendingRequests:   st.PendingRequests,
			CreatedAt:         st.CreatedAt,
		})
	}
	slices.SortFunc(rsp, func(a, b actorRsp) int { return strings.Compare(a.Addr, b.Addr) })
	s.writeJSON(w, http.StatusOK, rsp)
}

type traceRsp struct {
	TraceID   tracing.TraceID `json:"trace_id"`
	Timestamp time.Time       `json:"timestamp"`
	NodeNo    uint16          `json:"node_no"`
	Chunk     uint32          `json:"chunk"`
	Counter   uint32          `json:"counter"`
}

func (s *metricsService) decodeTrace(w http.ResponseWriter, r *http.Request) {
	id, err := tracing.ParseTraceID(mux.Vars(r)["id"])
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	l := id.Layout()
	s.writeJSON(w, http.StatusOK, traceRsp{
		TraceID:   id,
		Timestamp: l.Timestamp.Time(time.Now()).UTC(),
		NodeNo:    l.NodeNo,
		Chunk:     l.ChunkNo(),
		Counter:   l.Counter(),
	})
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (s *metricsService) listResources(w http.ResponseWriter, _ *http.Request) {
	rsp, err := processResources()
	if err != nil {
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, rsp)
}

func processResources() (resourceRsp, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return resourceRsp{}, err
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		return resourceRsp{}, err
	}

	mem, err := proc.MemoryInfo()
	if err != nil {
		return resourceRsp{}, err
	}

	return resourceRsp{CPUPercent: cpuPercent, MemorySize: mem.RSS}, nil
}

func (s *metricsService) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.cfg.Address, strconv.Itoa(s.cfg.Port))

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	server := &http.Server{Handler: s.handler(s.app.registry)}
	served := make(chan error, 1)
	go func() {
		err := server.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		served <- err
	}()

	s.mu.Lock()
	s.server = server
	s.listener = ln
	s.served = served
	s.mu.Unlock()

	s.app.logger.Info("metrics server listening", "address", ln.Addr().String(), "path", s.cfg.Path)
	return nil
}

func (s *metricsService) Stop(ctx context.Context) error {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.mu.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

func (s *metricsService) Health(ctx context.Context) (HealthStatus, error) {
	s.mu.Lock()
	serving := s.server != nil
	s.mu.Unlock()

	if !serving {
		return HealthStatus{State: HealthStopped}, nil
	}
	return HealthStatus{State: HealthHealthy, Data: map[string]any{"address": s.addr()}}, nil
}

// addr returns the address the server listens or listened on, or "" before Start.
func (s *metricsService) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// wait blocks until the server stops serving and returns its error.
func (s *metricsService) wait(ctx context.Context) error {
	s.mu.Lock()
	served := s.served
	s.mu.Unlock()

	if served == nil {
		return nil
	}

	select {
	case err := <-served:
		if err != nil {
			return &ApplicationError{Operation: "serve", Service: MetricsServiceName, Err: err}
		}
		return nil
	case <-ctx.Done():
		return nil
	}
}
