package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// DefaultLifecycleManager implements the LifecycleManager interface.
// Listeners are called synchronously and must not call back into the manager.
type DefaultLifecycleManager struct {
	mu sync.Mutex

	services     map[string]Service
	dependencies map[string][]string

	// started holds the services that started, in start order
	started []string
	running bool

	listeners []func(LifecycleEvent)

	// timeout bounds a single Start or Stop call of a service
	timeout time.Duration
	logger  *slog.Logger
}

// NewLifecycleManager creates a new lifecycle manager
func NewLifecycleManager(timeout time.Duration, logger *slog.Logger) *DefaultLifecycleManager {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &DefaultLifecycleManager{
		services:     make(map[string]Service),
		dependencies: make(map[string][]string),
		timeout:      timeout,
		logger:       logger,
	}
}

// Register registers a service with the lifecycle manager
func (lm *DefaultLifecycleManager) Register(service Service, deps ...string) error {
	if service == nil {
		return fmt.Errorf("service cannot be nil")
	}
	name := service.Name()
	if name == "" {
		return fmt.Errorf("service name cannot be empty")
	}

	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.running {
		return fmt.Errorf("cannot register service %s: %w", name, ErrAlreadyStarted)
	}
	if _, exists := lm.services[name]; exists {
		return fmt.Errorf("%w: %s", ErrServiceExists, name)
	}

	lm.services[name] = service
	lm.dependencies[name] = slices.Clone(deps)
	return nil
}

// Start starts all services in dependency order. When a service fails to
// start, the services already started are stopped again.
func (lm *DefaultLifecycleManager) Start(ctx context.Context) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if lm.running {
		return ErrAlreadyStarted
	}

	order, err := startOrder(lm.services, lm.dependencies)
	if err != nil {
		return fmt.Errorf("failed to calculate start order: %w", err)
	}

	lm.logger.Debug("starting services", "order", order)

	for _, name := range order {
		lm.emit(EventStarting, name, nil)

		startCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Start(startCtx)
		cancel()

		if err != nil {
			lm.emit(EventStartFailed, name, err)
			lm.stopStarted(context.WithoutCancel(ctx))
			return &ApplicationError{Operation: "start", Service: name, Err: err}
		}

		lm.started = append(lm.started, name)
		lm.emit(EventStarted, name, nil)
	}

	lm.running = true
	return nil
}

// Stop stops the started services in reverse start order. Every service
// is asked to stop; the errors are joined.
func (lm *DefaultLifecycleManager) Stop(ctx context.Context) error {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	if !lm.running {
		return nil
	}
	lm.running = false

	return lm.stopStarted(ctx)
}

func (lm *DefaultLifecycleManager) stopStarted(ctx context.Context) error {
	var errs []error
	for i := len(lm.started) - 1; i >= 0; i-- {
		name := lm.started[i]
		lm.emit(EventStopping, name, nil)

		stopCtx, cancel := context.WithTimeout(ctx, lm.timeout)
		err := lm.services[name].Stop(stopCtx)
		cancel()

		if err != nil {
			lm.emit(EventStopFailed, name, err)
			errs = append(errs, &ApplicationError{Operation: "stop", Service: name, Err: err})
			continue
		}
		lm.emit(EventStopped, name, nil)
	}
	lm.started = nil

	return errors.Join(errs...)
}

// Health returns the health status of all services
func (lm *DefaultLifecycleManager) Health(ctx context.Context) map[string]HealthStatus {
	lm.mu.Lock()
	services := make(map[string]Service, len(lm.services))
	for name, svc := range lm.services {
		services[name] = svc
	}
	lm.mu.Unlock()

	health := make(map[string]HealthStatus, len(services))
	for name, svc := range services {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		status, err := svc.Health(healthCtx)
		cancel()

		if err != nil {
			status = HealthStatus{State: HealthUnhealthy, Message: err.Error()}
		}
		if status.LastCheck.IsZero() {
			status.LastCheck = time.Now()
		}
		health[name] = status
	}
	return health
}

// Running reports whether Start completed and Stop was not called since.
func (lm *DefaultLifecycleManager) Running() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.running
}

// Services returns all registered service names
func (lm *DefaultLifecycleManager) Services() []string {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	names := make([]string, 0, len(lm.services))
	for name := range lm.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// AddListener adds a lifecycle event listener
func (lm *DefaultLifecycleManager) AddListener(listener func(LifecycleEvent)) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	lm.listeners = append(lm.listeners, listener)
}

// emit is called with lm.mu held.
func (lm *DefaultLifecycleManager) emit(typ EventType, service string, err error) {
	if err != nil {
		lm.logger.Error("lifecycle", "event", string(typ), "service", service, "error", err)
	} else {
		lm.logger.Info("lifecycle", "event", string(typ), "service", service)
	}

	event := LifecycleEvent{Type: typ, Service: service, Timestamp: time.Now(), Error: err}
	for _, listener := range lm.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					lm.logger.Error("lifecycle listener panicked", "panic", r)
				}
			}()
			listener(event)
		}()
	}
}

// startOrder sorts services topologically (Kahn). Ties are broken by name
// so the order is stable.
func startOrder(services map[string]Service, deps map[string][]string) ([]string, error) {
	inDegree := make(map[string]int, len(services))
	dependents := make(map[string][]string, len(services))

	for name := range services {
		for _, dep := range deps[name] {
			if _, ok := services[dep]; !ok {
				return nil, fmt.Errorf("%w: %s requires %s", ErrUnknownDependency, name, dep)
			}
			dependents[dep] = append(dependents[dep], name)
			inDegree[name]++
		}
	}

	var ready []string
	for name := range services {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	order := make([]string, 0, len(services))
	for len(ready) > 0 {
		slices.Sort(ready)
		name := ready[0]
		ready = ready[1:]
		order = append(order, name)

		for _, d := range dependents[name] {
			inDegree[d]--
			if inDegree[d] == 0 {
				ready = append(ready, d)
			}
		}
	}

	if len(order) != len(services) {
		return nil, ErrDependencyCycle
	}
	return order, nil
}
