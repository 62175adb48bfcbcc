package connector

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Factory creates an unconnected Connector.
type Factory func(logger *zap.Logger) Connector

// Registry maps driver names to factories and service names to live
// connections.
type Registry struct {
	mu        sync.RWMutex
	logger    *zap.Logger
	factories map[string]Factory
	active    map[string]Connector // keyed by service name
}

// NewRegistry creates an empty Registry. Drivers are registered explicitly
// with RegisterDriver.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:    logger,
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
	}
}

// RegisterDriver registers a connector factory for a driver name.
func (r *Registry) RegisterDriver(driver string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[driver] = factory
}

// Drivers returns the registered driver names, sorted.
func (r *Registry) Drivers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.factories)
}

// Connect creates a connector for cfg.Driver, connects it and stores it
// under serviceName, replacing any previous connection of that name.
func (r *Registry) Connect(serviceName string, cfg ConnectionConfig) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[cfg.Driver]
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s (available: %v)", cfg.Driver, sortedKeys(r.factories))
	}

	if cfg.Logger == nil {
		cfg.Logger = r.logger
	}
	conn := factory(cfg.Logger)
	if err := conn.Connect(cfg); err != nil {
		return nil, fmt.Errorf("connect service %q: %w", serviceName, err)
	}

	if existing, ok := r.active[serviceName]; ok {
		if err := existing.Disconnect(); err != nil {
			r.logger.Warn("closing replaced connection", zap.String("service", serviceName), zap.Error(err))
		}
	}

	r.active[serviceName] = conn
	r.logger.Info("service connected", zap.String("service", serviceName), zap.String("driver", cfg.Driver))
	return conn, nil
}

// Get returns the connector of a service.
func (r *Registry) Get(serviceName string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[serviceName]
	if !ok {
		return nil, fmt.Errorf("service %q not found (available: %v)", serviceName, sortedKeys(r.active))
	}
	return conn, nil
}

// Disconnect removes and disconnects a service.
func (r *Registry) Disconnect(serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[serviceName]
	if !ok {
		return fmt.Errorf("service %q not found", serviceName)
	}

	delete(r.active, serviceName)
	return conn.Disconnect()
}

// CloseAll disconnects every service.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, conn := range r.active {
		if err := conn.Disconnect(); err != nil {
			r.logger.Warn("disconnect", zap.String("service", name), zap.Error(err))
		}
		delete(r.active, name)
	}
}

// ListServices returns the active service names, sorted.
func (r *Registry) ListServices() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.active)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
