package connector

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mediatally/mediatally/internal/schema"
)

// Factory returns a new, unconnected Connector.
type Factory func() Connector

// Registry maps driver names to factories and service names to live
// connections. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	active    map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		active:    make(map[string]Connector),
	}
}

// RegisterDriver registers the factory for a driver name.
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

// Dialect returns the dialect of a driver without connecting.
func (r *Registry) Dialect(driver string) (schema.Dialect, error) {
	r.mu.RLock()
	factory, ok := r.factories[driver]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported driver: %s (available: %v)", driver, r.Drivers())
	}
	return factory(), nil
}

// Connect opens a connection for serviceName, replacing any previous one.
func (r *Registry) Connect(serviceName string, cfg ConnectionConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	factory, ok := r.factories[cfg.Driver]
	if !ok {
		return fmt.Errorf("unsupported driver: %s (available: %v)", cfg.Driver, sortedKeys(r.factories))
	}

	cfg.DSN = SanitizeDSN(cfg.Driver, cfg.DSN)
	conn := factory()
	if err := conn.Connect(cfg); err != nil {
		return fmt.Errorf("connect service %q: %w", serviceName, err)
	}

	if existing, ok := r.active[serviceName]; ok {
		existing.Disconnect()
	}
	r.active[serviceName] = conn
	return nil
}

// Get returns the live connector of a service.
func (r *Registry) Get(serviceName string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.active[serviceName]
	if !ok {
		return nil, fmt.Errorf("service %q not connected (active: %v)", serviceName, sortedKeys(r.active))
	}
	return conn, nil
}

// Disconnect closes and forgets a service.
func (r *Registry) Disconnect(serviceName string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.active[serviceName]
	if !ok {
		return fmt.Errorf("service %q not connected", serviceName)
	}
	delete(r.active, serviceName)
	return conn.Disconnect()
}

// CloseAll disconnects every service.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for name, conn := range r.active {
		conn.Disconnect()
		delete(r.active, name)
	}
}

// ListServices returns the connected service names, sorted.
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
