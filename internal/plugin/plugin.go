// Package plugin defines the inventory plugin interface for rouse.
package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/yairfalse/rouse/pkg/instance"
)

// Plugin is the interface all cloud provider plugins must implement.
type Plugin interface {
	// Name returns the plugin identifier (e.g., "aws")
	Name() string

	// ListInstances returns every compute instance visible to the plugin.
	ListInstances(ctx context.Context) ([]instance.Instance, error)

	// StartInstances requests a start for each id without waiting.
	StartInstances(ctx context.Context, ids []string) error
}

// Registry holds registered plugins.
var (
	registry = make(map[string]Plugin)
	mu       sync.RWMutex
)

// Register adds a plugin to the registry.
func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Name()] = p
}

// Get returns a plugin by name.
func Get(name string) (Plugin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// Names returns all registered plugin names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all plugins from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Plugin)
}
