package source

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Checker-Finance/bond-monitor/pkg/config"
)

// Deps carries what a factory may need to build its source.
type Deps struct {
	Config *config.Config
	Logger *zap.Logger
	Token  string // resolved provider credential
}

// Factory builds a MarketDataSource.
type Factory func(ctx context.Context, deps Deps) (MarketDataSource, error)

// Registry maps configured names ("tushare", "static", ...) to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name (case-insensitive).
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[strings.ToLower(strings.TrimSpace(name))] = f
}

// New builds the source registered under name.
func (r *Registry) New(ctx context.Context, name string, deps Deps) (MarketDataSource, error) {
	key := strings.ToLower(strings.TrimSpace(name))

	r.mu.RLock()
	f, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported data source %q (known: %s)", name, strings.Join(r.Names(), ", "))
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return f(ctx, deps)
}

// Names lists registered sources in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
