package ratelimiter

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// DefaultConfigName is the name under which the registry default config is
// stored among the configuration templates.
const DefaultConfigName = "default"

// Registry owns named limiters. Looking up a name that already exists
// returns the shared instance; removing a name closes its limiter.
//
// # Example
//
//	registry, err := ratelimiter.NewRegistry(ratelimiter.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer registry.Close()
//
//	_ = registry.AddConfiguration("strict", ratelimiter.Config{
//	    LimitForPeriod:     1,
//	    LimitRefreshPeriod: time.Second,
//	})
//	limiter, err := registry.RateLimiterFromConfig("payments", "strict")
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*RateLimiter
	configs  map[string]Config
	closed   bool

	opts   options
	logger *slog.Logger

	onAdded   []func(*RateLimiter)
	onRemoved []func(*RateLimiter)
}

// NewRegistry creates a registry whose limiters use defaultConfig unless
// told otherwise. Options are passed to every limiter the registry creates.
func NewRegistry(defaultConfig Config, opts ...Option) (*Registry, error) {
	if err := defaultConfig.Validate(); err != nil {
		return nil, fmt.Errorf("default config: %w", err)
	}

	o := buildOptions(opts)
	return &Registry{
		limiters: make(map[string]*RateLimiter),
		configs:  map[string]Config{DefaultConfigName: defaultConfig},
		opts:     o,
		logger:   o.logger.With("component", "ratelimiter.registry"),
	}, nil
}

// AddConfiguration stores a named configuration template.
func (r *Registry) AddConfiguration(name string, config Config) error {
	if name == "" {
		return fmt.Errorf("%w: configuration name must not be empty", ErrInvalidConfig)
	}
	if err := config.Validate(); err != nil {
		return fmt.Errorf("configuration %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[name] = config
	return nil
}

// Configuration returns a named configuration template.
func (r *Registry) Configuration(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	config, ok := r.configs[name]
	return config, ok
}

// DefaultConfig returns the registry default configuration.
func (r *Registry) DefaultConfig() Config {
	config, _ := r.Configuration(DefaultConfigName)
	return config
}

// RateLimiter returns the limiter for name, creating it with the default
// configuration if it does not exist.
func (r *Registry) RateLimiter(name string, opts ...Option) (*RateLimiter, error) {
	return r.RateLimiterWithConfig(name, r.DefaultConfig(), opts...)
}

// RateLimiterFromConfig returns the limiter for name, creating it from the
// named configuration template if it does not exist.
func (r *Registry) RateLimiterFromConfig(name, configName string, opts ...Option) (*RateLimiter, error) {
	config, ok := r.Configuration(configName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrConfigurationNotFound, configName)
	}
	return r.RateLimiterWithConfig(name, config, opts...)
}

// RateLimiterWithConfig returns the limiter for name, creating it with
// config if it does not exist. An existing limiter keeps its own config.
func (r *Registry) RateLimiterWithConfig(name string, config Config, opts ...Option) (*RateLimiter, error) {
	r.mu.RLock()
	if l, ok := r.limiters[name]; ok {
		r.mu.RUnlock()
		return l, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	if l, ok := r.limiters[name]; ok {
		r.mu.Unlock()
		return l, nil
	}

	l, err := New(name, config, r.limiterOptions(opts)...)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.limiters[name] = l
	hooks := r.onAdded
	r.mu.Unlock()

	r.logger.Info("rate limiter registered", "name", name, "config", config.String())
	for _, hook := range hooks {
		hook(l)
	}
	return l, nil
}

// Replace registers a new limiter created with config under name and
// closes the one it replaces, if any. The swap is atomic: concurrent
// lookups see either the old limiter or the new one.
func (r *Registry) Replace(name string, config Config, opts ...Option) (*RateLimiter, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrRegistryClosed
	}
	l, err := New(name, config, r.limiterOptions(opts)...)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}
	old, replaced := r.limiters[name]
	r.limiters[name] = l
	removedHooks := r.onRemoved
	addedHooks := r.onAdded
	r.mu.Unlock()

	if replaced {
		_ = old.Close()
		for _, hook := range removedHooks {
			hook(old)
		}
	}
	r.logger.Info("rate limiter replaced", "name", name, "config", config.String(), "existed", replaced)
	for _, hook := range addedHooks {
		hook(l)
	}
	return l, nil
}

// Find returns the limiter registered under name.
func (r *Registry) Find(name string) (*RateLimiter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.limiters[name]
	return l, ok
}

// All returns every registered limiter sorted by name.
func (r *Registry) All() []*RateLimiter {
	r.mu.RLock()
	all := slices.Collect(maps.Values(r.limiters))
	r.mu.RUnlock()

	slices.SortFunc(all, func(a, b *RateLimiter) int {
		return strings.Compare(a.Name(), b.Name())
	})
	return all
}

// Remove unregisters and closes the limiter registered under name.
// It returns the removed limiter, or false if the name was unknown.
func (r *Registry) Remove(name string) (*RateLimiter, bool) {
	r.mu.Lock()
	l, ok := r.limiters[name]
	if ok {
		delete(r.limiters, name)
	}
	hooks := r.onRemoved
	r.mu.Unlock()

	if !ok {
		return nil, false
	}

	_ = l.Close()
	r.logger.Info("rate limiter removed", "name", name)
	for _, hook := range hooks {
		hook(l)
	}
	return l, true
}

// OnAdded registers fn to be called for every limiter in the registry:
// once for each limiter already present, and then for each new one.
func (r *Registry) OnAdded(fn func(*RateLimiter)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	r.onAdded = append(slices.Clip(r.onAdded), fn)
	existing := slices.Collect(maps.Values(r.limiters))
	r.mu.Unlock()

	for _, l := range existing {
		fn(l)
	}
}

// OnRemoved registers fn to be called after a limiter is removed.
func (r *Registry) OnRemoved(fn func(*RateLimiter)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRemoved = append(slices.Clip(r.onRemoved), fn)
}

// Close removes and closes every limiter. Further lookups that would
// create a limiter fail with ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	names := slices.Collect(maps.Keys(r.limiters))
	r.mu.Unlock()

	for _, name := range names {
		r.Remove(name)
	}
	r.logger.Info("rate limiter registry closed", "removed", len(names))
	return nil
}

// Closed reports whether Close has been called.
func (r *Registry) Closed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// limiterOptions merges registry options with per-limiter options.
// Registry tags come first so limiter tags win.
func (r *Registry) limiterOptions(opts []Option) []Option {
	merged := make([]Option, 0, len(opts)+3)
	merged = append(merged,
		WithClock(r.opts.clock),
		WithLogger(r.opts.logger),
		WithTags(r.opts.tags),
	)
	return append(merged, opts...)
}
