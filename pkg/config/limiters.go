package config

import (
	"fmt"
	"maps"
	"slices"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
)

// apply returns base with every field set in lc overriding it.
func (lc LimiterConfig) apply(base ratelimiter.Config) ratelimiter.Config {
	if lc.LimitForPeriod != 0 {
		base.LimitForPeriod = lc.LimitForPeriod
	}
	if lc.LimitRefreshPeriod != 0 {
		base.LimitRefreshPeriod = lc.LimitRefreshPeriod
	}
	if lc.TimeoutDuration != nil {
		base.TimeoutDuration = *lc.TimeoutDuration
	}
	return base
}

// DefaultLimiter returns the built-in limiter defaults with the
// ratelimiters.defaults section applied.
func (c *RateLimitersConfig) DefaultLimiter() ratelimiter.Config {
	return c.Defaults.apply(ratelimiter.DefaultConfig())
}

// Template resolves a named configuration template on top of the defaults.
func (c *RateLimitersConfig) Template(name string) (ratelimiter.Config, error) {
	if name == "" || name == ratelimiter.DefaultConfigName {
		return c.DefaultLimiter(), nil
	}
	tmpl, ok := c.Configs[name]
	if !ok {
		return ratelimiter.Config{}, fmt.Errorf("%w: %q", ratelimiter.ErrConfigurationNotFound, name)
	}
	return tmpl.apply(c.DefaultLimiter()), nil
}

// Templates resolves every named configuration template.
func (c *RateLimitersConfig) Templates() (map[string]ratelimiter.Config, error) {
	templates := make(map[string]ratelimiter.Config, len(c.Configs))
	for name := range c.Configs {
		resolved, err := c.Template(name)
		if err != nil {
			return nil, err
		}
		templates[name] = resolved
	}
	return templates, nil
}

// Resolve returns the effective configuration of the named instance:
// defaults, then its base_config template, then its own fields.
func (c *RateLimitersConfig) Resolve(name string) (ratelimiter.Config, error) {
	inst, ok := c.Instances[name]
	if !ok {
		return ratelimiter.Config{}, fmt.Errorf("rate limiter instance %q is not configured", name)
	}
	base, err := c.Template(inst.BaseConfig)
	if err != nil {
		return ratelimiter.Config{}, fmt.Errorf("instance %q: %w", name, err)
	}
	return inst.apply(base), nil
}

// InstanceTags returns the registry-wide tags merged with the instance tags.
func (c *RateLimitersConfig) InstanceTags(name string) map[string]string {
	tags := maps.Clone(c.Tags)
	if tags == nil {
		tags = make(map[string]string)
	}
	maps.Copy(tags, c.Instances[name].Tags)
	return tags
}

// InstanceNames returns the configured instance names in sorted order.
func (c *RateLimitersConfig) InstanceNames() []string {
	return slices.Sorted(maps.Keys(c.Instances))
}
