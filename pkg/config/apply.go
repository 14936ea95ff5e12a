package config

import (
	"errors"
	"fmt"
	"slices"

	"mercator-hq/ratelimiter/pkg/ratelimiter"
)

// ApplyResult lists what ApplyLimiters changed, by limiter name.
type ApplyResult struct {
	Created  []string
	Updated  []string
	Replaced []string
	Removed  []string
}

// Changed reports whether the registry was modified.
func (r ApplyResult) Changed() bool {
	return len(r.Created)+len(r.Updated)+len(r.Replaced)+len(r.Removed) > 0
}

// ApplyLimiters reconciles registry with the configured limiters:
//   - templates are (re)registered as named configurations
//   - new instances are created
//   - existing instances have their limit and timeout changed in place,
//     or are replaced when their refresh period changed
//   - limiters that are no longer configured are removed
//
// Every instance is attempted; the returned error joins the failures.
func ApplyLimiters(registry *ratelimiter.Registry, cfg *RateLimitersConfig) (ApplyResult, error) {
	var (
		result ApplyResult
		errs   []error
	)

	templates, err := cfg.Templates()
	if err != nil {
		return result, err
	}
	for name, tmpl := range templates {
		if err := registry.AddConfiguration(name, tmpl); err != nil {
			errs = append(errs, err)
		}
	}

	names := cfg.InstanceNames()
	for _, name := range names {
		want, err := cfg.Resolve(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		tags := ratelimiter.WithTags(cfg.Instances[name].Tags)

		current, ok := registry.Find(name)
		if !ok {
			if _, err := registry.RateLimiterWithConfig(name, want, tags); err != nil {
				errs = append(errs, fmt.Errorf("create %q: %w", name, err))
				continue
			}
			result.Created = append(result.Created, name)
			continue
		}

		have := current.Config()
		if have == want {
			continue
		}
		if have.LimitRefreshPeriod != want.LimitRefreshPeriod {
			if _, err := registry.Replace(name, want, tags); err != nil {
				errs = append(errs, fmt.Errorf("replace %q: %w", name, err))
				continue
			}
			result.Replaced = append(result.Replaced, name)
			continue
		}
		if have.LimitForPeriod != want.LimitForPeriod {
			if err := current.ChangeLimitForPeriod(want.LimitForPeriod); err != nil {
				errs = append(errs, fmt.Errorf("update %q: %w", name, err))
				continue
			}
		}
		if have.TimeoutDuration != want.TimeoutDuration {
			if err := current.ChangeTimeoutDuration(want.TimeoutDuration); err != nil {
				errs = append(errs, fmt.Errorf("update %q: %w", name, err))
				continue
			}
		}
		result.Updated = append(result.Updated, name)
	}

	for _, l := range registry.All() {
		if _, ok := slices.BinarySearch(names, l.Name()); ok {
			continue
		}
		if _, removed := registry.Remove(l.Name()); removed {
			result.Removed = append(result.Removed, l.Name())
		}
	}

	return result, errors.Join(errs...)
}
