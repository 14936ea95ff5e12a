package ratelimiter

import (
	"log/slog"
	"maps"
)

// Option customises a RateLimiter or a Registry.
type Option func(*options)

type options struct {
	clock  Clock
	logger *slog.Logger
	tags   map[string]string
}

func defaultOptions() options {
	return options{
		clock:  SystemClock{},
		logger: slog.Default(),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock sets the time source. Intended for tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger. Limiters add component and name attributes.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithTags attaches descriptive tags. Later calls win on key conflicts.
func WithTags(tags map[string]string) Option {
	return func(o *options) {
		if len(tags) == 0 {
			return
		}
		if o.tags == nil {
			o.tags = make(map[string]string, len(tags))
		}
		maps.Copy(o.tags, tags)
	}
}
