package metrics

import (
	"maps"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/ratelimiter/pkg/config"
	"mercator-hq/ratelimiter/pkg/ratelimiter"
	"mercator-hq/ratelimiter/pkg/ratelimiter/recorder"
)

// Call kinds used as the "kind" label of the calls counter.
const (
	KindSuccessful = "successful"
	KindFailed     = "failed"
)

// Collector exports rate limiter state to Prometheus.
//
// Gauges are read from each limiter's Metrics snapshot at scrape time, so
// they never go stale. Call counters are fed by limiter events. The only
// label is the limiter name; tags are not exported to keep cardinality fixed.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	availableDesc *prometheus.Desc
	waitingDesc   *prometheus.Desc
	limitDesc     *prometheus.Desc
	periodDesc    *prometheus.Desc
	callsDesc     *prometheus.Desc

	mu       sync.RWMutex
	limiters map[string]*tracked
}

// tracked is a limiter together with its event counters.
type tracked struct {
	limiter    *ratelimiter.RateLimiter
	successful atomic.Uint64
	failed     atomic.Uint64
}

// NewCollector creates a collector and registers it with registry. If
// registry is nil a new one is created.
//
// Example:
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.Attach(limiters)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = config.DefaultMetricsNamespace
	}

	name := func(metric string) string {
		return prometheus.BuildFQName(cfg.Namespace, "", metric)
	}
	labels := []string{"name"}

	c := &Collector{
		config:   cfg,
		registry: registry,
		availableDesc: prometheus.NewDesc(name("available_permissions"),
			"Permits left in the current cycle.", labels, nil),
		waitingDesc: prometheus.NewDesc(name("waiting_threads"),
			"Callers waiting for permits.", labels, nil),
		limitDesc: prometheus.NewDesc(name("limit_for_period"),
			"Permits granted per refresh cycle.", labels, nil),
		periodDesc: prometheus.NewDesc(name("limit_refresh_period_seconds"),
			"Length of a refresh cycle in seconds.", labels, nil),
		callsDesc: prometheus.NewDesc(name("calls_total"),
			"Acquisition attempts by outcome.", []string{"name", "kind"}, nil),
		limiters: make(map[string]*tracked),
	}

	if cfg.Enabled {
		registry.MustRegister(c)
	}
	return c
}

// Attach tracks every limiter in the registry, present and future, and
// stops tracking limiters when they are removed. It is a no-op when
// metrics are disabled.
func (c *Collector) Attach(registry *ratelimiter.Registry) {
	if !c.config.Enabled {
		return
	}
	registry.OnAdded(c.Track)
	registry.OnRemoved(c.Untrack)
}

// Track starts exporting l. Tracking a new limiter under a name that is
// already tracked replaces the old entry and resets its counters.
func (c *Collector) Track(l *ratelimiter.RateLimiter) {
	t := &tracked{limiter: l}
	l.EventPublisher().OnSuccess(func(ratelimiter.Event) {
		t.successful.Add(1)
	})
	l.EventPublisher().OnFailure(func(ratelimiter.Event) {
		t.failed.Add(1)
	})

	c.mu.Lock()
	c.limiters[l.Name()] = t
	c.mu.Unlock()
}

// Untrack stops exporting l. It does nothing if a different limiter has
// since been tracked under the same name.
func (c *Collector) Untrack(l *ratelimiter.RateLimiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.limiters[l.Name()]; ok && t.limiter == l {
		delete(c.limiters, l.Name())
	}
}

// TrackRecorder exports the event recorder counters.
func (c *Collector) TrackRecorder(r *recorder.Recorder) {
	if !c.config.Enabled {
		return
	}
	counter := func(metric, help string, value func(recorder.Stats) uint64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: c.config.Namespace,
			Subsystem: "events",
			Name:      metric,
			Help:      help,
		}, func() float64 {
			return float64(value(r.Stats()))
		})
	}

	c.registry.MustRegister(
		counter("recorded_total", "Limiter events written to storage.",
			func(s recorder.Stats) uint64 { return s.Recorded }),
		counter("dropped_total", "Limiter events dropped because the queue was full.",
			func(s recorder.Stats) uint64 { return s.Dropped }),
		counter("failed_total", "Limiter events lost to storage errors.",
			func(s recorder.Stats) uint64 { return s.Failed }),
	)
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.availableDesc
	ch <- c.waitingDesc
	ch <- c.limitDesc
	ch <- c.periodDesc
	ch <- c.callsDesc
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	names := slices.Sorted(maps.Keys(c.limiters))
	entries := make([]*tracked, len(names))
	for i, name := range names {
		entries[i] = c.limiters[name]
	}
	c.mu.RUnlock()

	for _, t := range entries {
		name := t.limiter.Name()
		m := t.limiter.Metrics()
		cfg := t.limiter.Config()

		ch <- prometheus.MustNewConstMetric(c.availableDesc, prometheus.GaugeValue,
			float64(m.AvailablePermissions), name)
		ch <- prometheus.MustNewConstMetric(c.waitingDesc, prometheus.GaugeValue,
			float64(m.NumberOfWaitingThreads), name)
		ch <- prometheus.MustNewConstMetric(c.limitDesc, prometheus.GaugeValue,
			float64(cfg.LimitForPeriod), name)
		ch <- prometheus.MustNewConstMetric(c.periodDesc, prometheus.GaugeValue,
			cfg.LimitRefreshPeriod.Seconds(), name)
		ch <- prometheus.MustNewConstMetric(c.callsDesc, prometheus.CounterValue,
			float64(t.successful.Load()), name, KindSuccessful)
		ch <- prometheus.MustNewConstMetric(c.callsDesc, prometheus.CounterValue,
			float64(t.failed.Load()), name, KindFailed)
	}
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
