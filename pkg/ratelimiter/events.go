package ratelimiter

import (
	"sync"
	"sync/atomic"
	"time"
)

// EventType identifies what happened on a limiter.
type EventType string

const (
	// EventSuccessfulAcquire is published when permits were granted.
	EventSuccessfulAcquire EventType = "SUCCESSFUL_ACQUIRE"

	// EventFailedAcquire is published when a caller was rejected.
	EventFailedAcquire EventType = "FAILED_ACQUIRE"

	// EventDrained is published when the current cycle was drained.
	EventDrained EventType = "DRAINED"
)

// Event describes a single acquisition outcome on a limiter.
type Event struct {
	Type        EventType `json:"type"`
	LimiterName string    `json:"limiter_name"`
	Permits     int       `json:"permits"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventConsumer receives limiter events. Consumers run synchronously on the
// goroutine that produced the event and must not block for long.
type EventConsumer func(Event)

// EventPublisher fans limiter events out to registered consumers.
//
// Consumer lists are copy-on-write so publishing only takes a read lock
// to grab the current slices.
type EventPublisher struct {
	mu     sync.RWMutex
	all    []EventConsumer
	byType map[EventType][]EventConsumer

	registered atomic.Bool
}

func newEventPublisher() *EventPublisher {
	return &EventPublisher{
		byType: make(map[EventType][]EventConsumer),
	}
}

// OnEvent registers a consumer for every event type.
func (p *EventPublisher) OnEvent(consumer EventConsumer) {
	if consumer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	all := make([]EventConsumer, len(p.all), len(p.all)+1)
	copy(all, p.all)
	p.all = append(all, consumer)
	p.registered.Store(true)
}

// OnSuccess registers a consumer for EventSuccessfulAcquire.
func (p *EventPublisher) OnSuccess(consumer EventConsumer) {
	p.on(EventSuccessfulAcquire, consumer)
}

// OnFailure registers a consumer for EventFailedAcquire.
func (p *EventPublisher) OnFailure(consumer EventConsumer) {
	p.on(EventFailedAcquire, consumer)
}

// OnDrained registers a consumer for EventDrained.
func (p *EventPublisher) OnDrained(consumer EventConsumer) {
	p.on(EventDrained, consumer)
}

// HasConsumers reports whether any consumer was ever registered.
func (p *EventPublisher) HasConsumers() bool {
	return p.registered.Load()
}

func (p *EventPublisher) on(eventType EventType, consumer EventConsumer) {
	if consumer == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	current := p.byType[eventType]
	next := make([]EventConsumer, len(current), len(current)+1)
	copy(next, current)
	p.byType[eventType] = append(next, consumer)
	p.registered.Store(true)
}

// publish delivers the event and reports whether anybody consumed it.
func (p *EventPublisher) publish(event Event) bool {
	if !p.registered.Load() {
		return false
	}

	p.mu.RLock()
	all := p.all
	typed := p.byType[event.Type]
	p.mu.RUnlock()

	for _, consumer := range all {
		consumer(event)
	}
	for _, consumer := range typed {
		consumer(event)
	}
	return len(all) > 0 || len(typed) > 0
}
