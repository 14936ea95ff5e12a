package ratelimiter

import (
	"testing"
	"time"
)

func TestEventPublisher_NoConsumers(t *testing.T) {
	p := newEventPublisher()

	if p.HasConsumers() {
		t.Error("Expected no consumers")
	}
	if p.publish(Event{Type: EventSuccessfulAcquire}) {
		t.Error("Expected publish without consumers to report false")
	}

	p.OnEvent(nil)
	p.OnSuccess(nil)
	if p.HasConsumers() {
		t.Error("Expected nil consumers to be ignored")
	}
}

func TestEventPublisher_RoutesByType(t *testing.T) {
	p := newEventPublisher()

	var all, success, failure, drained int
	p.OnEvent(func(Event) { all++ })
	p.OnSuccess(func(Event) { success++ })
	p.OnFailure(func(Event) { failure++ })
	p.OnDrained(func(Event) { drained++ })

	now := time.Now()
	for _, eventType := range []EventType{EventSuccessfulAcquire, EventSuccessfulAcquire, EventFailedAcquire, EventDrained} {
		if !p.publish(Event{Type: eventType, LimiterName: "routes", Permits: 1, CreatedAt: now}) {
			t.Errorf("Expected %s to be consumed", eventType)
		}
	}

	if all != 4 {
		t.Errorf("Expected 4 events on the catch-all consumer, got %d", all)
	}
	if success != 2 {
		t.Errorf("Expected 2 success events, got %d", success)
	}
	if failure != 1 {
		t.Errorf("Expected 1 failure event, got %d", failure)
	}
	if drained != 1 {
		t.Errorf("Expected 1 drained event, got %d", drained)
	}
}

func TestEventPublisher_TypedOnlyConsumer(t *testing.T) {
	p := newEventPublisher()
	p.OnFailure(func(Event) {})

	if p.publish(Event{Type: EventSuccessfulAcquire}) {
		t.Error("Expected success event to have no consumer")
	}
	if !p.publish(Event{Type: EventFailedAcquire}) {
		t.Error("Expected failure event to be consumed")
	}
}

func TestEventPublisher_ConsumerAddedDuringPublish(t *testing.T) {
	p := newEventPublisher()

	late := 0
	p.OnEvent(func(Event) {
		p.OnEvent(func(Event) { late++ })
	})

	p.publish(Event{Type: EventSuccessfulAcquire})
	if late != 0 {
		t.Errorf("Expected consumer registered mid-publish to miss the event, got %d", late)
	}

	p.publish(Event{Type: EventSuccessfulAcquire})
	if late != 1 {
		t.Errorf("Expected the late consumer to see the next event, got %d", late)
	}
}
