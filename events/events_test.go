package events

import (
	"testing"
	"time"
)

func TestPublishFansOutToAllHandlers(t *testing.T) {
	b := New()
	var got1, got2 Kind
	b.Subscribe(func(e Event) { got1 = e.Kind })
	b.Subscribe(func(e Event) { got2 = e.Kind })

	b.Publish(Event{Kind: Submitted, Timestamp: time.Now()})

	if got1 != Submitted || got2 != Submitted {
		t.Fatalf("expected both handlers to receive Submitted, got %v %v", got1, got2)
	}
}

func TestPublishSurvivesPanickingHandler(t *testing.T) {
	b := New()
	var called bool
	b.Subscribe(func(e Event) { panic("boom") })
	b.Subscribe(func(e Event) { called = true })

	b.Publish(Event{Kind: Failed, Timestamp: time.Now()})

	if !called {
		t.Fatal("expected second handler to still run after first panicked")
	}
}
