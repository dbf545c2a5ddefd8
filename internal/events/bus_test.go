package events

import (
	"testing"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := New()
	var order []int
	bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { order = append(order, 1) })
	bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { order = append(order, 2) })
	bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { order = append(order, 3) })

	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})

	if len(order) != 3 || order[0] != 1 || order[1] != 2 || order[2] != 3 {
		t.Fatalf("delivery order = %v, want [1 2 3]", order)
	}
}

func TestPublishRecoversFromSubscriberPanic(t *testing.T) {
	bus := New()
	called := false
	bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { panic("boom") })
	bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { called = true })

	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})

	if !called {
		t.Fatal("expected second subscriber to still run after first panicked")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := New()
	count := 0
	unsub := bus.Subscribe(sindri.EventTaskStarted, func(sindri.Event) { count++ })
	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})
	unsub()
	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})

	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}

func TestPublishStampsMonotonicSequence(t *testing.T) {
	bus := New()
	var seqs []uint64
	bus.Subscribe(sindri.EventTaskStarted, func(e sindri.Event) { seqs = append(seqs, e.Sequence) })

	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})
	bus.Publish(sindri.Event{Type: sindri.EventTaskStarted})

	if len(seqs) != 2 || seqs[1] <= seqs[0] {
		t.Fatalf("sequence not monotonic: %v", seqs)
	}
}

func TestEmitterStampsTaskContext(t *testing.T) {
	bus := New()
	var got sindri.Event
	bus.Subscribe(sindri.EventToolStarted, func(e sindri.Event) { got = e })

	emitter := NewEmitter(bus, "sess-1", "task-1", "huginn")
	emitter.SetIteration(3)
	emitter.ToolStarted("read_file")

	if got.SessionID != "sess-1" || got.TaskID != "task-1" || got.AgentName != "huginn" || got.Iteration != 3 {
		t.Fatalf("got %+v", got)
	}
	if got.Data["tool"] != "read_file" {
		t.Fatalf("data = %+v", got.Data)
	}
}
