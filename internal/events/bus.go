// Package events implements the Event Bus (C5): synchronous, in-thread
// fan-out to subscribers in subscription order, with a monotonic sequence
// number per event. Grounded on the teacher's EventEmitter/EventSink
// machinery (_examples/haasonsaas-nexus/internal/agent/event_emitter.go,
// event_sink.go), simplified to the synchronous-delivery contract
// SPEC_FULL.md §4.5 calls for: subscribers are responsible for not
// blocking the publisher, not the bus.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sindri-ai/sindri/pkg/sindri"
)

// Subscriber receives events of the type(s) it subscribed to.
type Subscriber func(sindri.Event)

// Unsubscribe removes a previously registered subscriber.
type Unsubscribe func()

// Bus fans events out to subscribers synchronously and in subscription
// order. A panicking subscriber is recovered so it cannot take down the
// publisher or other subscribers.
type Bus struct {
	mu       sync.RWMutex
	subs     map[sindri.EventType][]*subscription
	sequence uint64
}

type subscription struct {
	id uint64
	fn Subscriber
}

// New creates an empty event bus.
func New() *Bus {
	return &Bus{subs: make(map[sindri.EventType][]*subscription)}
}

// Subscribe registers fn for events of type t and returns a closure that
// removes it.
func (b *Bus) Subscribe(t sindri.EventType, fn Subscriber) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := atomic.AddUint64(&b.sequence, 1)
	sub := &subscription{id: id, fn: fn}
	b.subs[t] = append(b.subs[t], sub)
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		list := b.subs[t]
		for i, s := range list {
			if s.id == id {
				b.subs[t] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers evt to every subscriber of evt.Type, synchronously, in
// subscription order. evt.Sequence and evt.Timestamp are stamped here.
func (b *Bus) Publish(evt sindri.Event) {
	evt.Sequence = atomic.AddUint64(&b.sequence, 1)
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	b.mu.RLock()
	subs := make([]*subscription, len(b.subs[evt.Type]))
	copy(subs, b.subs[evt.Type])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(s.fn, evt)
	}
}

func (b *Bus) deliver(fn Subscriber, evt sindri.Event) {
	defer func() {
		recover() // a bad subscriber must never take down the publisher
	}()
	fn(evt)
}
