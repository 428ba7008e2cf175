package eventbus

import (
	"log"
	"runtime/debug"
	"sync"

	"cseek/internal/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// Event type constants
const (
	EventQueryChanged     = domain.EventQueryChanged
	EventSearchStarted    = domain.EventSearchStarted
	EventCandidatesFound  = domain.EventCandidatesFound
	EventSearchFinished   = domain.EventSearchFinished
	EventSearchFailed     = domain.EventSearchFailed
	EventDatabaseResolved = domain.EventDatabaseResolved
	EventIndexRebuilt     = domain.EventIndexRebuilt
	EventError            = domain.EventError
)

// Re-export domain event types
type QueryChangedEvent = domain.QueryChangedEvent
type SearchStartedEvent = domain.SearchStartedEvent
type CandidatesFoundEvent = domain.CandidatesFoundEvent
type SearchFinishedEvent = domain.SearchFinishedEvent
type SearchFailedEvent = domain.SearchFailedEvent
type DatabaseResolvedEvent = domain.DatabaseResolvedEvent
type IndexRebuiltEvent = domain.IndexRebuiltEvent
type ErrorEvent = domain.ErrorEvent

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus is the interface for the event bus
type EventBus interface {
	Publish(event DomainEvent)
	Subscribe(eventType EventType, handler EventHandler) func()
	Close()
}

// subscription pairs a handler with a stable id so it can be removed later
type subscription struct {
	id      int
	handler EventHandler
}

// bus is the concrete implementation of EventBus
type bus struct {
	mu        sync.RWMutex
	nextID    int
	handlers  map[EventType][]subscription
	eventChan chan DomainEvent
	closeOnce sync.Once
	quit      chan struct{}
	done      chan struct{}
}

// New creates a new event bus and starts its dispatcher
func New() EventBus {
	b := &bus{
		handlers:  make(map[EventType][]subscription),
		eventChan: make(chan DomainEvent, 1000),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	go b.dispatch()

	return b
}

// Publish publishes an event to all subscribers
func (b *bus) Publish(event DomainEvent) {
	// Candidate batches are too frequent to log
	if event.Type() != EventCandidatesFound {
		log.Printf("EventBus: publishing %s", event.Type())
	}

	select {
	case b.eventChan <- event:
	case <-b.quit:
	default:
		log.Printf("EventBus: channel full, dropping %s", event.Type())
	}
}

// Subscribe subscribes to events of a specific type.
// Returns an unsubscribe function.
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.handlers[eventType]
		for i, s := range subs {
			if s.id == id {
				b.handlers[eventType] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}
}

// Close stops the dispatcher. Pending events are dropped.
func (b *bus) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
		<-b.done
	})
}

// dispatch handles event distribution to subscribers. Handlers run in the
// dispatcher goroutine so that subscribers observe events in publish order;
// the candidate stream depends on that ordering.
func (b *bus) dispatch() {
	defer close(b.done)

	for {
		select {
		case event := <-b.eventChan:
			b.mu.RLock()
			subs := make([]subscription, len(b.handlers[event.Type()]))
			copy(subs, b.handlers[event.Type()])
			b.mu.RUnlock()

			for _, s := range subs {
				b.invoke(s.handler, event)
			}

		case <-b.quit:
			return
		}
	}
}

// invoke calls a handler with panic recovery
func (b *bus) invoke(h EventHandler, event DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("EventBus: handler panic for %s: %v\n%s", event.Type(), r, debug.Stack())
		}
	}()
	h(event)
}
