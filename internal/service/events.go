package service

import "sync"

// EventType defines the type of event
type EventType string

const (
	EventSessionOpened        EventType = "session_opened"
	EventSessionClosed        EventType = "session_closed"
	EventConstraintsInstalled EventType = "constraints_installed"
	EventNodeResolved         EventType = "node_resolved"
	EventNodesResolved        EventType = "nodes_resolved"
	EventLinksWritten         EventType = "links_written"
)

// Event represents something a session did. Count is the number of
// nodes or links involved.
type Event struct {
	Type  EventType `json:"type"`
	Label string    `json:"label,omitempty"`
	Count int       `json:"count,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
	handlers    []func(Event)
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// SubscribeFunc adds a handler called synchronously for every event
func (eb *EventBus) SubscribeFunc(fn func(Event)) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.handlers = append(eb.handlers, fn)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, fn := range eb.handlers {
		fn(event)
	}
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// Stats tallies events per type
type Stats struct {
	mu     sync.Mutex
	counts map[EventType]int
}

// NewStats subscribes a tally to bus
func NewStats(bus *EventBus) *Stats {
	st := &Stats{counts: make(map[EventType]int)}
	bus.SubscribeFunc(st.record)
	return st
}

func (st *Stats) record(e Event) {
	n := e.Count
	if n == 0 {
		n = 1
	}
	st.mu.Lock()
	st.counts[e.Type] += n
	st.mu.Unlock()
}

// Count returns the tally for one event type
func (st *Stats) Count(t EventType) int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.counts[t]
}
