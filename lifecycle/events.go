package lifecycle

import (
	"fmt"
	"sync"
)

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventHandleFreed EventType = iota
	EventOwnedReleased
	EventLevelReleased
	EventFallbackArmed
	EventFallbackStopped
	EventFallbackFired
)

func (t EventType) String() string {
	switch t {
	case EventHandleFreed:
		return "handle-freed"
	case EventOwnedReleased:
		return "owned-released"
	case EventLevelReleased:
		return "level-released"
	case EventFallbackArmed:
		return "fallback-armed"
	case EventFallbackStopped:
		return "fallback-stopped"
	case EventFallbackFired:
		return "fallback-fired"
	default:
		return fmt.Sprintf("event(%d)", uint8(t))
	}
}

// Event describes one step of an owner's lifecycle.
type Event struct {
	Err           error
	Owner         string
	Level         string
	Index         int
	Type          EventType
	Deterministic bool
}

func (e Event) String() string {
	var s string
	switch e.Type {
	case EventHandleFreed:
		s = fmt.Sprintf("%s: handle[%d] freed", e.Level, e.Index)
	case EventOwnedReleased:
		s = fmt.Sprintf("%s: owned[%d] released", e.Level, e.Index)
	case EventLevelReleased:
		s = fmt.Sprintf("%s: level released", e.Level)
		if !e.Deterministic {
			s += " (fallback)"
		}
	default:
		s = fmt.Sprintf("%s: %s", e.Owner, e.Type)
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}

// Observer receives lifecycle events. Events raised by a fallback arrive on
// the runtime's cleanup goroutine.
type Observer interface {
	OnLifecycleEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnLifecycleEvent implements Observer.
func (f ObserverFunc) OnLifecycleEvent(e Event) {
	f(e)
}

// Log records events in arrival order. Safe for concurrent use.
type Log struct {
	events []Event
	mu     sync.Mutex
}

// OnLifecycleEvent implements Observer.
func (l *Log) OnLifecycleEvent(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

// Events returns a copy of the recorded events.
func (l *Log) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Event(nil), l.events...)
}

// Filter returns the recorded events of the given types.
func (l *Log) Filter(types ...EventType) []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []Event
	for _, e := range l.events {
		for _, t := range types {
			if e.Type == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

// Strings renders the recorded events.
func (l *Log) Strings() []string {
	events := l.Events()
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.String()
	}
	return out
}

// Reset discards the recorded events.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
