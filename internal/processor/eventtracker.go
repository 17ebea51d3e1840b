// eventtracker.go
package processor

import (
	"sync"
	"time"
)

// EventType represents the types of events to be tracked.
type EventType int

const (
	DatabaseSave EventType = iota // detection saved to the database
	AlertPublish                  // alert pushed to the dashboard feed
	MQTTPublish                   // alert published over MQTT
	LogToFile                     // detection written to the detection log
)

// EventBehaviorFunc decides whether an event is allowed given the time of the
// previous event and the configured timeout.
type EventBehaviorFunc func(lastEventTime time.Time, timeout time.Duration) bool

// EventHandler holds the state and behavior for a specific event type. Keys
// are camera/label pairs so the same label on two cameras is tracked
// independently.
type EventHandler struct {
	LastEventTime map[string]time.Time
	Timeout       time.Duration
	BehaviorFunc  EventBehaviorFunc
	Mutex         sync.Mutex
}

// NewEventHandler creates a new EventHandler with the specified timeout and
// behavior function.
func NewEventHandler(timeout time.Duration, behaviorFunc EventBehaviorFunc) *EventHandler {
	return &EventHandler{
		LastEventTime: make(map[string]time.Time),
		Timeout:       timeout,
		BehaviorFunc:  behaviorFunc,
	}
}

// ShouldHandleEvent determines whether an event for the given key should be
// handled, based on the last event time and the configured timeout.
func (h *EventHandler) ShouldHandleEvent(key string) bool {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()

	lastTime, exists := h.LastEventTime[key]
	if !exists || h.BehaviorFunc(lastTime, h.Timeout) {
		h.LastEventTime[key] = time.Now()
		return true
	}
	return false
}

// ResetEvent clears the last event time for a given key.
func (h *EventHandler) ResetEvent(key string) {
	h.Mutex.Lock()
	defer h.Mutex.Unlock()
	delete(h.LastEventTime, key)
}

// StandardEventBehavior allows an event when the timeout has elapsed since
// the previous one.
func StandardEventBehavior(lastEventTime time.Time, timeout time.Duration) bool {
	return time.Since(lastEventTime) >= timeout
}

// EventTracker manages event deduplication across multiple event types.
type EventTracker struct {
	Handlers map[EventType]*EventHandler
	Mutex    sync.Mutex
}

// NewEventTracker creates an EventTracker where every event type shares the
// same minimum interval.
func NewEventTracker(interval time.Duration) *EventTracker {
	return &EventTracker{
		Handlers: map[EventType]*EventHandler{
			DatabaseSave: NewEventHandler(interval, StandardEventBehavior),
			AlertPublish: NewEventHandler(interval, StandardEventBehavior),
			MQTTPublish:  NewEventHandler(interval, StandardEventBehavior),
			LogToFile:    NewEventHandler(interval, StandardEventBehavior),
		},
	}
}

// TrackEvent checks if an event for a given key and event type should be
// processed.
func (et *EventTracker) TrackEvent(key string, eventType EventType) bool {
	et.Mutex.Lock()
	handler, exists := et.Handlers[eventType]
	et.Mutex.Unlock()
	if !exists {
		return false
	}
	return handler.ShouldHandleEvent(key)
}

// ResetEvent resets the state for a specific key and event type.
func (et *EventTracker) ResetEvent(key string, eventType EventType) {
	et.Mutex.Lock()
	defer et.Mutex.Unlock()

	if handler, exists := et.Handlers[eventType]; exists {
		handler.ResetEvent(key)
	}
}
