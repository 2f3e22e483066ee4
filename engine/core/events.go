package core

import "sync"

// EventContext carries the payload of a fired event. Data is whatever the sender
// documents for the code.
type EventContext struct {
	Type EventCode
	Data interface{}
}

// Batch event codes.
type EventCode int

const (
	// A batch run begins.
	/* Context usage:
	 * data: run id (string)
	 */
	EventRunStarted EventCode = iota + 1

	// An input file was picked up.
	EventFileStarted
	// The input file was imported and grafted onto the target.
	EventFileImported
	// The still image for the input file is on disk.
	EventFileRendered
	// The input file was moved into the archive folder.
	EventFileArchived
	// Processing the input file failed.
	EventFileFailed

	// The batch run ended, successfully or not.
	EventRunFinished

	MaxEventCode
)

// Should return true if handled.
type FnOnEvent func(code EventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// EventBus dispatches events to listeners registered per code.
type EventBus struct {
	mu         sync.RWMutex
	registered map[EventCode][]*registeredEvent
}

func NewEventBus() *EventBus {
	return &EventBus{
		registered: make(map[EventCode][]*registeredEvent),
	}
}

/**
 * Register to listen for when events are sent with the provided code. Events with duplicate
 * listeners will not be registered again and will cause this to return false.
 * @param code The event code to listen for.
 * @param listener A pointer to a listener instance. Can be nil.
 * @param onEvent The callback function to be invoked when the event code is fired.
 * @returns true if the event is successfully registered; otherwise false.
 */
func (b *EventBus) Register(code EventCode, listener interface{}, onEvent FnOnEvent) bool {
	if onEvent == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.registered[code] {
		if e.listener == listener {
			LogWarn("event %d: listener already registered", code)
			return false
		}
	}
	b.registered[code] = append(b.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

/**
 * Unregister from listening for when events are sent with the provided code. If no matching
 * registration is found, this function returns false.
 * @param code The event code to stop listening for.
 * @param listener The listener instance used at registration.
 * @returns true if the event is successfully unregistered; otherwise false.
 */
func (b *EventBus) Unregister(code EventCode, listener interface{}) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	events := b.registered[code]
	for i, e := range events {
		if e.listener == listener {
			b.registered[code] = append(events[:i:i], events[i+1:]...)
			return true
		}
	}
	return false
}

/**
 * Fires an event to listeners of the given code. If an event handler returns
 * true, the event is considered handled and is not passed on to any more listeners.
 * @param code The event code to fire.
 * @param sender The sender. Can be nil.
 * @param data The event data.
 * @returns true if handled, otherwise false.
 */
func (b *EventBus) Fire(code EventCode, sender interface{}, data interface{}) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	events := make([]*registeredEvent, len(b.registered[code]))
	copy(events, b.registered[code])
	b.mu.RUnlock()

	ctx := EventContext{Type: code, Data: data}
	for _, e := range events {
		if e.callback(code, sender, e.listener, ctx) {
			return true
		}
	}
	return false
}

// Shutdown drops every registration.
func (b *EventBus) Shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.registered = make(map[EventCode][]*registeredEvent)
}
