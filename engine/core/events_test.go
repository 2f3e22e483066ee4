package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus_RegisterFireUnregister(t *testing.T) {
	// Arrange
	bus := NewEventBus()
	var got []interface{}
	listener := &struct{}{}
	onEvent := func(code EventCode, sender, inst interface{}, data EventContext) bool {
		got = append(got, data.Data)
		return false
	}

	// Act
	require.True(t, bus.Register(EventFileStarted, listener, onEvent))
	handled := bus.Fire(EventFileStarted, nil, "a.stl")
	bus.Fire(EventFileRendered, nil, "ignored")

	// Assert
	assert.False(t, handled)
	assert.Equal(t, []interface{}{"a.stl"}, got)

	require.True(t, bus.Unregister(EventFileStarted, listener))
	bus.Fire(EventFileStarted, nil, "b.stl")
	assert.Len(t, got, 1)
	assert.False(t, bus.Unregister(EventFileStarted, listener))
}

func TestEventBus_DuplicateListenerRejected(t *testing.T) {
	bus := NewEventBus()
	listener := &struct{}{}
	noop := func(EventCode, interface{}, interface{}, EventContext) bool { return false }

	require.True(t, bus.Register(EventRunFinished, listener, noop))
	assert.False(t, bus.Register(EventRunFinished, listener, noop))
	assert.False(t, bus.Register(EventRunFinished, &struct{}{}, nil))
}

func TestEventBus_HandledStopsPropagation(t *testing.T) {
	bus := NewEventBus()
	calls := 0
	first := func(EventCode, interface{}, interface{}, EventContext) bool { calls++; return true }
	second := func(EventCode, interface{}, interface{}, EventContext) bool { calls++; return false }
	bus.Register(EventFileFailed, "first", first)
	bus.Register(EventFileFailed, "second", second)

	assert.True(t, bus.Fire(EventFileFailed, nil, nil))
	assert.Equal(t, 1, calls)
}

func TestEventBus_NilBusFireIsNoop(t *testing.T) {
	var bus *EventBus
	assert.False(t, bus.Fire(EventRunStarted, nil, nil))
}
