package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherPreservesPerInstanceOrder(t *testing.T) {
	d := NewDispatcher(4, 8, nil)

	var mu sync.Mutex
	seen := map[string][]State{}
	d.Register(ObserverFunc(func(e StatusEvent) {
		mu.Lock()
		defer mu.Unlock()
		seen[e.InstanceID] = append(seen[e.InstanceID], e.State)
	}))

	order := []State{StateCreating, StateAwaitingQR, StateAuthenticated, StateReady, StateDisconnected}
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("inst-%d", i)
		for _, s := range order {
			d.Dispatch(StatusEvent{InstanceID: id, State: s})
		}
	}
	d.Close()

	assert.Len(t, seen, 10)
	for id, states := range seen {
		assert.Equal(t, order, states, id)
	}
}

func TestDispatcherUnregisterAndPanics(t *testing.T) {
	d := NewDispatcher(1, 8, nil)

	var count int
	var mu sync.Mutex
	d.Register(ObserverFunc(func(StatusEvent) { panic("boom") }))
	unregister := d.Register(InstanceObserver{InstanceID: "A", Observer: ObserverFunc(func(StatusEvent) {
		mu.Lock()
		count++
		mu.Unlock()
	})})

	d.Dispatch(StatusEvent{InstanceID: "A"})
	d.Dispatch(StatusEvent{InstanceID: "B"})
	d.Close()
	assert.Equal(t, 1, count)

	unregister()
	d.Dispatch(StatusEvent{InstanceID: "A"})
	assert.Equal(t, 1, count)
}
