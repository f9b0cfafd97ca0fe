package b2bua

import (
	"sync"
	"sync/atomic"
)

type listener struct {
	id uint64
	fn Handler
}

// Emitter is a listener registry that leg implementations can embed to
// satisfy Leg.AddEventListener.
//
// Listeners for an event type run in registration order. Removal is by the
// handle returned from AddEventListener, so removing one listener never
// shifts another.
//
// Thread Safety: All methods are safe for concurrent use. Emit does not hold
// the lock while running listeners, so a listener may register or remove
// listeners on the same emitter.
type Emitter struct {
	mu        sync.Mutex
	listeners map[EventType][]listener
	idCounter atomic.Uint64
}

// AddEventListener registers fn for events of type t.
func (em *Emitter) AddEventListener(t EventType, fn Handler) func() {
	id := em.idCounter.Add(1)

	em.mu.Lock()
	if em.listeners == nil {
		em.listeners = make(map[EventType][]listener)
	}
	em.listeners[t] = append(em.listeners[t], listener{id: id, fn: fn})
	em.mu.Unlock()

	return func() {
		em.remove(t, id)
	}
}

func (em *Emitter) remove(t EventType, id uint64) {
	em.mu.Lock()
	defer em.mu.Unlock()

	ls := em.listeners[t]
	for i, l := range ls {
		if l.id == id {
			em.listeners[t] = append(ls[:i:i], ls[i+1:]...)
			return
		}
	}
}

// Emit delivers e to every listener registered for e.Type.
func (em *Emitter) Emit(e *Event) {
	em.mu.Lock()
	// Copy so listeners can unregister while we iterate
	ls := make([]listener, len(em.listeners[e.Type]))
	copy(ls, em.listeners[e.Type])
	em.mu.Unlock()

	for _, l := range ls {
		l.fn(e)
	}
}

// ListenerCount returns the number of listeners registered for t.
func (em *Emitter) ListenerCount(t EventType) int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return len(em.listeners[t])
}
