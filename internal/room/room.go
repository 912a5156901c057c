// Package room tracks the participants of the single shared call room.
package room

import (
	"container/list"
	"sync"
)

// Participant is one joined member of the room.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Registry is an insertion-ordered participant set.
//
// All operations are O(1) and safe for concurrent use. List preserves join
// order so clients can render a deterministic roster.
type Registry struct {
	mu    sync.Mutex
	order *list.List
	byID  map[string]*list.Element
}

func NewRegistry() *Registry {
	return &Registry{
		order: list.New(),
		byID:  make(map[string]*list.Element),
	}
}

// Add registers a participant. Adding an id that is already present updates
// the display name but keeps the original join position.
func (r *Registry) Add(id, name string) Participant {
	p := Participant{ID: id, Name: name}

	r.mu.Lock()
	defer r.mu.Unlock()

	if el, ok := r.byID[id]; ok {
		el.Value = p
		return p
	}
	r.byID[id] = r.order.PushBack(p)
	return p
}

// Remove deregisters a participant. Removing an absent id is a no-op.
func (r *Registry) Remove(id string) (Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	el, ok := r.byID[id]
	if !ok {
		return Participant{}, false
	}
	delete(r.byID, id)
	r.order.Remove(el)
	return el.Value.(Participant), true
}

// List returns a snapshot of the room in join order.
func (r *Registry) List() []Participant {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Participant, 0, r.order.Len())
	for el := r.order.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value.(Participant))
	}
	return out
}

// Count returns the number of joined participants.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
