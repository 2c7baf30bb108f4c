package session

import "github.com/google/uuid"

// Sender delivers snapshots to one client. Send must not block; a returned error
// gets the connection dropped.
type Sender interface {
	Send(Snapshot) error
	Close()
}

type registryEntry struct {
	id     string
	meta   ConnMeta
	sender Sender
}

// Registry tracks live connections of one session in registration order.
// It is owned by the coordinator and only touched under its lock.
type Registry struct {
	entries map[string]*registryEntry
	order   []string
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*registryEntry)}
}

// Add registers sender and returns its connection id.
func (r *Registry) Add(meta ConnMeta, sender Sender) string {
	id := uuid.NewString()
	r.entries[id] = &registryEntry{id: id, meta: meta, sender: sender}
	r.order = append(r.order, id)
	return id
}

// Remove drops id. It returns the sender so the caller can decide whether to close it.
func (r *Registry) Remove(id string) (Sender, bool) {
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return e.sender, true
}

// Meta returns the metadata id registered with.
func (r *Registry) Meta(id string) (ConnMeta, bool) {
	e, ok := r.entries[id]
	if !ok {
		return ConnMeta{}, false
	}
	return e.meta, true
}

func (r *Registry) Len() int {
	return len(r.entries)
}

// Each visits entries in registration order. fn must not modify the registry.
func (r *Registry) Each(fn func(id string, meta ConnMeta, sender Sender)) {
	for _, id := range r.order {
		e := r.entries[id]
		fn(e.id, e.meta, e.sender)
	}
}

// CountByRole is used for logging and health output.
func (r *Registry) CountByRole() map[Role]int {
	out := make(map[Role]int)
	for _, e := range r.entries {
		out[e.meta.Role]++
	}
	return out
}
