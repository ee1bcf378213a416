package session

import (
	"sync"
)

// Registry maps identifiers to registrations.
// All methods are safe for concurrent use and never block on I/O.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]Registration
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]Registration),
	}
}

// Get returns the registration for id.
//
// Postcondition: Returns (registration, true) if found, or (nil, false) otherwise.
func (r *Registry) Get(id string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.entries[id]
	return reg, ok
}

// Game returns the game session registered under id.
//
// Postcondition: Returns (session, true) only when id holds a *GameSession.
func (r *Registry) Game(id string) (*GameSession, bool) {
	reg, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	gs, ok := reg.(*GameSession)
	return gs, ok
}

// Listener returns the listener channel registered under id.
//
// Postcondition: Returns (listener, true) only when id holds a *ListenerChannel.
func (r *Registry) Listener(id string) (*ListenerChannel, bool) {
	reg, ok := r.Get(id)
	if !ok {
		return nil, false
	}
	lc, ok := reg.(*ListenerChannel)
	return lc, ok
}

// Add inserts reg, replacing any entry with the same id.
//
// Precondition: reg must be non-nil.
func (r *Registry) Add(reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[reg.RegistrationID()] = reg
}

// Update stores the latest version of reg. It has the same effect as Add.
//
// Precondition: reg must be non-nil.
func (r *Registry) Update(reg Registration) {
	r.Add(reg)
}

// Remove deletes the entry for id. Removing an absent id is a no-op.
//
// Postcondition: Returns the removed registration and true, or (nil, false) if absent.
func (r *Registry) Remove(id string) (Registration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
	}
	return reg, ok
}

// RemoveListener deletes id only when it holds a listener channel. The check
// and the delete happen under one lock, so a game session registered under the
// same id is never removed by mistake.
//
// Postcondition: Returns the removed listener and true, or (nil, false).
func (r *Registry) RemoveListener(id string) (*ListenerChannel, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	lc, ok := r.entries[id].(*ListenerChannel)
	if !ok {
		return nil, false
	}
	delete(r.entries, id)
	return lc, true
}

// ListIDs returns a point-in-time snapshot of all registered ids.
func (r *Registry) ListIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Counts returns the number of game sessions and listener channels.
func (r *Registry) Counts() (games, listeners int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, reg := range r.entries {
		switch reg.(type) {
		case *GameSession:
			games++
		case *ListenerChannel:
			listeners++
		}
	}
	return games, listeners
}

// Len returns the total number of registrations.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
