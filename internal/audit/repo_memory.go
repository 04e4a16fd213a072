package audit

import (
	"context"
	"sync"
)

// MemoryRepo keeps events in append order. Used by tests and STORE_DRIVER=memory.
type MemoryRepo struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (r *MemoryRepo) Append(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

// Filter selects events; zero fields match anything.
type Filter struct {
	Type          EventType
	SubjectUserID string
}

func (f Filter) match(e Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.SubjectUserID != "" && e.SubjectUserID != f.SubjectUserID {
		return false
	}
	return true
}

// Find returns a copy of the events matching f, oldest first.
func (r *MemoryRepo) Find(f Filter) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Event
	for _, e := range r.events {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}
