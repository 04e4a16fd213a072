package users

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo is an in-memory Repository used by tests and STORE_DRIVER=memory.
// The mutex serializes the email uniqueness check with the insert.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Identity
	byEmail map[string]string
	clock   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    map[string]Identity{},
		byEmail: map[string]string{},
		clock:   time.Now,
	}
}

func (r *MemoryRepo) Create(_ context.Context, u Identity) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = NormalizeEmail(u.Email)
	if _, ok := r.byEmail[u.Email]; ok {
		return Identity{}, ErrConflict
	}
	if _, ok := r.byID[u.ID]; ok {
		return Identity{}, ErrConflict
	}
	now := r.clock().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	r.byID[u.ID] = u
	r.byEmail[u.Email] = u.ID
	return u, nil
}

func (r *MemoryRepo) FindByID(_ context.Context, id string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return u, nil
}

func (r *MemoryRepo) FindByEmail(_ context.Context, email string) (Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[NormalizeEmail(email)]
	if !ok {
		return Identity{}, ErrNotFound
	}
	return r.byID[id], nil
}

func (r *MemoryRepo) List(_ context.Context) ([]Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Identity, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryRepo) Update(_ context.Context, id string, upd Update) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return Identity{}, ErrNotFound
	}
	if upd.Email != nil {
		email := NormalizeEmail(*upd.Email)
		if owner, taken := r.byEmail[email]; taken && owner != id {
			return Identity{}, ErrConflict
		}
		delete(r.byEmail, u.Email)
		u.Email = email
		r.byEmail[email] = id
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.PasswordHash != nil {
		u.PasswordHash = *upd.PasswordHash
	}
	u.UpdatedAt = r.clock().UTC()
	r.byID[id] = u
	return u, nil
}

func (r *MemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.byEmail, u.Email)
	return nil
}
