package revocation

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist is an in-process denylist for tests and single-instance development.
type MemoryDenylist struct {
	mu    sync.Mutex
	until map[string]time.Time
	clock func() time.Time
}

func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{until: map[string]time.Time{}, clock: time.Now}
}

func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.until[tokenID] = until
	return nil
}

func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	exp, ok := d.until[tokenID]
	if !ok {
		return false, nil
	}
	if !d.clock().Before(exp) {
		delete(d.until, tokenID)
		return false, nil
	}
	return true, nil
}
