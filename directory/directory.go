package directory

import (
	"context"
	"fmt"
	"sync"
)

// Source yields the authoritative user list, typically the persistent
// store.
type Source interface {
	ListUsers(ctx context.Context) ([]User, error)
}

// Directory is an in-memory snapshot of authorized users. Reload replaces
// the whole snapshot atomically; concurrent readers observe either the old
// or the new collection, never a partially updated one.
type Directory struct {
	mu    sync.RWMutex
	users []User
}

func New(users []User) *Directory {
	d := &Directory{}
	d.replace(users)
	return d
}

// Find looks up a user by exact, case-sensitive username match.
func (d *Directory) Find(username string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, u := range d.users {
		if u.Username == username {
			return u, true
		}
	}
	return User{}, false
}

// Snapshot returns a copy of the current user list.
func (d *Directory) Snapshot() []User {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]User, len(d.users))
	copy(out, d.users)
	return out
}

// Reload refreshes the snapshot from source. On source failure the
// previous snapshot stays in place.
func (d *Directory) Reload(ctx context.Context, source Source) ([]User, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	users, err := source.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	d.replace(users)
	return users, nil
}

func (d *Directory) replace(users []User) {
	next := make([]User, len(users))
	copy(next, users)
	d.mu.Lock()
	d.users = next
	d.mu.Unlock()
}
