package presence

import (
	"slices"
	"sync"

	"github.com/mahaj/chat-relay/pkg/model"
)

// Tracker is the online list. It is ordered by join time and holds one
// entry per user key.
type Tracker struct {
	mu    sync.RWMutex
	order []string
	users map[string]model.User
}

func NewTracker() *Tracker {
	return &Tracker{users: make(map[string]model.User)}
}

// OnJoin adds u, replacing any entry with the same key, and returns the
// new snapshot.
func (t *Tracker) OnJoin(u model.User) []model.User {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.users[u.Key]; ok {
		t.removeLocked(u.Key)
	}
	t.users[u.Key] = u
	t.order = append(t.order, u.Key)
	return t.snapshotLocked()
}

// OnLeave removes u if the entry for its key belongs to the same
// connection. Unknown users are ignored.
func (t *Tracker) OnLeave(u model.User) []model.User {
	t.mu.Lock()
	defer t.mu.Unlock()

	if cur, ok := t.users[u.Key]; ok && cur.ConnID == u.ConnID {
		t.removeLocked(u.Key)
	}
	return t.snapshotLocked()
}

func (t *Tracker) Snapshot() []model.User {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.snapshotLocked()
}

func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

func (t *Tracker) Online(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.users[key]
	return ok
}

// User returns the online entry for key.
func (t *Tracker) User(key string) (model.User, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	u, ok := t.users[key]
	return u, ok
}

func (t *Tracker) removeLocked(key string) {
	delete(t.users, key)
	if i := slices.Index(t.order, key); i >= 0 {
		t.order = slices.Delete(t.order, i, i+1)
	}
}

func (t *Tracker) snapshotLocked() []model.User {
	out := make([]model.User, 0, len(t.order))
	for _, key := range t.order {
		out = append(out, t.users[key])
	}
	return out
}
