// Package presence tracks live connections, the users bound to them, and
// the ordered online list derived from those bindings.
package presence

import (
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/model"
)

// Outbox accepts encoded events for one connection. Deliver must not block.
type Outbox interface {
	Deliver(payload []byte) error
}

// Connection is one live transport session.
type Connection struct {
	ID     string
	Outbox Outbox

	user *model.User
}

// Registry maps connection ids to connections and connections to users.
// At most one connection holds a given user key at any time.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Connection
	byKey map[string]string // user key -> connection id
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		conns: make(map[string]*Connection),
		byKey: make(map[string]string),
		now:   time.Now,
	}
}

// Register adds a connection with no user bound.
func (r *Registry) Register(connID string, out Outbox) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[connID]; ok {
		return nil, appErrors.ErrDuplicateConnection
	}
	conn := &Connection{ID: connID, Outbox: out}
	r.conns[connID] = conn
	return conn, nil
}

// NormalizeIdentity trims the identity fields and fills in the avatar.
func NormalizeIdentity(id model.Identity) (model.Identity, error) {
	id.Username = strings.TrimSpace(id.Username)
	id.DisplayName = strings.TrimSpace(id.DisplayName)
	id.Avatar = strings.TrimSpace(id.Avatar)
	if id.Username == "" || id.DisplayName == "" {
		return model.Identity{}, appErrors.ErrInvalidIdentity
	}
	if id.Avatar == "" {
		first, _ := utf8.DecodeRuneInString(id.Username)
		id.Avatar = string(unicode.ToUpper(first))
	}
	return id, nil
}

// BindUser builds a User from id and binds it to connID. Bindings that had
// to be cleared first are returned in the order they were cleared: the
// connection's own previous user, then any other connection holding the
// same key. Nothing changes when validation fails.
func (r *Registry) BindUser(connID string, id model.Identity) (model.User, []model.User, error) {
	id, err := NormalizeIdentity(id)
	if err != nil {
		return model.User{}, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return model.User{}, nil, appErrors.ErrUnknownConnection
	}

	var displaced []model.User
	if prev, ok := r.unbindLocked(conn); ok {
		displaced = append(displaced, prev)
	}
	if otherID, ok := r.byKey[id.Username]; ok {
		if prev, ok := r.unbindLocked(r.conns[otherID]); ok {
			displaced = append(displaced, prev)
		}
	}

	now := r.now()
	user := model.User{
		Key:         id.Username,
		DisplayName: id.DisplayName,
		Avatar:      id.Avatar,
		ConnID:      connID,
		JoinedAt:    now,
		LastSeen:    now,
	}
	conn.user = &user
	r.byKey[user.Key] = connID
	return user, displaced, nil
}

// Unbind clears the user bound to connID, keeping the connection.
func (r *Registry) Unbind(connID string) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return model.User{}, false
	}
	return r.unbindLocked(conn)
}

// Unregister removes the connection and returns its user if it had joined.
// Calling it again for the same id is a no-op.
func (r *Registry) Unregister(connID string) (model.User, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return model.User{}, false
	}
	user, bound := r.unbindLocked(conn)
	delete(r.conns, connID)
	return user, bound
}

func (r *Registry) unbindLocked(conn *Connection) (model.User, bool) {
	if conn == nil || conn.user == nil {
		return model.User{}, false
	}
	user := *conn.user
	user.LastSeen = r.now()
	conn.user = nil
	if r.byKey[user.Key] == conn.ID {
		delete(r.byKey, user.Key)
	}
	return user, true
}

// User returns the user bound to connID.
func (r *Registry) User(connID string) (model.User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	if !ok || conn.user == nil {
		return model.User{}, false
	}
	return *conn.user, true
}

// Touch records activity on connID's user.
func (r *Registry) Touch(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[connID]; ok && conn.user != nil {
		conn.user.LastSeen = r.now()
	}
}

func (r *Registry) Connection(connID string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[connID]
	return conn, ok
}

// ConnectionFor resolves a user key to its live connection.
func (r *Registry) ConnectionFor(userKey string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok := r.byKey[userKey]
	if !ok {
		return nil, false
	}
	conn, ok := r.conns[connID]
	return conn, ok
}

// Connections returns every registered connection, joined or not.
func (r *Registry) Connections() []*Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		out = append(out, conn)
	}
	return out
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// BoundCount returns the number of connections with a user bound.
func (r *Registry) BoundCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byKey)
}
