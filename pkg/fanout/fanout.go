// Package fanout delivers server events to connections. Delivery is
// best-effort per connection: one failing recipient never stops the rest.
package fanout

import (
	"log/slog"
	"sync/atomic"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/presence"
	"github.com/mahaj/chat-relay/pkg/protocol"
)

// Directory resolves recipients. It is satisfied by presence.Registry.
type Directory interface {
	Connections() []*presence.Connection
	Connection(connID string) (*presence.Connection, bool)
	ConnectionFor(userKey string) (*presence.Connection, bool)
}

type Stats struct {
	Delivered int64 `json:"delivered"`
	Failed    int64 `json:"failed"`
}

type Fanout struct {
	dir    Directory
	logger *slog.Logger

	delivered atomic.Int64
	failed    atomic.Int64
}

func New(dir Directory, l *slog.Logger) *Fanout {
	return &Fanout{dir: dir, logger: logger.OrDefault(l)}
}

// ToAll delivers ev to every registered connection, the originator included.
func (f *Fanout) ToAll(ev protocol.Event) int {
	payload, ok := f.encode(ev)
	if !ok {
		return 0
	}
	return f.deliverAll(f.dir.Connections(), "", payload)
}

// ToOthers delivers ev to every registered connection except originID.
func (f *Fanout) ToOthers(originID string, ev protocol.Event) int {
	payload, ok := f.encode(ev)
	if !ok {
		return 0
	}
	return f.deliverAll(f.dir.Connections(), originID, payload)
}

// ToOne delivers ev to the live connection of userKey. It reports false,
// without attempting delivery, when the user is offline.
func (f *Fanout) ToOne(userKey string, ev protocol.Event) bool {
	conn, ok := f.dir.ConnectionFor(userKey)
	if !ok {
		return false
	}
	payload, ok := f.encode(ev)
	if !ok {
		return false
	}
	return f.deliver(conn, payload)
}

// ToConnection delivers ev to one connection, joined or not.
func (f *Fanout) ToConnection(connID string, ev protocol.Event) bool {
	conn, ok := f.dir.Connection(connID)
	if !ok {
		return false
	}
	payload, ok := f.encode(ev)
	if !ok {
		return false
	}
	return f.deliver(conn, payload)
}

func (f *Fanout) Stats() Stats {
	return Stats{Delivered: f.delivered.Load(), Failed: f.failed.Load()}
}

func (f *Fanout) encode(ev protocol.Event) ([]byte, bool) {
	payload, err := ev.Encode()
	if err != nil {
		f.logger.Error("failed to encode event", "type", ev.Type, "err", err)
		return nil, false
	}
	return payload, true
}

func (f *Fanout) deliverAll(conns []*presence.Connection, skipID string, payload []byte) int {
	n := 0
	for _, conn := range conns {
		if conn.ID == skipID {
			continue
		}
		if f.deliver(conn, payload) {
			n++
		}
	}
	return n
}

func (f *Fanout) deliver(conn *presence.Connection, payload []byte) bool {
	if conn.Outbox == nil {
		return false
	}
	if err := conn.Outbox.Deliver(payload); err != nil {
		f.failed.Add(1)
		f.logger.Warn("dropped event for connection",
			"conn_id", conn.ID, "err", appErrors.DeliveryFailure(err))
		return false
	}
	f.delivered.Add(1)
	return true
}
