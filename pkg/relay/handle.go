package relay

import (
	"context"
	"time"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/fanout"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/protocol"
)

// HandleFrame decodes a raw client frame and handles it. Frames that do not
// decode are answered with join_error when they name a join event and with
// message_error otherwise.
func (c *Core) HandleFrame(ctx context.Context, connID string, frame []byte) {
	ev, err := protocol.Decode(frame)
	if err != nil {
		if protocol.IsJoin(frame) {
			c.reject(connID, protocol.JoinError, err)
		} else {
			c.reject(connID, protocol.MessageError, err)
		}
		return
	}
	c.Handle(ctx, connID, ev)
}

// Handle processes one client event for connID. Rejections go back to the
// originating connection only.
func (c *Core) Handle(ctx context.Context, connID string, ev protocol.Inbound) {
	switch ev := ev.(type) {
	case protocol.JoinRequest:
		if _, err := c.Join(ctx, connID, ev.Identity()); err != nil {
			c.reject(connID, protocol.JoinError, err)
		}
	case protocol.MessageRequest:
		if _, err := c.Send(ctx, connID, ev.Channel, ev.Content); err != nil {
			c.reject(connID, protocol.MessageError, err)
		}
	case protocol.PrivateMessageRequest:
		if _, err := c.SendPrivate(ctx, connID, ev.To, ev.Content); err != nil {
			c.reject(connID, protocol.MessageError, err)
		}
	case protocol.HistoryRequest:
		if err := c.SendHistory(ctx, connID, ev.Channel); err != nil {
			c.reject(connID, protocol.MessageError, err)
		}
	case protocol.LeaveRequest:
		c.Leave(ctx, connID)
	case protocol.PingRequest:
		c.Ping(connID)
	default:
		c.reject(connID, protocol.MessageError, appErrors.ErrUnknownEvent)
	}
}

func (c *Core) reject(connID string, build func(reason string) protocol.Event, err error) {
	c.logger.Debug("event rejected", "conn_id", connID, "code", appErrors.CodeOf(err), "err", err)
	c.fanout.ToConnection(connID, build(appErrors.Message(err)))
}

// OnlineUsers is the current online list in join order.
func (c *Core) OnlineUsers() []model.User {
	return c.tracker.Snapshot()
}

func (c *Core) Channels() []model.Channel {
	return c.router.Channels()
}

// Stats is a point-in-time view of the relay.
type Stats struct {
	Durable             bool         `json:"durable"`
	Connections         int          `json:"connections"`
	UsersOnline         int          `json:"users_online"`
	Delivery            fanout.Stats `json:"delivery"`
	PersistenceFailures int64        `json:"persistence_failures"`
	At                  time.Time    `json:"timestamp"`
}

func (c *Core) Stats() Stats {
	return Stats{
		Durable:             c.router.Durable(),
		Connections:         c.registry.Len(),
		UsersOnline:         c.tracker.Len(),
		Delivery:            c.fanout.Stats(),
		PersistenceFailures: c.router.PersistenceFailures(),
		At:                  c.now(),
	}
}
