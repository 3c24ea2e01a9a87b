// Package notify forwards chat activity to third parties. Sending is
// decoupled from the relay through a bounded queue: a slow or failing sink
// loses notifications, never chat traffic.
package notify

import (
	"context"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
)

const (
	EventUserJoined = "user_joined"
	EventUserLeft   = "user_left"
	EventMessage    = "message"
)

type Notification struct {
	Event       string     `json:"event"`
	Channel     string     `json:"channel,omitempty"`
	User        string     `json:"user"`
	DisplayName string     `json:"display_name"`
	Content     string     `json:"content,omitempty"`
	Kind        model.Kind `json:"kind,omitempty"`
	MessageID   int64      `json:"message_id,omitempty"`
	At          time.Time  `json:"at"`
}

func ForMessage(msg model.Message) Notification {
	return Notification{
		Event:       EventMessage,
		Channel:     msg.ChannelID,
		User:        msg.Sender,
		DisplayName: msg.DisplayName,
		Content:     msg.Content,
		Kind:        msg.Kind,
		MessageID:   msg.ID,
		At:          msg.CreatedAt,
	}
}

func ForPresence(event string, u model.User, at time.Time) Notification {
	return Notification{Event: event, User: u.Key, DisplayName: u.DisplayName, At: at}
}

type Sink interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// Discard drops everything. Used when nothing is configured.
type Discard struct{}

func (Discard) Send(context.Context, Notification) error { return nil }

func (Discard) Close() error { return nil }
