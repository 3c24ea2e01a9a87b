// Package store is the persistence port of the relay: message append and
// history queries plus user online status. Two variants exist, the bounded
// in-memory fallback and the Scylla-backed durable store; one is picked at
// startup and injected.
package store

import (
	"context"

	"github.com/mahaj/chat-relay/pkg/model"
)

type Port interface {
	// AppendMessage stores msg. msg.ID is assigned by the caller.
	AppendMessage(ctx context.Context, msg model.Message) (model.Message, error)
	// LoadHistory returns up to limit most recent messages of a channel,
	// oldest first. limit <= 0 means everything retained.
	LoadHistory(ctx context.Context, channelID string, limit int) ([]model.Message, error)
	SetUserOnline(ctx context.Context, user model.User, online bool) error
	// Durable reports whether messages outlive the process.
	Durable() bool
	Close() error
}

// StatusMirror receives online status changes in addition to the port.
type StatusMirror interface {
	SetUserOnline(ctx context.Context, user model.User, online bool) error
	Close() error
}
