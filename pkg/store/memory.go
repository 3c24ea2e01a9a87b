package store

import (
	"context"
	"sync"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
)

const (
	// HistoryHighWater is the length past which a channel is trimmed.
	HistoryHighWater = 100
	// HistoryRetain is the length a trimmed channel is cut back to.
	HistoryRetain = 50
)

type userStatus struct {
	Online   bool
	LastSeen time.Time
}

// Memory is the fallback port used when no durable store is configured.
// Each channel keeps at most HistoryHighWater messages; once exceeded the
// oldest are dropped down to HistoryRetain.
type Memory struct {
	mu       sync.RWMutex
	channels map[string][]model.Message
	users    map[string]userStatus
}

func NewMemory() *Memory {
	return &Memory{
		channels: make(map[string][]model.Message),
		users:    make(map[string]userStatus),
	}
}

func (m *Memory) AppendMessage(_ context.Context, msg model.Message) (model.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	history := append(m.channels[msg.ChannelID], msg)
	if len(history) > HistoryHighWater {
		trimmed := make([]model.Message, HistoryRetain)
		copy(trimmed, history[len(history)-HistoryRetain:])
		history = trimmed
	}
	m.channels[msg.ChannelID] = history
	return msg, nil
}

func (m *Memory) LoadHistory(_ context.Context, channelID string, limit int) ([]model.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	history := m.channels[channelID]
	if limit <= 0 || limit > len(history) {
		limit = len(history)
	}
	out := make([]model.Message, limit)
	copy(out, history[len(history)-limit:])
	return out, nil
}

func (m *Memory) SetUserOnline(_ context.Context, user model.User, online bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[user.Key] = userStatus{Online: online, LastSeen: user.LastSeen}
	return nil
}

// UserOnline reports the last status stored for key.
func (m *Memory) UserOnline(key string) (online bool, lastSeen time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := m.users[key]
	return st.Online, st.LastSeen
}

func (m *Memory) Durable() bool { return false }

func (m *Memory) Close() error { return nil }
