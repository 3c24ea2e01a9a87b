package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(channel string, id int64) model.Message {
	return model.Message{
		ID:        id,
		ChannelID: channel,
		Sender:    "alice",
		Content:   fmt.Sprintf("message %d", id),
		Kind:      model.KindUser,
		CreatedAt: time.Unix(id, 0),
	}
}

func TestMemory_TrimsPastHighWater(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := int64(1); i <= 101; i++ {
		_, err := m.AppendMessage(ctx, message("general", i))
		require.NoError(t, err)
	}

	history, err := m.LoadHistory(ctx, "general", 0)
	require.NoError(t, err)
	require.Len(t, history, HistoryRetain)
	for i, msg := range history {
		assert.Equal(t, int64(52+i), msg.ID, "index %d", i)
	}
}

func TestMemory_NoTrimAtHighWater(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := int64(1); i <= HistoryHighWater; i++ {
		_, err := m.AppendMessage(ctx, message("general", i))
		require.NoError(t, err)
	}
	history, err := m.LoadHistory(ctx, "general", 0)
	require.NoError(t, err)
	assert.Len(t, history, HistoryHighWater)
}

func TestMemory_RoundTripAndLimit(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i := int64(1); i <= 5; i++ {
		_, err := m.AppendMessage(ctx, message("trade", i))
		require.NoError(t, err)
	}
	_, err := m.AppendMessage(ctx, message("ooc", 99))
	require.NoError(t, err)

	history, err := m.LoadHistory(ctx, "trade", 0)
	require.NoError(t, err)
	require.Len(t, history, 5)
	assert.Equal(t, int64(1), history[0].ID)
	assert.Equal(t, int64(5), history[4].ID)

	last, err := m.LoadHistory(ctx, "trade", 2)
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, int64(4), last[0].ID)

	empty, err := m.LoadHistory(ctx, "events", 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestMemory_HistoryIsACopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_, err := m.AppendMessage(ctx, message("general", 1))
	require.NoError(t, err)

	history, err := m.LoadHistory(ctx, "general", 0)
	require.NoError(t, err)
	history[0].Content = "changed"

	again, err := m.LoadHistory(ctx, "general", 0)
	require.NoError(t, err)
	assert.Equal(t, "message 1", again[0].Content)
}

func TestMemory_UserStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	seen := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, m.SetUserOnline(ctx, model.User{Key: "bob", LastSeen: seen}, true))
	online, lastSeen := m.UserOnline("bob")
	assert.True(t, online)
	assert.Equal(t, seen, lastSeen)

	require.NoError(t, m.SetUserOnline(ctx, model.User{Key: "bob"}, false))
	online, _ = m.UserOnline("bob")
	assert.False(t, online)
	assert.False(t, m.Durable())
}

type fakeMirror struct {
	calls  []bool
	err    error
	closed bool
}

func (f *fakeMirror) SetUserOnline(_ context.Context, _ model.User, online bool) error {
	f.calls = append(f.calls, online)
	return f.err
}

func (f *fakeMirror) Close() error {
	f.closed = true
	return nil
}

func TestWithStatusMirror(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	mirror := &fakeMirror{}

	p := WithStatusMirror(mem, mirror)
	require.NoError(t, p.SetUserOnline(ctx, model.User{Key: "bob"}, true))
	assert.Equal(t, []bool{true}, mirror.calls)
	online, _ := mem.UserOnline("bob")
	assert.True(t, online)

	mirror.err = errors.New("redis down")
	assert.Error(t, p.SetUserOnline(ctx, model.User{Key: "bob"}, false))
	online, _ = mem.UserOnline("bob")
	assert.False(t, online, "port is updated before the mirror")

	require.NoError(t, p.Close())
	assert.True(t, mirror.closed)

	assert.Same(t, mem, WithStatusMirror(mem, nil))
}
