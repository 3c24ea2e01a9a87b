package store

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/mahaj/chat-relay/pkg/db"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScylla_Integration(t *testing.T) {
	hostsEnv := os.Getenv("SCYLLA_TEST_HOSTS")
	if hostsEnv == "" {
		t.Skip("SCYLLA_TEST_HOSTS not set")
	}
	hosts := strings.Split(hostsEnv, ",")
	const keyspace = "chat_test"

	require.NoError(t, db.EnsureSchema(hosts, keyspace, 10*time.Second))
	session, err := db.NewSession(hosts, keyspace, 10*time.Second)
	require.NoError(t, err)
	s := NewScylla(session)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	channel := "it-" + time.Now().Format("150405.000000")
	for i := int64(1); i <= 3; i++ {
		_, err := s.AppendMessage(ctx, message(channel, i))
		require.NoError(t, err)
	}

	history, err := s.LoadHistory(ctx, channel, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, int64(2), history[0].ID)
	assert.Equal(t, int64(3), history[1].ID)
	assert.Equal(t, model.KindUser, history[1].Kind)

	require.NoError(t, s.SetUserOnline(ctx, model.User{Key: "it-user", DisplayName: "IT"}, true))
	assert.True(t, s.Durable())
}

func TestRedisStatus_Integration(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	r := NewRedisStatus(addr)
	t.Cleanup(func() { _ = r.Close() })
	require.NoError(t, r.Reset(ctx))

	require.NoError(t, r.SetUserOnline(ctx, model.User{Key: "carol", DisplayName: "Carol"}, true))
	online, err := r.Online(ctx)
	require.NoError(t, err)
	assert.Contains(t, online, "carol")

	require.NoError(t, r.SetUserOnline(ctx, model.User{Key: "carol"}, false))
	online, err = r.Online(ctx)
	require.NoError(t, err)
	assert.NotContains(t, online, "carol")
}
