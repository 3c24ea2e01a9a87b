package store

import (
	"context"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/redis/go-redis/v9"
)

const (
	onlineSetKey = "chat:online"
	lastSeenKey  = "chat:last_seen"
	displayKey   = "chat:display_name"
)

// RedisStatus mirrors online status into Redis so other services can read
// who is connected without talking to the relay.
type RedisStatus struct {
	rdb *redis.Client
}

func NewRedisStatus(addr string) *RedisStatus {
	return &RedisStatus{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisStatus) SetUserOnline(ctx context.Context, user model.User, online bool) error {
	lastSeen := user.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}

	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if online {
			pipe.SAdd(ctx, onlineSetKey, user.Key)
		} else {
			pipe.SRem(ctx, onlineSetKey, user.Key)
		}
		pipe.HSet(ctx, lastSeenKey, user.Key, lastSeen.UTC().Format(time.RFC3339Nano))
		pipe.HSet(ctx, displayKey, user.Key, user.DisplayName)
		return nil
	})
	return err
}

// Online returns the user keys currently marked online.
func (r *RedisStatus) Online(ctx context.Context) ([]string, error) {
	return r.rdb.SMembers(ctx, onlineSetKey).Result()
}

// Reset clears the online set. Called at startup, since a fresh process
// has no connections.
func (r *RedisStatus) Reset(ctx context.Context) error {
	return r.rdb.Del(ctx, onlineSetKey).Err()
}

func (r *RedisStatus) Close() error {
	return r.rdb.Close()
}

// mirrored fans SetUserOnline out to the port and a mirror.
type mirrored struct {
	Port
	mirror StatusMirror
}

// WithStatusMirror returns p with online status also written to mirror.
// A mirror failure is reported after the port has been updated.
func WithStatusMirror(p Port, mirror StatusMirror) Port {
	if mirror == nil {
		return p
	}
	return &mirrored{Port: p, mirror: mirror}
}

func (m *mirrored) SetUserOnline(ctx context.Context, user model.User, online bool) error {
	if err := m.Port.SetUserOnline(ctx, user, online); err != nil {
		return err
	}
	return m.mirror.SetUserOnline(ctx, user, online)
}

func (m *mirrored) Close() error {
	mirrorErr := m.mirror.Close()
	if err := m.Port.Close(); err != nil {
		return err
	}
	return mirrorErr
}
