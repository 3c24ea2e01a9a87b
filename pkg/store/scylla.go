package store

import (
	"context"
	"slices"
	"time"

	"github.com/gocql/gocql"
	"github.com/mahaj/chat-relay/pkg/db"
	"github.com/mahaj/chat-relay/pkg/model"
)

const maxHistoryQuery = 500

// Scylla is the durable port. Messages are partitioned by channel and
// clustered by id descending; users hold is_online/last_seen.
type Scylla struct {
	session *db.Session
}

func NewScylla(session *db.Session) *Scylla {
	return &Scylla{session: session}
}

func (s *Scylla) AppendMessage(ctx context.Context, msg model.Message) (model.Message, error) {
	query := `INSERT INTO messages (channel_id, id, sender, display_name, avatar, content, kind, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	err := s.session.Query(query,
		msg.ChannelID, msg.ID, msg.Sender, msg.DisplayName, msg.Avatar, msg.Content, string(msg.Kind), msg.CreatedAt,
	).WithContext(ctx).Exec()
	if err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

func (s *Scylla) LoadHistory(ctx context.Context, channelID string, limit int) ([]model.Message, error) {
	if limit <= 0 || limit > maxHistoryQuery {
		limit = maxHistoryQuery
	}

	iter := s.session.Query(
		`SELECT channel_id, id, sender, display_name, avatar, content, kind, created_at FROM messages WHERE channel_id = ? LIMIT ?`,
		channelID, limit,
	).WithContext(ctx).Iter()

	var (
		messages []model.Message
		msg      model.Message
		kind     string
	)
	for iter.Scan(&msg.ChannelID, &msg.ID, &msg.Sender, &msg.DisplayName, &msg.Avatar, &msg.Content, &kind, &msg.CreatedAt) {
		msg.Kind = model.Kind(kind)
		messages = append(messages, msg)
	}
	if err := iter.Close(); err != nil {
		return nil, err
	}

	// Rows come newest first.
	slices.Reverse(messages)
	return messages, nil
}

func (s *Scylla) SetUserOnline(ctx context.Context, user model.User, online bool) error {
	lastSeen := user.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}
	query := `INSERT INTO users (username, display_name, avatar, is_online, last_seen) VALUES (?, ?, ?, ?, ?)`
	return s.session.Query(query, user.Key, user.DisplayName, user.Avatar, online, lastSeen).
		WithContext(ctx).
		Consistency(gocql.One).
		Exec()
}

func (s *Scylla) Durable() bool { return true }

func (s *Scylla) Close() error {
	s.session.Close()
	return nil
}
