// Package relay is the chat core: it owns the connection registry, the
// online list, channel routing and fanout, and processes client events.
//
// Presence mutations and the broadcasts they trigger happen under one lock,
// so every join or leave is fully applied and announced before the next
// one starts. Store and notification I/O always runs outside that lock.
package relay

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mahaj/chat-relay/pkg/commands"
	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/fanout"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/notify"
	"github.com/mahaj/chat-relay/pkg/presence"
	"github.com/mahaj/chat-relay/pkg/protocol"
	"github.com/mahaj/chat-relay/pkg/router"
	"github.com/mahaj/chat-relay/pkg/store"
)

// TokenIssuer hands a REST token to users when they join.
type TokenIssuer interface {
	GenerateToken(username, displayName string) (string, error)
}

// Publisher takes notifications without blocking.
type Publisher interface {
	Publish(n notify.Notification)
}

type Options struct {
	MaxMessageLength int
	IOTimeout        time.Duration
	Tokens           TokenIssuer
	Notifier         Publisher
	Logger           *slog.Logger
}

type Core struct {
	mu sync.Mutex

	registry *presence.Registry
	tracker  *presence.Tracker
	router   *router.Router
	fanout   *fanout.Fanout
	commands *commands.Interpreter
	store    store.Port

	tokens    TokenIssuer
	notifier  Publisher
	maxLen    int
	ioTimeout time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

func New(port store.Port, rt *router.Router, interpreter *commands.Interpreter, opts Options) *Core {
	l := logger.OrDefault(opts.Logger)
	registry := presence.NewRegistry()

	c := &Core{
		registry:  registry,
		tracker:   presence.NewTracker(),
		router:    rt,
		fanout:    fanout.New(registry, l),
		commands:  interpreter,
		store:     port,
		tokens:    opts.Tokens,
		notifier:  opts.Notifier,
		maxLen:    opts.MaxMessageLength,
		ioTimeout: opts.IOTimeout,
		logger:    l,
		now:       time.Now,
	}
	if c.maxLen <= 0 {
		c.maxLen = 2000
	}
	if c.ioTimeout <= 0 {
		c.ioTimeout = 5 * time.Second
	}
	return c
}

// Connect registers a new transport session with no user bound yet.
func (c *Core) Connect(connID string, out presence.Outbox) error {
	_, err := c.registry.Register(connID, out)
	if err != nil {
		c.logger.Error("connection rejected", "conn_id", connID, "err", err)
		return err
	}
	c.logger.Debug("connection registered", "conn_id", connID)
	return nil
}

// Join binds identity to connID and announces it. A live connection holding
// the same username loses its binding first, and its departure is announced
// before the new arrival.
func (c *Core) Join(ctx context.Context, connID string, identity model.Identity) (model.User, error) {
	identity, err := presence.NormalizeIdentity(identity)
	if err != nil {
		return model.User{}, err
	}
	token := c.issueToken(identity)

	c.mu.Lock()
	user, displaced, err := c.registry.BindUser(connID, identity)
	if err != nil {
		c.mu.Unlock()
		return model.User{}, err
	}
	var wentOffline []model.User
	for _, d := range displaced {
		c.tracker.OnLeave(d)
		c.fanout.ToOthers(connID, protocol.UserLeft(d))
		if d.Key != user.Key {
			wentOffline = append(wentOffline, d)
		}
	}
	snapshot := c.tracker.OnJoin(user)
	c.fanout.ToOthers(connID, protocol.UserJoined(user))
	c.fanout.ToConnection(connID, protocol.Joined(user, token))
	c.fanout.ToAll(protocol.OnlineUsers(snapshot))
	c.mu.Unlock()

	c.logger.Info("user joined", "conn_id", connID, "user", user.Key, "online", len(snapshot), "displaced", len(displaced))

	for _, d := range wentOffline {
		c.persistStatus(ctx, d, false)
	}
	c.persistStatus(ctx, user, true)

	channel := c.router.DefaultChannel()
	c.fanout.ToConnection(connID, protocol.History(channel, c.router.History(ctx, channel)))
	welcome := c.router.Stamp(channel, c.commands.Welcome(user))
	c.fanout.ToConnection(connID, protocol.NewMessage(welcome))

	c.publish(notify.ForPresence(notify.EventUserJoined, user, user.JoinedAt))
	return user, nil
}

// Send appends a chat message to its channel and broadcasts it to everyone.
// A slash-command additionally yields one bot reply on the same channel.
func (c *Core) Send(ctx context.Context, connID string, channelID, content string) (model.Message, error) {
	user, ok := c.registry.User(connID)
	if !ok {
		return model.Message{}, appErrors.ErrUnknownSender
	}
	if err := c.validateContent(content); err != nil {
		return model.Message{}, err
	}
	c.registry.Touch(connID)

	channel := c.router.ResolveChannel(channelID)
	msg := c.router.Append(ctx, channel.ID, model.Message{
		Sender:      user.Key,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		Content:     content,
		Kind:        model.KindUser,
	})
	c.fanout.ToAll(protocol.NewMessage(msg))
	c.publish(notify.ForMessage(msg))

	if reply, ok := c.commands.Interpret(content, user, c.tracker.Snapshot()); ok {
		botMsg := c.router.Append(ctx, channel.ID, reply.Message())
		c.fanout.ToAll(protocol.NewMessage(botMsg))
		c.publish(notify.ForMessage(botMsg))
		c.logger.Debug("command answered", "user", user.Key, "command", reply.Command, "bot", reply.Bot.Key)
	}
	return msg, nil
}

// SendPrivate delivers content to the live connection of the user keyed to.
// Offline recipients are not queued. The sender always gets a sent
// acknowledgement saying whether delivery happened.
func (c *Core) SendPrivate(ctx context.Context, connID, to, content string) (bool, error) {
	user, ok := c.registry.User(connID)
	if !ok {
		return false, appErrors.ErrUnknownSender
	}
	to = strings.TrimSpace(to)
	if to == "" {
		return false, appErrors.ErrEmptyRecipient
	}
	if err := c.validateContent(content); err != nil {
		return false, err
	}
	c.registry.Touch(connID)

	msg := model.Message{
		Sender:      user.Key,
		DisplayName: user.DisplayName,
		Avatar:      user.Avatar,
		Content:     content,
		Kind:        model.KindUser,
	}
	direct := model.DirectChannel(user.Key, to)
	if c.router.Durable() {
		msg = c.router.Append(ctx, direct, msg)
	} else {
		msg = c.router.Stamp(direct, msg)
	}

	delivered := c.fanout.ToOne(to, protocol.PrivateMessage(user, content, msg.CreatedAt))
	c.fanout.ToConnection(connID, protocol.Sent(to, content, delivered, msg.CreatedAt))
	return delivered, nil
}

// SendHistory backfills one channel to connID. Conversation channels are
// only readable by their participants.
func (c *Core) SendHistory(ctx context.Context, connID, channelID string) error {
	c.registry.Touch(connID)
	var viewer string
	if u, ok := c.registry.User(connID); ok {
		viewer = u.Key
	}
	id, history, err := c.ChannelHistory(ctx, channelID, viewer)
	if err != nil {
		return err
	}
	c.fanout.ToConnection(connID, protocol.History(id, history))
	return nil
}

// ChannelHistory reads history for channelID on behalf of the user keyed
// viewer, which may be empty for anonymous readers. Reading never creates
// a channel.
func (c *Core) ChannelHistory(ctx context.Context, channelID, viewer string) (string, []model.Message, error) {
	channelID = strings.TrimSpace(channelID)
	if strings.HasPrefix(channelID, model.DirectPrefix) {
		if !model.CanRead(channelID, viewer) {
			return "", nil, appErrors.ErrForbiddenChannel
		}
		return channelID, c.router.History(ctx, channelID), nil
	}
	channel := c.router.LookupChannel(channelID)
	return channel.ID, c.router.History(ctx, channel.ID), nil
}

// Ping answers a liveness check.
func (c *Core) Ping(connID string) {
	c.registry.Touch(connID)
	c.fanout.ToConnection(connID, protocol.Pong(c.now()))
}

// Leave unbinds the user of connID but keeps the connection, which may
// join again. It reports whether a user was bound.
func (c *Core) Leave(ctx context.Context, connID string) bool {
	return c.depart(ctx, connID, false)
}

// Disconnect tears down connID. Repeated calls are no-ops.
func (c *Core) Disconnect(ctx context.Context, connID string) bool {
	return c.depart(ctx, connID, true)
}

func (c *Core) depart(ctx context.Context, connID string, remove bool) bool {
	c.mu.Lock()
	var (
		user  model.User
		bound bool
	)
	if remove {
		user, bound = c.registry.Unregister(connID)
	} else {
		user, bound = c.registry.Unbind(connID)
	}
	if !bound {
		c.mu.Unlock()
		return false
	}
	snapshot := c.tracker.OnLeave(user)
	c.fanout.ToOthers(connID, protocol.UserLeft(user))
	c.fanout.ToAll(protocol.OnlineUsers(snapshot))
	stillOnline := c.tracker.Online(user.Key)
	c.mu.Unlock()

	c.logger.Info("user left", "conn_id", connID, "user", user.Key, "online", len(snapshot), "closed", remove)

	if !stillOnline {
		c.persistStatus(ctx, user, false)
	}
	c.publish(notify.ForPresence(notify.EventUserLeft, user, user.LastSeen))
	return true
}

func (c *Core) validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return appErrors.ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > c.maxLen {
		return appErrors.ErrMessageTooLong
	}
	return nil
}

func (c *Core) issueToken(id model.Identity) string {
	if c.tokens == nil {
		return ""
	}
	token, err := c.tokens.GenerateToken(id.Username, id.DisplayName)
	if err != nil {
		c.logger.Warn("token not issued", "user", id.Username, "err", err)
		return ""
	}
	return token
}

// persistStatus stores the online flag of u. Writes for one key can land
// out of order, so the stored flag is checked against the online list
// afterwards and corrected when they disagree.
func (c *Core) persistStatus(ctx context.Context, u model.User, online bool) {
	c.writeStatus(ctx, u, online)

	current, nowOnline := c.tracker.User(u.Key)
	if nowOnline == online {
		return
	}
	if nowOnline {
		u = current
	} else {
		u.LastSeen = c.now()
	}
	c.writeStatus(ctx, u, nowOnline)
}

func (c *Core) writeStatus(ctx context.Context, u model.User, online bool) {
	ctx, cancel := context.WithTimeout(ctx, c.ioTimeout)
	defer cancel()

	if err := c.store.SetUserOnline(ctx, u, online); err != nil {
		c.logger.Warn("online status not stored",
			"user", u.Key, "online", online, "err", appErrors.PersistenceFailure(err))
	}
}

func (c *Core) publish(n notify.Notification) {
	if c.notifier != nil {
		c.notifier.Publish(n)
	}
}
