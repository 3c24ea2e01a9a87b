// Package router owns channel identity and per-channel message history.
// History is delegated to the persistence port picked at startup; with the
// in-memory port the bounded retention policy of that port applies.
package router

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/store"
)

// IDGenerator hands out message ids.
type IDGenerator interface {
	Generate() int64
}

type Options struct {
	DefaultChannel string
	// Channels is the allow-list. When empty any channel id is accepted
	// and created on first use.
	Channels []model.Channel
	// HistoryLimit bounds backfill reads from a durable port.
	HistoryLimit int
	IOTimeout    time.Duration
	Logger       *slog.Logger
}

type Router struct {
	port   store.Port
	ids    IDGenerator
	logger *slog.Logger
	now    func() time.Time

	defaultID string
	restrict  bool
	backfill  int
	ioTimeout time.Duration

	mu       sync.RWMutex
	channels map[string]model.Channel
	order    []string
	lastAt   map[string]time.Time

	failures atomic.Int64
}

func New(port store.Port, ids IDGenerator, opts Options) *Router {
	r := &Router{
		port:      port,
		ids:       ids,
		logger:    logger.OrDefault(opts.Logger),
		now:       time.Now,
		defaultID: opts.DefaultChannel,
		restrict:  len(opts.Channels) > 0,
		ioTimeout: opts.IOTimeout,
		channels:  make(map[string]model.Channel),
		lastAt:    make(map[string]time.Time),
	}
	if r.defaultID == "" {
		r.defaultID = "general"
	}
	if r.ioTimeout <= 0 {
		r.ioTimeout = 5 * time.Second
	}
	if port.Durable() {
		r.backfill = opts.HistoryLimit
	}

	for _, ch := range opts.Channels {
		r.addLocked(ch)
	}
	if _, ok := r.channels[r.defaultID]; !ok {
		r.addLocked(model.Channel{ID: r.defaultID, Name: r.defaultID})
	}
	return r
}

func (r *Router) addLocked(ch model.Channel) {
	if _, ok := r.channels[ch.ID]; ok {
		return
	}
	r.channels[ch.ID] = ch
	r.order = append(r.order, ch.ID)
}

// DefaultChannel returns the id used when a channel cannot be resolved.
func (r *Router) DefaultChannel() string {
	return r.defaultID
}

// ResolveChannel maps a requested id to a channel for posting. Blank ids,
// conversation ids and ids outside the allow-list resolve to the default
// channel; other unknown ids are created empty.
func (r *Router) ResolveChannel(id string) model.Channel {
	ch, known := r.lookup(id)
	if known {
		return ch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.addLocked(ch)
	return r.channels[ch.ID]
}

// LookupChannel resolves id like ResolveChannel without creating anything.
// An unknown id in open mode comes back unregistered and has no history.
func (r *Router) LookupChannel(id string) model.Channel {
	ch, _ := r.lookup(id)
	return ch
}

func (r *Router) lookup(id string) (model.Channel, bool) {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, model.DirectPrefix) {
		id = r.defaultID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if ch, ok := r.channels[id]; ok {
		return ch, true
	}
	if r.restrict {
		return r.channels[r.defaultID], true
	}
	return model.Channel{ID: id, Name: id}, false
}

// Channels lists known channels, configured ones first.
func (r *Router) Channels() []model.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Channel, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.channels[id])
	}
	return out
}

// Stamp assigns an id and creation time to msg for channelID without
// storing it. Creation times never go backwards within a channel.
func (r *Router) Stamp(channelID string, msg model.Message) model.Message {
	r.mu.Lock()
	defer r.mu.Unlock()

	at := r.now()
	if last := r.lastAt[channelID]; at.Before(last) {
		at = last
	}
	r.lastAt[channelID] = at

	msg.ChannelID = channelID
	msg.ID = r.ids.Generate()
	msg.CreatedAt = at
	return msg
}

// Append stamps msg and stores it on channelID. A store failure is logged
// and counted; the stamped message is returned either way so live delivery
// continues.
func (r *Router) Append(ctx context.Context, channelID string, msg model.Message) model.Message {
	msg = r.Stamp(channelID, msg)

	ctx, cancel := context.WithTimeout(ctx, r.ioTimeout)
	defer cancel()

	stored, err := r.port.AppendMessage(ctx, msg)
	if err != nil {
		r.failures.Add(1)
		r.logger.Warn("message kept in memory only",
			"channel", channelID, "id", msg.ID, "err", appErrors.PersistenceFailure(err))
		return msg
	}
	return stored
}

// History returns the retained history of channelID, oldest first. It
// never fails; a store error yields an empty history.
func (r *Router) History(ctx context.Context, channelID string) []model.Message {
	ctx, cancel := context.WithTimeout(ctx, r.ioTimeout)
	defer cancel()

	history, err := r.port.LoadHistory(ctx, channelID, r.backfill)
	if err != nil {
		r.failures.Add(1)
		r.logger.Warn("history unavailable",
			"channel", channelID, "err", appErrors.PersistenceFailure(err))
		return []model.Message{}
	}
	if history == nil {
		history = []model.Message{}
	}
	return history
}

// Durable reports the mode chosen at startup.
func (r *Router) Durable() bool {
	return r.port.Durable()
}

// PersistenceFailures counts store errors absorbed so far.
func (r *Router) PersistenceFailures() int64 {
	return r.failures.Load()
}
