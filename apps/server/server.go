package main

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mahaj/chat-relay/pkg/auth"
	"github.com/mahaj/chat-relay/pkg/logger"
	"github.com/mahaj/chat-relay/pkg/notify"
	"github.com/mahaj/chat-relay/pkg/relay"
)

type notifierStats interface {
	Stats() notify.Stats
}

type server struct {
	core     *relay.Core
	tokens   *auth.Issuer
	notifier notifierStats
	upgrader websocket.Upgrader
	origins  []string
	logger   *slog.Logger
	started  time.Time

	mu      sync.Mutex
	clients map[*Client]struct{}
}

// newServer builds the HTTP surface. tokens and notifier may be nil.
func newServer(core *relay.Core, tokens *auth.Issuer, notifier notifierStats, origins []string, l *slog.Logger) *server {
	s := &server{
		core:     core,
		tokens:   tokens,
		notifier: notifier,
		origins:  origins,
		logger:   logger.OrDefault(l),
		started:  time.Now(),
		clients:  make(map[*Client]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.serveWs)
	mux.HandleFunc("GET /api/health", s.health)
	mux.HandleFunc("GET /api/channels", s.channels)
	mux.Handle("GET /api/messages/{channel}", s.AuthMiddleware(http.HandlerFunc(s.messages)))
	mux.HandleFunc("GET /api/online-users", s.onlineUsers)
	mux.HandleFunc("POST /api/login", s.login)
	return s.CORSMiddleware(mux)
}

func (s *server) allowAll() bool {
	return len(s.origins) == 0 || slices.Contains(s.origins, "*")
}

func (s *server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || s.allowAll() {
		return true
	}
	return slices.Contains(s.origins, origin)
}

func (s *server) track(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients[c] = struct{}{}
}

func (s *server) untrack(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, c)
}

// closeClients drops every websocket; their read pumps then disconnect
// them from the relay.
func (s *server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		c.conn.Close()
	}
}
