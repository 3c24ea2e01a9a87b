package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mahaj/chat-relay/pkg/auth"
	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/notify"
	"github.com/mahaj/chat-relay/pkg/relay"
)

func (s *server) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := "*"
		if !s.allowAll() {
			origin = r.Header.Get("Origin")
			if !s.checkOrigin(r) {
				origin = ""
			}
		}
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		}
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// AuthMiddleware requires a bearer token when token issuing is enabled and
// passes requests through otherwise.
func (s *server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.tokens == nil {
			next.ServeHTTP(w, r)
			return
		}

		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "authorization header required")
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		claims, err := s.tokens.ValidateToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

type healthResponse struct {
	Status        string        `json:"status"`
	Database      string        `json:"database"`
	Uptime        string        `json:"uptime"`
	Notifications *notify.Stats `json:"notifications,omitempty"`
	relay.Stats
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:   "ok",
		Database: "in-memory",
		Uptime:   time.Since(s.started).Round(time.Second).String(),
		Stats:    s.core.Stats(),
	}
	if resp.Durable {
		resp.Database = "durable"
	}
	if s.notifier != nil {
		stats := s.notifier.Stats()
		resp.Notifications = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) channels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.core.Channels())
}

type messagesResponse struct {
	Channel  string          `json:"channel"`
	Messages []model.Message `json:"messages"`
}

// messages serves channel history. Conversation history needs a token that
// names one of its participants.
func (s *server) messages(w http.ResponseWriter, r *http.Request) {
	var viewer string
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		viewer = claims.Username
	}
	channel, history, err := s.core.ChannelHistory(r.Context(), r.PathValue("channel"), viewer)
	if errors.Is(err, appErrors.ErrForbiddenChannel) {
		writeError(w, http.StatusForbidden, appErrors.Message(err))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, appErrors.Message(err))
		return
	}
	writeJSON(w, http.StatusOK, messagesResponse{Channel: channel, Messages: history})
}

type onlineResponse struct {
	Count int          `json:"count"`
	Users []model.User `json:"users"`
}

func (s *server) onlineUsers(w http.ResponseWriter, r *http.Request) {
	users := s.core.OnlineUsers()
	writeJSON(w, http.StatusOK, onlineResponse{Count: len(users), Users: users})
}

type LoginRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (s *server) login(w http.ResponseWriter, r *http.Request) {
	if s.tokens == nil {
		writeError(w, http.StatusNotFound, "token issuing is disabled")
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}

	token, err := s.tokens.GenerateToken(req.Username, strings.TrimSpace(req.DisplayName))
	if err != nil {
		s.logger.Error("failed to generate token", "user", req.Username, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to generate token")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
