package model

import (
	"strings"
	"time"
)

type Kind string

const (
	KindUser   Kind = "user"
	KindBot    Kind = "bot"
	KindSystem Kind = "system"
)

// SystemSender is the sender tag of server-authored notices such as the
// welcome message.
const SystemSender = "system"

// DirectPrefix marks conversation channels between two users.
const DirectPrefix = "dm:"

type Message struct {
	ID          int64     `json:"id"`
	ChannelID   string    `json:"channel"`
	Sender      string    `json:"sender"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	Content     string    `json:"content"`
	Kind        Kind      `json:"kind"`
	CreatedAt   time.Time `json:"created_at"`
}

// IsBot reports whether the message was authored by the server.
func (m Message) IsBot() bool {
	return m.Kind == KindBot || m.Kind == KindSystem
}

// DirectChannel returns the conversation channel id for two user keys.
// The keys are sorted so both participants resolve the same id.
func DirectChannel(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return DirectPrefix + a + ":" + b
}

// DirectParticipants splits a conversation channel id into its two user
// keys. ok is false for any other channel id.
func DirectParticipants(channelID string) (a, b string, ok bool) {
	rest, found := strings.CutPrefix(channelID, DirectPrefix)
	if !found {
		return "", "", false
	}
	a, b, found = strings.Cut(rest, ":")
	if !found || a == "" || b == "" || strings.Contains(b, ":") {
		return "", "", false
	}
	return a, b, true
}

// CanRead reports whether userKey may read channelID. Public channels are
// open to everyone; conversation channels only to their participants.
func CanRead(channelID, userKey string) bool {
	if !strings.HasPrefix(channelID, DirectPrefix) {
		return true
	}
	a, b, ok := DirectParticipants(channelID)
	return ok && userKey != "" && (userKey == a || userKey == b)
}
