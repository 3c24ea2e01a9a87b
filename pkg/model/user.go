package model

import "time"

// Identity is what a client supplies when it joins.
type Identity struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar,omitempty"`
}

// User is bound to exactly one live connection. The same Key may come
// back on a later connection with a fresh User record.
type User struct {
	Key         string    `json:"username"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	ConnID      string    `json:"-"`
	JoinedAt    time.Time `json:"joined_at"`
	LastSeen    time.Time `json:"last_seen"`
}

// Bot is a reserved server persona that authors command replies.
type Bot struct {
	Key         string
	DisplayName string
	Avatar      string
}
