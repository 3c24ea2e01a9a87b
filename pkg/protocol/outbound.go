package protocol

import (
	"encoding/json"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
)

const (
	TypeNewMessage      = "new_message"
	TypeUserJoined      = "user_joined"
	TypeUserLeft        = "user_left"
	TypeOnlineUsers     = "online_users_update"
	TypePrivateReceived = "private_message_received"
	TypeSent            = "sent"
	TypeJoined          = "joined"
	TypeHistory         = "history"
	TypeJoinError       = "join_error"
	TypeMessageError    = "message_error"
	TypePong            = "pong"
)

// Event is a server frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

func (e Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

type ErrorData struct {
	Error string `json:"error"`
}

type OnlineUsersData struct {
	Count int          `json:"count"`
	Users []model.User `json:"users"`
}

type PrivateMessageData struct {
	From        string    `json:"from"`
	DisplayName string    `json:"display_name"`
	Avatar      string    `json:"avatar"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

type SentData struct {
	To        string    `json:"to"`
	Content   string    `json:"content"`
	Delivered bool      `json:"delivered"`
	CreatedAt time.Time `json:"created_at"`
}

type JoinedData struct {
	User  model.User `json:"user"`
	Token string     `json:"token,omitempty"`
}

type HistoryData struct {
	Channel  string          `json:"channel"`
	Messages []model.Message `json:"messages"`
}

type PongData struct {
	Timestamp time.Time `json:"timestamp"`
}

func NewMessage(msg model.Message) Event {
	return Event{Type: TypeNewMessage, Data: msg}
}

func UserJoined(u model.User) Event {
	return Event{Type: TypeUserJoined, Data: u}
}

func UserLeft(u model.User) Event {
	return Event{Type: TypeUserLeft, Data: u}
}

func OnlineUsers(users []model.User) Event {
	if users == nil {
		users = []model.User{}
	}
	return Event{Type: TypeOnlineUsers, Data: OnlineUsersData{Count: len(users), Users: users}}
}

func PrivateMessage(from model.User, content string, at time.Time) Event {
	return Event{Type: TypePrivateReceived, Data: PrivateMessageData{
		From:        from.Key,
		DisplayName: from.DisplayName,
		Avatar:      from.Avatar,
		Content:     content,
		CreatedAt:   at,
	}}
}

func Sent(to, content string, delivered bool, at time.Time) Event {
	return Event{Type: TypeSent, Data: SentData{To: to, Content: content, Delivered: delivered, CreatedAt: at}}
}

func Joined(u model.User, token string) Event {
	return Event{Type: TypeJoined, Data: JoinedData{User: u, Token: token}}
}

func History(channel string, msgs []model.Message) Event {
	if msgs == nil {
		msgs = []model.Message{}
	}
	return Event{Type: TypeHistory, Data: HistoryData{Channel: channel, Messages: msgs}}
}

func JoinError(reason string) Event {
	return Event{Type: TypeJoinError, Data: ErrorData{Error: reason}}
}

func MessageError(reason string) Event {
	return Event{Type: TypeMessageError, Data: ErrorData{Error: reason}}
}

func Pong(at time.Time) Event {
	return Event{Type: TypePong, Data: PongData{Timestamp: at}}
}
