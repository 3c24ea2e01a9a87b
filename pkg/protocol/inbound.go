// Package protocol defines the events exchanged with clients. Every frame
// is a JSON envelope {"type": ..., "data": {...}}.
package protocol

import (
	"encoding/json"
	"fmt"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/model"
)

type envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Inbound is one of the client events below.
type Inbound interface {
	inbound()
}

type JoinRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	// Character is the older name of DisplayName.
	Character string `json:"character,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
}

type MessageRequest struct {
	Content string `json:"content"`
	Channel string `json:"channel"`
}

type PrivateMessageRequest struct {
	To      string `json:"to"`
	Content string `json:"content"`
}

type HistoryRequest struct {
	Channel string `json:"channel"`
}

type LeaveRequest struct{}

type PingRequest struct{}

func (JoinRequest) inbound()           {}
func (MessageRequest) inbound()        {}
func (PrivateMessageRequest) inbound() {}
func (HistoryRequest) inbound()        {}
func (LeaveRequest) inbound()          {}
func (PingRequest) inbound()           {}

// Identity returns the identity carried by the join request.
func (j JoinRequest) Identity() model.Identity {
	name := j.DisplayName
	if name == "" {
		name = j.Character
	}
	return model.Identity{Username: j.Username, DisplayName: name, Avatar: j.Avatar}
}

var inboundTypes = map[string]func() Inbound{
	"join":            func() Inbound { return &JoinRequest{} },
	"user_join":       func() Inbound { return &JoinRequest{} },
	"message":         func() Inbound { return &MessageRequest{} },
	"send_message":    func() Inbound { return &MessageRequest{} },
	"private_message": func() Inbound { return &PrivateMessageRequest{} },
	"history":         func() Inbound { return &HistoryRequest{} },
	"leave":           func() Inbound { return &LeaveRequest{} },
	"ping":            func() Inbound { return &PingRequest{} },
}

// Decode parses one client frame into its event variant.
func Decode(frame []byte) (Inbound, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, appErrors.Wrap(appErrors.CodeInvalidArgument, "malformed event", err)
	}

	factory, ok := inboundTypes[env.Type]
	if !ok {
		return nil, appErrors.Wrap(appErrors.CodeInvalidArgument, "unknown event type",
			fmt.Errorf("type %q", env.Type))
	}

	ev := factory()
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, ev); err != nil {
			return nil, appErrors.Wrap(appErrors.CodeInvalidArgument, "malformed event", err)
		}
	}

	// Hand out values, not pointers, so dispatch switches on value types.
	switch ev := ev.(type) {
	case *JoinRequest:
		if ev.DisplayName == "" {
			ev.DisplayName = camelCase(env.Data).DisplayName
		}
		return *ev, nil
	case *MessageRequest:
		return *ev, nil
	case *PrivateMessageRequest:
		if ev.To == "" {
			ev.To = camelCase(env.Data).ToUserKey
		}
		return *ev, nil
	case *HistoryRequest:
		return *ev, nil
	case *LeaveRequest:
		return *ev, nil
	case *PingRequest:
		return *ev, nil
	}
	return nil, appErrors.ErrUnknownEvent
}

// IsJoin reports whether frame is a join attempt, decodable or not.
func IsJoin(frame []byte) bool {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(frame, &env); err != nil {
		return false
	}
	return env.Type == "join" || env.Type == "user_join"
}

// camelFields are the camelCase spellings some clients send.
type camelFields struct {
	DisplayName string `json:"displayName"`
	ToUserKey   string `json:"toUserKey"`
}

func camelCase(data json.RawMessage) camelFields {
	var c camelFields
	if len(data) > 0 {
		_ = json.Unmarshal(data, &c)
	}
	return c
}

// EncodeInbound builds a client frame. Used by the terminal client and tests.
func EncodeInbound(ev Inbound) ([]byte, error) {
	var typ string
	switch ev.(type) {
	case JoinRequest:
		typ = "join"
	case MessageRequest:
		typ = "message"
	case PrivateMessageRequest:
		typ = "private_message"
	case HistoryRequest:
		typ = "history"
	case LeaveRequest:
		typ = "leave"
	case PingRequest:
		typ = "ping"
	default:
		return nil, appErrors.ErrUnknownEvent
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: typ, Data: data})
}
