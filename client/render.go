package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/protocol"
)

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// render formats one server frame for the terminal. Frames that carry
// nothing worth showing render as "".
func render(raw []byte) string {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return "received raw: " + string(raw)
	}

	switch f.Type {
	case protocol.TypeNewMessage:
		var msg model.Message
		if json.Unmarshal(f.Data, &msg) == nil {
			return formatMessage(msg)
		}
	case protocol.TypeHistory:
		var h protocol.HistoryData
		if json.Unmarshal(f.Data, &h) == nil {
			lines := []string{fmt.Sprintf("-- #%s, %d earlier messages --", h.Channel, len(h.Messages))}
			for _, msg := range h.Messages {
				lines = append(lines, formatMessage(msg))
			}
			return strings.Join(lines, "\n")
		}
	case protocol.TypeUserJoined, protocol.TypeUserLeft:
		var u model.User
		if json.Unmarshal(f.Data, &u) == nil {
			verb := "joined"
			if f.Type == protocol.TypeUserLeft {
				verb = "left"
			}
			return fmt.Sprintf("* %s (%s) %s", u.DisplayName, u.Key, verb)
		}
	case protocol.TypeOnlineUsers:
		var o protocol.OnlineUsersData
		if json.Unmarshal(f.Data, &o) == nil {
			return fmt.Sprintf("* %d online", o.Count)
		}
	case protocol.TypePrivateReceived:
		var pm protocol.PrivateMessageData
		if json.Unmarshal(f.Data, &pm) == nil {
			return fmt.Sprintf("[pm from %s] %s", pm.From, pm.Content)
		}
	case protocol.TypeSent:
		var s protocol.SentData
		if json.Unmarshal(f.Data, &s) == nil && !s.Delivered {
			return fmt.Sprintf("* %s is offline, message not delivered", s.To)
		}
		return ""
	case protocol.TypeJoined:
		var j protocol.JoinedData
		if json.Unmarshal(f.Data, &j) == nil {
			return fmt.Sprintf("* joined as %s", j.User.DisplayName)
		}
	case protocol.TypeJoinError, protocol.TypeMessageError:
		var e protocol.ErrorData
		if json.Unmarshal(f.Data, &e) == nil {
			return "! " + e.Error
		}
	case protocol.TypePong:
		return ""
	}
	return "received: " + string(raw)
}

func formatMessage(msg model.Message) string {
	at := msg.CreatedAt.Local().Format("15:04")
	if msg.Kind == model.KindUser {
		return fmt.Sprintf("[%s] #%s %s: %s", at, msg.ChannelID, msg.DisplayName, msg.Content)
	}
	return fmt.Sprintf("[%s] #%s %s %s", at, msg.ChannelID, msg.Avatar, msg.Content)
}
