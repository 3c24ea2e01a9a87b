package protocol

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	appErrors "github.com/mahaj/chat-relay/pkg/errors"
	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_Variants(t *testing.T) {
	tests := []struct {
		name  string
		frame string
		want  Inbound
	}{
		{
			name:  "join",
			frame: `{"type":"join","data":{"username":"ann","display_name":"Ann","avatar":"A"}}`,
			want:  JoinRequest{Username: "ann", DisplayName: "Ann", Avatar: "A"},
		},
		{
			name:  "legacy join with character",
			frame: `{"type":"user_join","data":{"username":"ann","character":"Captain Ann"}}`,
			want:  JoinRequest{Username: "ann", Character: "Captain Ann"},
		},
		{
			name:  "camelCase join",
			frame: `{"type":"join","data":{"username":"ann","displayName":"Ann"}}`,
			want:  JoinRequest{Username: "ann", DisplayName: "Ann"},
		},
		{
			name:  "message",
			frame: `{"type":"message","data":{"content":"hi","channel":"ooc"}}`,
			want:  MessageRequest{Content: "hi", Channel: "ooc"},
		},
		{
			name:  "private message",
			frame: `{"type":"private_message","data":{"to":"bob","content":"psst"}}`,
			want:  PrivateMessageRequest{To: "bob", Content: "psst"},
		},
		{
			name:  "camelCase private message",
			frame: `{"type":"private_message","data":{"toUserKey":"bob","content":"psst"}}`,
			want:  PrivateMessageRequest{To: "bob", Content: "psst"},
		},
		{
			name:  "history",
			frame: `{"type":"history","data":{"channel":"trade"}}`,
			want:  HistoryRequest{Channel: "trade"},
		},
		{name: "leave", frame: `{"type":"leave"}`, want: LeaveRequest{}},
		{name: "ping with null data", frame: `{"type":"ping","data":null}`, want: PingRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.frame))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name  string
		frame string
	}{
		{name: "not json", frame: `hello`},
		{name: "unknown type", frame: `{"type":"dance"}`},
		{name: "wrong field type", frame: `{"type":"message","data":{"content":5}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.frame))
			require.Error(t, err)
			assert.Equal(t, appErrors.CodeInvalidArgument, appErrors.CodeOf(err))
		})
	}
}

func TestJoinRequest_Identity(t *testing.T) {
	id := JoinRequest{Username: "ann", Character: "Captain"}.Identity()
	assert.Equal(t, model.Identity{Username: "ann", DisplayName: "Captain"}, id)

	id = JoinRequest{Username: "ann", DisplayName: "Ann", Character: "Captain"}.Identity()
	assert.Equal(t, "Ann", id.DisplayName)
}

func TestEncodeInbound_DecodesBack(t *testing.T) {
	frame, err := EncodeInbound(PrivateMessageRequest{To: "bob", Content: "hey"})
	require.NoError(t, err)

	ev, err := Decode(frame)
	require.NoError(t, err)
	assert.Equal(t, PrivateMessageRequest{To: "bob", Content: "hey"}, ev)

	_, err = EncodeInbound(nil)
	assert.True(t, errors.Is(err, appErrors.ErrUnknownEvent))
}

func TestEvent_EncodeShapes(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)

	raw, err := OnlineUsers(nil).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"online_users_update","data":{"count":0,"users":[]}}`, string(raw))

	raw, err = MessageError("join the chat before sending messages").Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"message_error","data":{"error":"join the chat before sending messages"}}`, string(raw))

	raw, err = Pong(at).Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"pong","data":{"timestamp":"2026-02-03T04:05:06Z"}}`, string(raw))

	raw, err = History("ooc", nil).Encode()
	require.NoError(t, err)
	var decoded struct {
		Data HistoryData `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "ooc", decoded.Data.Channel)
	assert.NotNil(t, decoded.Data.Messages)
}

func TestIsJoin(t *testing.T) {
	tests := []struct {
		frame string
		want  bool
	}{
		{frame: `{"type":"join","data":"alice"}`, want: true},
		{frame: `{"type":"user_join","data":[1]}`, want: true},
		{frame: `{"type":"message","data":"hi"}`, want: false},
		{frame: `{"type":"join"`, want: false},
		{frame: `hello`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.frame, func(t *testing.T) {
			assert.Equal(t, tt.want, IsJoin([]byte(tt.frame)))
		})
	}
}
