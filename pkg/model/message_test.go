package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectChannel_IsSymmetric(t *testing.T) {
	assert.Equal(t, "dm:alice:bob", DirectChannel("alice", "bob"))
	assert.Equal(t, "dm:alice:bob", DirectChannel("bob", "alice"))
}

func TestMessage_IsBot(t *testing.T) {
	assert.False(t, Message{Kind: KindUser}.IsBot())
	assert.True(t, Message{Kind: KindBot}.IsBot())
	assert.True(t, Message{Kind: KindSystem}.IsBot())
}

func TestDirectParticipants(t *testing.T) {
	a, b, ok := DirectParticipants("dm:alice:bob")
	assert.True(t, ok)
	assert.Equal(t, "alice", a)
	assert.Equal(t, "bob", b)

	for _, id := range []string{"general", "dm:", "dm:alice", "dm::bob", "dm:a:b:c"} {
		_, _, ok := DirectParticipants(id)
		assert.False(t, ok, id)
	}
}

func TestCanRead(t *testing.T) {
	tests := []struct {
		channel string
		user    string
		want    bool
	}{
		{"general", "", true},
		{"general", "carol", true},
		{"dm:alice:bob", "alice", true},
		{"dm:alice:bob", "bob", true},
		{"dm:alice:bob", "carol", false},
		{"dm:alice:bob", "", false},
		{"dm:broken", "broken", false},
	}
	for _, tt := range tests {
		t.Run(tt.channel+"/"+tt.user, func(t *testing.T) {
			assert.Equal(t, tt.want, CanRead(tt.channel, tt.user))
		})
	}
}
