package fanout

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mahaj/chat-relay/pkg/model"
	"github.com/mahaj/chat-relay/pkg/presence"
	"github.com/mahaj/chat-relay/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	frames [][]byte
	fail   error
}

func (r *recorder) Deliver(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.frames = append(r.frames, payload)
	return nil
}

func (r *recorder) types(t *testing.T) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.frames {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev.Type)
	}
	return out
}

func setup(t *testing.T, ids ...string) (*presence.Registry, map[string]*recorder) {
	t.Helper()
	reg := presence.NewRegistry()
	outs := map[string]*recorder{}
	for _, id := range ids {
		outs[id] = &recorder{}
		_, err := reg.Register(id, outs[id])
		require.NoError(t, err)
	}
	return reg, outs
}

func TestToAll_IncludesOrigin(t *testing.T) {
	reg, outs := setup(t, "c1", "c2", "c3")
	f := New(reg, nil)

	n := f.ToAll(protocol.Pong(time.Time{}))
	assert.Equal(t, 3, n)
	for id, out := range outs {
		assert.Equal(t, []string{protocol.TypePong}, out.types(t), id)
	}
}

func TestToOthers_ExcludesOrigin(t *testing.T) {
	reg, outs := setup(t, "c1", "c2", "c3")
	f := New(reg, nil)

	n := f.ToOthers("c2", protocol.UserJoined(model.User{Key: "b"}))
	assert.Equal(t, 2, n)
	assert.Empty(t, outs["c2"].types(t))
	assert.Equal(t, []string{protocol.TypeUserJoined}, outs["c1"].types(t))
	assert.Equal(t, []string{protocol.TypeUserJoined}, outs["c3"].types(t))
}

func TestToOne_OfflineUserDropsSilently(t *testing.T) {
	reg, outs := setup(t, "c1")
	f := New(reg, nil)

	ok := f.ToOne("nobody", protocol.MessageError("x"))
	assert.False(t, ok)
	assert.Empty(t, outs["c1"].types(t))
	assert.Equal(t, Stats{}, f.Stats(), "no delivery attempted")
}

func TestToOne_ResolvesUserKey(t *testing.T) {
	reg, outs := setup(t, "c1", "c2")
	_, _, err := reg.BindUser("c2", model.Identity{Username: "bob", DisplayName: "Bob"})
	require.NoError(t, err)
	f := New(reg, nil)

	assert.True(t, f.ToOne("bob", protocol.Pong(time.Time{})))
	assert.Equal(t, []string{protocol.TypePong}, outs["c2"].types(t))
	assert.Empty(t, outs["c1"].types(t))
}

func TestFailureDoesNotAbortBatch(t *testing.T) {
	reg, outs := setup(t, "c1", "c2", "c3")
	outs["c2"].fail = errors.New("send buffer full")
	f := New(reg, nil)

	n := f.ToAll(protocol.NewMessage(model.Message{Content: "hi"}))
	assert.Equal(t, 2, n)
	assert.Len(t, outs["c1"].types(t), 1)
	assert.Len(t, outs["c3"].types(t), 1)
	assert.Equal(t, Stats{Delivered: 2, Failed: 1}, f.Stats())
}

func TestToConnection(t *testing.T) {
	reg, outs := setup(t, "c1")
	f := New(reg, nil)

	assert.True(t, f.ToConnection("c1", protocol.JoinError("bad")))
	assert.False(t, f.ToConnection("c9", protocol.JoinError("bad")))
	assert.Equal(t, []string{protocol.TypeJoinError}, outs["c1"].types(t))
}
