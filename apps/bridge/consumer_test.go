package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mahaj/chat-relay/pkg/notify"
)

type fakeReader struct {
	mu      sync.Mutex
	records []kafka.Message
	errs    []error
	closed  bool
}

func (f *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.records) > 0 {
		m := f.records[0]
		f.records = f.records[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

type fakeSink struct {
	mu   sync.Mutex
	got  []notify.Notification
	fail map[string]bool
}

func (f *fakeSink) Send(_ context.Context, n notify.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[n.Event] {
		return errors.New("webhook down")
	}
	f.got = append(f.got, n)
	return nil
}

func (f *fakeSink) Close() error { return nil }

func (f *fakeSink) events() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, n := range f.got {
		out = append(out, n.Event+":"+n.User)
	}
	return out
}

func record(t *testing.T, n notify.Notification) kafka.Message {
	t.Helper()
	value, err := json.Marshal(n)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(n.Channel), Value: value}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestConsumer_ForwardsAndSkipsBadRecords(t *testing.T) {
	reader := &fakeReader{
		records: []kafka.Message{
			record(t, notify.Notification{Event: notify.EventUserJoined, User: "alice"}),
			{Value: []byte("{broken")},
			record(t, notify.Notification{Event: notify.EventUserLeft, User: "bob"}),
			record(t, notify.Notification{Event: notify.EventMessage, User: "alice", Channel: "general"}),
		},
	}
	sink := &fakeSink{fail: map[string]bool{notify.EventUserLeft: true}}
	c := newConsumer(reader, sink, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Consume(ctx)
	}()

	require.Eventually(t, func() bool { return len(sink.events()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Equal(t, []string{notify.EventUserJoined + ":alice", notify.EventMessage + ":alice"}, sink.events())
	require.NoError(t, c.Close())
	assert.True(t, reader.closed)
}

func TestConsumer_StopsOnCancelDuringRetry(t *testing.T) {
	reader := &fakeReader{errs: []error{errors.New("broker unavailable")}}
	c := newConsumer(reader, &fakeSink{}, time.Second, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.Consume(ctx)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}
}
