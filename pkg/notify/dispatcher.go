package notify

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mahaj/chat-relay/pkg/logger"
)

type DispatcherOptions struct {
	QueueSize int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Dispatcher owns one worker that drains a bounded queue into a sink.
type Dispatcher struct {
	sink    Sink
	queue   chan Notification
	timeout time.Duration
	logger  *slog.Logger

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	sent    atomic.Int64
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewDispatcher(sink Sink, opts DispatcherOptions) *Dispatcher {
	if opts.QueueSize <= 0 {
		opts.QueueSize = 256
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	d := &Dispatcher{
		sink:    sink,
		queue:   make(chan Notification, opts.QueueSize),
		timeout: opts.Timeout,
		logger:  logger.OrDefault(opts.Logger),
		done:    make(chan struct{}),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

// Publish queues n and returns immediately. When the queue is full or the
// dispatcher is closed n is dropped.
func (d *Dispatcher) Publish(n Notification) {
	select {
	case <-d.done:
		d.dropped.Add(1)
		return
	default:
	}

	select {
	case d.queue <- n:
	default:
		d.dropped.Add(1)
		d.logger.Warn("notification queue full, dropping", "event", n.Event, "channel", n.Channel)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case n := <-d.queue:
			d.send(n)
		case <-d.done:
			for {
				select {
				case n := <-d.queue:
					d.send(n)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) send(n Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.sink.Send(ctx, n); err != nil {
		d.failed.Add(1)
		d.logger.Warn("notification failed", "event", n.Event, "err", err)
		return
	}
	d.sent.Add(1)
}

// Close stops accepting notifications, drains what is queued until ctx
// expires and closes the sink.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() { close(d.done) })

	drained := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(drained)
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		d.logger.Warn("notification drain interrupted", "pending", len(d.queue))
	}
	return d.sink.Close()
}

type Stats struct {
	Sent    int64 `json:"sent"`
	Dropped int64 `json:"dropped"`
	Failed  int64 `json:"failed"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{Sent: d.sent.Load(), Dropped: d.dropped.Load(), Failed: d.failed.Load()}
}
