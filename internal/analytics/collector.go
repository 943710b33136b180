package analytics

import (
	"context"
	"log/slog"

	"github.com/4d4r5h/text-search-api/pkg/kafka"
)

// Collector forwards analytics events to Kafka from a buffered channel so
// request handling never blocks on the broker. Events are dropped when the
// buffer is full.
type Collector struct {
	producer *kafka.Producer
	eventCh  chan any
	logger   *slog.Logger
	done     chan struct{}
}

// NewCollector creates a Collector with the given channel buffer size.
func NewCollector(producer *kafka.Producer, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		producer: producer,
		eventCh:  make(chan any, bufferSize),
		logger:   slog.Default().With("component", "analytics-collector"),
		done:     make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				if err := c.producer.Publish(ctx, kafka.Event{Value: event}); err != nil {
					c.logger.Debug("analytics event dropped", "error", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Track enqueues an event without blocking. Events are best-effort: when the
// buffer is full the event is discarded.
func (c *Collector) Track(event any) {
	select {
	case c.eventCh <- event:
	default:
		c.logger.Debug("analytics buffer full, event dropped")
	}
}

// Close stops the publish loop and waits for it to drain.
func (c *Collector) Close() {
	close(c.eventCh)
	<-c.done
}
