package analytics

import (
	"context"
	"log/slog"
	"sync"
)

type envelope struct {
	key   string
	value any
}

// Collector decouples event producers from delivery. Track never blocks;
// events are handed to the sink on a background goroutine and dropped when
// the buffer is full.
type Collector struct {
	sink    Tracker
	eventCh chan envelope
	logger  *slog.Logger
	done    chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewCollector(sink Tracker, bufferSize int) *Collector {
	if bufferSize <= 0 {
		bufferSize = 10000
	}
	return &Collector{
		sink:    sink,
		eventCh: make(chan envelope, bufferSize),
		logger:  slog.Default().With("component", "analytics-collector"),
		done:    make(chan struct{}),
	}
}

func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case ev, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.sink.Track(ev.key, ev.value)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

func (c *Collector) Track(key string, value any) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.eventCh <- envelope{key: key, value: value}:
	default:
		c.logger.Warn("analytics event dropped (buffer full)", "key", key)
	}
}

// Close stops accepting events and waits for buffered ones to reach the
// sink. Start must have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drainRemaining() {
	for {
		select {
		case ev, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.sink.Track(ev.key, ev.value)
		default:
			return
		}
	}
}
