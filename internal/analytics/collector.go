package analytics

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/wiki-search/pkg/config"
)

// Collector buffers search events and hands them to a Publisher in batches,
// when a batch fills up or every flush interval. Track never blocks: once the
// buffer is full, events are dropped and counted.
type Collector struct {
	publisher     Publisher
	events        chan SearchEvent
	batchSize     int
	flushInterval time.Duration
	onDrop        func(n int)
	dropped       atomic.Int64

	mu     sync.RWMutex
	closed bool

	logger *slog.Logger
	done   chan struct{}
}

// NewCollector creates a Collector. onDrop, if set, is called with the number
// of events lost to a full buffer or a failed publish.
func NewCollector(publisher Publisher, cfg config.AnalyticsConfig, onDrop func(n int)) *Collector {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 10000
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}
	return &Collector{
		publisher:     publisher,
		events:        make(chan SearchEvent, cfg.BufferSize),
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		onDrop:        onDrop,
		logger:        slog.Default().With("component", "analytics-collector"),
		done:          make(chan struct{}),
	}
}

// Start launches the background batching loop. It runs until ctx is
// cancelled or Close is called, flushing whatever is buffered on the way out.
func (c *Collector) Start(ctx context.Context) {
	go c.run(ctx)
	c.logger.Info("analytics collector started",
		"buffer_size", cap(c.events),
		"batch_size", c.batchSize,
		"flush_interval", c.flushInterval,
	)
}

// Track enqueues an event and reports whether it was accepted.
func (c *Collector) Track(event SearchEvent) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.drop(1)
		return false
	}
	select {
	case c.events <- event:
		return true
	default:
		c.drop(1)
		return false
	}
}

// Dropped returns the number of events lost so far.
func (c *Collector) Dropped() int64 {
	return c.dropped.Load()
}

// Close stops accepting events and waits for the final flush. Start must
// have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.events)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.flushInterval)
	defer ticker.Stop()

	batch := make([]SearchEvent, 0, c.batchSize)
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				c.finalFlush(batch)
				return
			}
			batch = append(batch, ev)
			if len(batch) >= c.batchSize {
				batch = c.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = c.flush(ctx, batch)
		case <-ctx.Done():
			c.finalFlush(c.drainBuffered(batch))
			return
		}
	}
}

func (c *Collector) drainBuffered(batch []SearchEvent) []SearchEvent {
	for {
		select {
		case ev, ok := <-c.events:
			if !ok {
				return batch
			}
			batch = append(batch, ev)
		default:
			return batch
		}
	}
}

func (c *Collector) finalFlush(batch []SearchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c.flush(ctx, batch)
}

func (c *Collector) flush(ctx context.Context, batch []SearchEvent) []SearchEvent {
	if len(batch) == 0 {
		return batch
	}
	if err := c.publisher.Publish(ctx, batch); err != nil {
		c.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		c.drop(len(batch))
	} else {
		c.logger.Debug("batch flushed", "events", len(batch))
	}
	return make([]SearchEvent, 0, c.batchSize)
}

func (c *Collector) drop(n int) {
	total := c.dropped.Add(int64(n))
	if c.onDrop != nil {
		c.onDrop(n)
	}
	// log the first drop and every thousandth after it
	if total == int64(n) || total/1000 != (total-int64(n))/1000 {
		c.logger.Warn("analytics events dropped", "count", n, "total_dropped", total)
	}
}
