package node

import (
	"errors"
	"sync"
	"sync/atomic"

	"dendrite/internal/model"
)

// Collector is a terminal node that records every batch it receives. It
// stands in for downstream processing nodes when observing fan-out.
type Collector struct {
	id       string
	mailbox  chan model.SignalBatch
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	pending  atomic.Int64

	mu       sync.Mutex
	received []model.SignalBatch
}

func NewCollector(id string) (*Collector, error) {
	if id == "" {
		return nil, errors.New("collector id is required")
	}
	c := &Collector{
		id:      id,
		mailbox: make(chan model.SignalBatch, DefaultMailboxSize),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.loop()
	return c, nil
}

func (c *Collector) ID() string {
	return c.id
}

func (c *Collector) Deliver(msg any) bool {
	batch, ok := msg.(model.SignalBatch)
	if !ok {
		return false
	}
	select {
	case <-c.quit:
		return false
	default:
	}

	c.pending.Add(1)
	select {
	case c.mailbox <- batch:
		return true
	default:
		c.pending.Add(-1)
		return false
	}
}

func (c *Collector) Pending() int {
	return int(c.pending.Load())
}

// Received returns a copy of everything collected so far.
func (c *Collector) Received() []model.SignalBatch {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.SignalBatch(nil), c.received...)
}

// Drain returns everything collected since the previous drain and clears
// the record.
func (c *Collector) Drain() []model.SignalBatch {
	c.mu.Lock()
	defer c.mu.Unlock()

	drained := c.received
	c.received = nil
	return drained
}

func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.quit)
	})
	<-c.done
}

func (c *Collector) loop() {
	defer close(c.done)
	for {
		select {
		case <-c.quit:
			return
		case batch := <-c.mailbox:
			c.mu.Lock()
			c.received = append(c.received, batch)
			c.mu.Unlock()
			c.pending.Add(-1)
		}
	}
}
