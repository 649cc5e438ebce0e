package node

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"dendrite/internal/model"
)

// DefaultMailboxSize bounds each node's mailbox. Deliveries beyond it are
// dropped, never blocked on.
const DefaultMailboxSize = 64

var ErrNodeExists = errors.New("node already registered")

// Node is one independently scheduled participant in the network: it has an
// address, a mailbox, and a sequential processing loop.
type Node interface {
	ID() string
	// Deliver enqueues a message without blocking. It reports whether the
	// message was accepted.
	Deliver(msg any) bool
	// Pending counts accepted messages not yet processed.
	Pending() int
	Stop()
}

// Router resolves addresses to mailboxes and performs fire-and-forget
// delivery between nodes.
type Router struct {
	log *zap.SugaredLogger

	mu    sync.RWMutex
	nodes map[string]Node
}

func NewRouter(log *zap.SugaredLogger) *Router {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Router{
		log:   log,
		nodes: make(map[string]Node),
	}
}

func (r *Router) Register(n Node) error {
	if n == nil {
		return errors.New("node is nil")
	}
	id := n.ID()
	if id == "" {
		return errors.New("node id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.nodes[id]; exists {
		return fmt.Errorf("%w: %s", ErrNodeExists, id)
	}
	r.nodes[id] = n
	return nil
}

func (r *Router) Deregister(id string) {
	r.mu.Lock()
	delete(r.nodes, id)
	r.mu.Unlock()
}

func (r *Router) Lookup(id string) (Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, ok := r.nodes[id]
	return n, ok
}

// Send delivers one batch to one target. Unknown or saturated targets drop
// the batch: unreachability is not the sender's fault to observe.
func (r *Router) Send(target string, batch model.SignalBatch) {
	if !r.Dispatch(target, batch) {
		r.log.Debugw("dropped signal batch", "target", target, "sender", batch.SenderID)
	}
}

// Dispatch delivers an arbitrary message and reports acceptance. Callers
// that need a delivery guarantee (the fabric issuing sync requests) use
// this instead of Send.
func (r *Router) Dispatch(target string, msg any) bool {
	n, ok := r.Lookup(target)
	if !ok {
		return false
	}
	return n.Deliver(msg)
}

// Settle blocks until every registered node has drained its mailbox or the
// context expires.
func (r *Router) Settle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()

	for {
		if r.pendingTotal() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("settle: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

func (r *Router) pendingTotal() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, n := range r.nodes {
		total += n.Pending()
	}
	return total
}

func (r *Router) Nodes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.nodes))
	for id := range r.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (r *Router) StopAll() {
	r.mu.Lock()
	nodes := r.nodes
	r.nodes = make(map[string]Node)
	r.mu.Unlock()

	for _, n := range nodes {
		n.Stop()
	}
}
