package node

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"dendrite/internal/model"
	"dendrite/internal/sensor"
)

// SensorNode hosts one sensor behavior and its state on its own mailbox
// loop. Sync requests are processed strictly in arrival order; the state
// returned by one cycle is the input of the next. A sync failure is fatal
// for the node: it surfaces via Err and later requests are ignored.
type SensorNode struct {
	id       string
	behavior sensor.Behavior
	mailbox  chan model.SyncRequest
	quit     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	pending  atomic.Int64
	log      *zap.SugaredLogger

	mu    sync.RWMutex
	state sensor.State
	err   error
}

func NewSensorNode(behavior sensor.Behavior, state sensor.State, sender sensor.Sender, log *zap.SugaredLogger) (*SensorNode, error) {
	if behavior == nil {
		return nil, errors.New("sensor behavior is required")
	}
	if state.ID == "" {
		return nil, errors.New("sensor state has no identity")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if binder, ok := behavior.(sensor.Binder); ok {
		binder.Bind(behavior, sender)
	}

	n := &SensorNode{
		id:       state.ID,
		behavior: behavior,
		mailbox:  make(chan model.SyncRequest, DefaultMailboxSize),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		log:      log,
		state:    state,
	}
	go n.loop()
	return n, nil
}

func (n *SensorNode) ID() string {
	return n.id
}

func (n *SensorNode) Deliver(msg any) bool {
	req, ok := msg.(model.SyncRequest)
	if !ok {
		return false
	}
	select {
	case <-n.quit:
		return false
	default:
	}

	n.pending.Add(1)
	select {
	case n.mailbox <- req:
		return true
	default:
		n.pending.Add(-1)
		return false
	}
}

func (n *SensorNode) Pending() int {
	return int(n.pending.Load())
}

// State returns a snapshot of the current sensor state.
func (n *SensorNode) State() sensor.State {
	n.mu.RLock()
	defer n.mu.RUnlock()

	snapshot := n.state
	snapshot.Outs = append([]string(nil), n.state.Outs...)
	snapshot.Ext = make(map[string]any, len(n.state.Ext))
	for key, value := range n.state.Ext {
		snapshot.Ext[key] = value
	}
	return snapshot
}

// Err reports the fault that stopped this node's sync processing, if any.
func (n *SensorNode) Err() error {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.err
}

func (n *SensorNode) Stop() {
	n.stopOnce.Do(func() {
		close(n.quit)
	})
	<-n.done
}

func (n *SensorNode) loop() {
	defer close(n.done)
	for {
		select {
		case <-n.quit:
			return
		case req := <-n.mailbox:
			n.handle(req)
		}
	}
}

func (n *SensorNode) handle(req model.SyncRequest) {
	defer n.pending.Add(-1)

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return
	}

	next, err := n.behavior.Sync(n.state, req.Metadata)
	if err != nil {
		n.err = err
		n.log.Errorw("sync failed", "node", n.id, "origin", req.OriginID, "error", err)
		return
	}
	n.state = next
}
