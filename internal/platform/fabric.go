package platform

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"dendrite/internal/model"
	"dendrite/internal/node"
	"dendrite/internal/sensor"
	"dendrite/internal/storage"
)

const settleTimeout = 10 * time.Second

// SyncOriginID marks sync requests issued by the fabric itself.
const SyncOriginID = "fabric"

var (
	ErrNotStarted   = errors.New("fabric is not initialized")
	ErrNoNetwork    = errors.New("no network is built")
	ErrNetworkBuilt = errors.New("network already built")
)

type Config struct {
	Store  storage.Store
	Logger *zap.SugaredLogger
}

// Fabric owns the runtime of one network: the store, the router, and the
// nodes built from a topology. It drives sync cycles and records the
// resulting deliveries as a trace.
type Fabric struct {
	store storage.Store
	log   *zap.SugaredLogger

	mu         sync.RWMutex
	started    bool
	router     *node.Router
	sensors    []*node.SensorNode
	collectors map[string]*node.Collector
	topology   model.Topology
}

func NewFabric(cfg Config) *Fabric {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Fabric{
		store: cfg.Store,
		log:   log,
	}
}

func (f *Fabric) Init(ctx context.Context) error {
	if f.store == nil {
		return errors.New("store is required")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.started {
		return nil
	}
	if err := f.store.Init(ctx); err != nil {
		return err
	}

	f.router = node.NewRouter(f.log)
	f.collectors = make(map[string]*node.Collector)
	f.started = true
	return nil
}

// Build instantiates the topology's nodes and persists the topology. One
// fabric hosts one network at a time.
func (f *Fabric) Build(ctx context.Context, topology model.Topology) error {
	if topology.ID == "" {
		return errors.New("topology id is required")
	}
	if len(topology.Sensors) == 0 {
		return errors.New("topology has no sensors")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.started {
		return ErrNotStarted
	}
	if len(f.sensors) > 0 {
		return fmt.Errorf("%w: %s", ErrNetworkBuilt, f.topology.ID)
	}

	for _, id := range topology.Collectors {
		collector, err := node.NewCollector(id)
		if err != nil {
			f.teardownLocked()
			return fmt.Errorf("collector %s: %w", id, err)
		}
		if err := f.router.Register(collector); err != nil {
			collector.Stop()
			f.teardownLocked()
			return err
		}
		f.collectors[id] = collector
	}

	for _, spec := range topology.Sensors {
		sensorNode, err := f.buildSensor(spec)
		if err != nil {
			f.teardownLocked()
			return err
		}
		if err := f.router.Register(sensorNode); err != nil {
			sensorNode.Stop()
			f.teardownLocked()
			return err
		}
		f.sensors = append(f.sensors, sensorNode)
	}

	topology.SchemaVersion = storage.CurrentSchemaVersion
	topology.CodecVersion = storage.CurrentCodecVersion
	if err := f.store.SaveTopology(ctx, topology); err != nil {
		f.teardownLocked()
		return err
	}

	f.topology = topology
	f.log.Infow("network built",
		"topology", topology.ID,
		"sensors", len(topology.Sensors),
		"collectors", len(topology.Collectors),
	)
	return nil
}

func (f *Fabric) buildSensor(spec model.SensorSpec) (*node.SensorNode, error) {
	behavior, state, err := sensor.ResolveType(spec.Type)
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", spec.ID, err)
	}
	state = state.MergeExt(spec.Ext)
	state, err = state.WithIdentity(spec.ID, spec.Outs)
	if err != nil {
		return nil, fmt.Errorf("sensor %s: %w", spec.ID, err)
	}

	if setter, ok := behavior.(sensor.ScalarSetter); ok {
		if initial, ok := state.ExtFloat("initial"); ok {
			setter.Set(initial)
		}
	}

	return node.NewSensorNode(behavior, state, f.router, f.log)
}

// RunCycles drives the network through the given number of sync cycles and
// persists the delivered signals as the run's trace. The cycle number is
// handed to each sensor as sync metadata.
func (f *Fabric) RunCycles(ctx context.Context, runID string, cycles int) (model.Trace, error) {
	if runID == "" {
		return model.Trace{}, errors.New("run id is required")
	}
	if cycles <= 0 {
		cycles = 1
	}

	f.mu.RLock()
	started := f.started
	router := f.router
	sensors := append([]*node.SensorNode(nil), f.sensors...)
	topology := f.topology
	f.mu.RUnlock()

	if !started {
		return model.Trace{}, ErrNotStarted
	}
	if len(sensors) == 0 {
		return model.Trace{}, ErrNoNetwork
	}

	var deliveries []model.Delivery
	for cycle := 1; cycle <= cycles; cycle++ {
		for _, sn := range sensors {
			request := model.SyncRequest{OriginID: SyncOriginID, Metadata: cycle}
			if !router.Dispatch(sn.ID(), request) {
				return model.Trace{}, fmt.Errorf("sync request rejected: %s", sn.ID())
			}
		}

		settleCtx, cancel := context.WithTimeout(ctx, settleTimeout)
		err := router.Settle(settleCtx)
		cancel()
		if err != nil {
			return model.Trace{}, err
		}

		for _, sn := range sensors {
			if err := sn.Err(); err != nil {
				return model.Trace{}, fmt.Errorf("cycle %d: %w", cycle, err)
			}
		}
		deliveries = append(deliveries, f.collectCycle(cycle, topology.Collectors)...)
	}

	trace := model.Trace{
		VersionedRecord: model.VersionedRecord{
			SchemaVersion: storage.CurrentSchemaVersion,
			CodecVersion:  storage.CurrentCodecVersion,
		},
		RunID:      runID,
		TopologyID: topology.ID,
		Cycles:     cycles,
		Deliveries: deliveries,
	}
	if err := f.store.SaveTrace(ctx, trace); err != nil {
		return model.Trace{}, err
	}

	f.log.Infow("run complete",
		"run", runID,
		"topology", topology.ID,
		"cycles", cycles,
		"deliveries", len(deliveries),
	)
	return trace, nil
}

func (f *Fabric) collectCycle(cycle int, collectorIDs []string) []model.Delivery {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var deliveries []model.Delivery
	for _, id := range collectorIDs {
		collector, ok := f.collectors[id]
		if !ok {
			continue
		}
		for _, batch := range collector.Drain() {
			deliveries = append(deliveries, model.Delivery{
				Cycle:    cycle,
				TargetID: id,
				Batch:    batch,
			})
		}
	}
	return deliveries
}

// Collector exposes a built collector node, mainly so callers can inspect
// received batches directly.
func (f *Fabric) Collector(id string) (*node.Collector, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	collector, ok := f.collectors[id]
	return collector, ok
}

// SensorState returns the current state snapshot of a built sensor node.
func (f *Fabric) SensorState(id string) (sensor.State, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sn := range f.sensors {
		if sn.ID() == id {
			return sn.State(), true
		}
	}
	return sensor.State{}, false
}

func (f *Fabric) Topology() model.Topology {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.topology
}

func (f *Fabric) Started() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.started
}

// Teardown stops the current network but keeps the fabric initialized, so
// a new topology can be built against the same store.
func (f *Fabric) Teardown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownLocked()
}

func (f *Fabric) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardownLocked()
	f.started = false
}

// Reset stops the network, drops stored state where the store supports it,
// and reinitializes the fabric.
func (f *Fabric) Reset(ctx context.Context) error {
	f.Stop()
	if resetter, ok := f.store.(storage.Resetter); ok {
		if err := resetter.Reset(ctx); err != nil {
			return err
		}
	}
	return f.Init(ctx)
}

func (f *Fabric) teardownLocked() {
	if f.router != nil {
		f.router.StopAll()
	}
	f.sensors = nil
	f.collectors = make(map[string]*node.Collector)
	f.topology = model.Topology{}
}
