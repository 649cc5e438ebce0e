// Package dendrite is the public entry point for embedding the network
// runtime: it wires a store and a fabric together behind one client.
package dendrite

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dendrite/internal/config"
	"dendrite/internal/model"
	"dendrite/internal/platform"
	"dendrite/internal/sensor"
	"dendrite/internal/storage"
)

const defaultDBPath = "dendrite.db"

type Options struct {
	StoreKind string
	DBPath    string
	Logger    *zap.SugaredLogger
}

type Client struct {
	store  storage.Store
	logger *zap.SugaredLogger

	mu     sync.Mutex
	fabric *platform.Fabric
}

// RunRequest describes one network run. RunID is generated when empty.
type RunRequest struct {
	Network *config.Config
	RunID   string
	Cycles  int
}

type RunSummary struct {
	RunID      string
	TopologyID string
	Cycles     int
	Deliveries int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	return &Client{
		store:  store,
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	fabric := c.fabric
	c.fabric = nil
	c.mu.Unlock()
	if fabric != nil {
		fabric.Stop()
	}
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	_, err := c.ensureFabric(ctx)
	return err
}

// Run builds the network described by the request and drives it through
// the requested number of sync cycles.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Network == nil {
		return RunSummary{}, errors.New("network config is required")
	}
	if err := config.Validate(req.Network); err != nil {
		return RunSummary{}, err
	}

	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	cycles := req.Cycles
	if cycles <= 0 {
		cycles = req.Network.Cycles
	}

	fabric, err := c.ensureFabric(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	// One network per fabric: rebuild from scratch for each run.
	fabric.Teardown()
	if err := fabric.Build(ctx, req.Network.Topology()); err != nil {
		return RunSummary{}, err
	}

	trace, err := fabric.RunCycles(ctx, runID, cycles)
	if err != nil {
		return RunSummary{}, err
	}
	return RunSummary{
		RunID:      trace.RunID,
		TopologyID: trace.TopologyID,
		Cycles:     trace.Cycles,
		Deliveries: len(trace.Deliveries),
	}, nil
}

// Trace loads a persisted run trace.
func (c *Client) Trace(ctx context.Context, runID string) (model.Trace, error) {
	if runID == "" {
		return model.Trace{}, errors.New("run id is required")
	}
	if err := c.store.Init(ctx); err != nil {
		return model.Trace{}, err
	}
	trace, ok, err := c.store.GetTrace(ctx, runID)
	if err != nil {
		return model.Trace{}, err
	}
	if !ok {
		return model.Trace{}, errors.New("run not found: " + runID)
	}
	return trace, nil
}

// Runs lists persisted run ids.
func (c *Client) Runs(ctx context.Context) ([]string, error) {
	if err := c.store.Init(ctx); err != nil {
		return nil, err
	}
	return c.store.ListRuns(ctx)
}

// SensorTypes lists the registered sensor types.
func (c *Client) SensorTypes() []string {
	return sensor.ListTypes()
}

func (c *Client) ensureFabric(ctx context.Context) (*platform.Fabric, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fabric == nil {
		c.fabric = platform.NewFabric(platform.Config{
			Store:  c.store,
			Logger: c.logger,
		})
	}
	if err := c.fabric.Init(ctx); err != nil {
		return nil, err
	}
	return c.fabric, nil
}
