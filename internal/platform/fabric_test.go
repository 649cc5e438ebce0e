package platform

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"dendrite/internal/model"
	"dendrite/internal/sensor"
	"dendrite/internal/storage"
)

func testTopology() model.Topology {
	return model.Topology{
		ID: "t1",
		Sensors: []model.SensorSpec{
			{
				ID:   "s1",
				Type: sensor.ScalarInputName,
				Outs: []string{"n1", "n2"},
				Ext:  map[string]any{"initial": 0.5},
			},
			{
				ID:   "s2",
				Type: sensor.ConstantVectorName,
				Outs: []string{"n1"},
				Ext:  map[string]any{"values": []any{0.5, -1.0}},
			},
		},
		Collectors: []string{"n1", "n2"},
	}
}

func startedFabric(t *testing.T) *Fabric {
	t.Helper()
	f := NewFabric(Config{Store: storage.NewMemoryStore()})
	if err := f.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(f.Stop)
	return f
}

func TestFabricRequiresStore(t *testing.T) {
	f := NewFabric(Config{})
	if err := f.Init(context.Background()); err == nil {
		t.Fatal("expected store requirement")
	}
}

func TestFabricBuildValidation(t *testing.T) {
	ctx := context.Background()
	f := startedFabric(t)

	if err := f.Build(ctx, model.Topology{Sensors: testTopology().Sensors}); err == nil {
		t.Fatal("expected topology id validation")
	}
	if err := f.Build(ctx, model.Topology{ID: "empty"}); err == nil {
		t.Fatal("expected sensor requirement")
	}

	unknown := testTopology()
	unknown.Sensors[0].Type = "ghost"
	if err := f.Build(ctx, unknown); !errors.Is(err, sensor.ErrTypeNotFound) {
		t.Fatalf("expected ErrTypeNotFound, got: %v", err)
	}

	if err := f.Build(ctx, testTopology()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if err := f.Build(ctx, testTopology()); !errors.Is(err, ErrNetworkBuilt) {
		t.Fatalf("expected ErrNetworkBuilt, got: %v", err)
	}
}

func TestFabricRunCyclesEndToEnd(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := NewFabric(Config{Store: store})
	if err := f.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(f.Stop)

	if _, err := f.RunCycles(ctx, "run-1", 1); !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("expected ErrNoNetwork, got: %v", err)
	}

	if err := f.Build(ctx, testTopology()); err != nil {
		t.Fatalf("build: %v", err)
	}

	trace, err := f.RunCycles(ctx, "run-1", 2)
	if err != nil {
		t.Fatalf("run cycles: %v", err)
	}
	if trace.RunID != "run-1" || trace.TopologyID != "t1" || trace.Cycles != 2 {
		t.Fatalf("unexpected trace header: %+v", trace)
	}

	// Per cycle: s1 delivers to n1 and n2, s2 delivers to n1 only.
	if len(trace.Deliveries) != 6 {
		t.Fatalf("expected 6 deliveries, got %d", len(trace.Deliveries))
	}

	perTarget := make(map[string]map[string]int)
	for _, delivery := range trace.Deliveries {
		bySender := perTarget[delivery.TargetID]
		if bySender == nil {
			bySender = make(map[string]int)
			perTarget[delivery.TargetID] = bySender
		}
		bySender[delivery.Batch.SenderID]++
	}
	want := map[string]map[string]int{
		"n1": {"s1": 2, "s2": 2},
		"n2": {"s1": 2},
	}
	if !reflect.DeepEqual(perTarget, want) {
		t.Fatalf("unexpected fan-out: %+v", perTarget)
	}

	for _, delivery := range trace.Deliveries {
		if delivery.Batch.SenderID != "s2" {
			continue
		}
		wantSignals := []model.Signal{
			{Name: "s2_2", Value: -1.0},
			{Name: "s2_1", Value: 0.5},
		}
		if !reflect.DeepEqual(delivery.Batch.Signals, wantSignals) {
			t.Fatalf("unexpected s2 signals: %+v", delivery.Batch.Signals)
		}
		wantProvenance := []model.Provenance{{SenderID: "s2", Values: []float64{0.5, -1.0}}}
		if !reflect.DeepEqual(delivery.Batch.Provenance, wantProvenance) {
			t.Fatalf("unexpected s2 provenance: %+v", delivery.Batch.Provenance)
		}
	}

	// The scalar input was seeded through its "initial" extension value.
	var sawScalar bool
	for _, delivery := range trace.Deliveries {
		if delivery.Batch.SenderID == "s1" {
			sawScalar = true
			if !reflect.DeepEqual(delivery.Batch.Signals, []model.Signal{{Name: "s1_1", Value: 0.5}}) {
				t.Fatalf("unexpected s1 signals: %+v", delivery.Batch.Signals)
			}
		}
	}
	if !sawScalar {
		t.Fatal("no deliveries from s1")
	}

	stored, ok, err := store.GetTrace(ctx, "run-1")
	if err != nil || !ok {
		t.Fatalf("trace not persisted: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(stored, trace) {
		t.Fatalf("persisted trace mismatch: %+v", stored)
	}

	topology, ok, err := store.GetTopology(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("topology not persisted: ok=%v err=%v", ok, err)
	}
	if topology.SchemaVersion != storage.CurrentSchemaVersion {
		t.Fatalf("topology not version-stamped: %+v", topology.VersionedRecord)
	}
}

func TestFabricSurfacesSensorFault(t *testing.T) {
	// Registration survives across test runs in the same process.
	err := sensor.RegisterType("fabric-test-broken", func() sensor.Behavior {
		return &brokenSensor{}
	})
	if err != nil && !errors.Is(err, sensor.ErrTypeExists) {
		t.Fatalf("register type: %v", err)
	}

	ctx := context.Background()
	f := startedFabric(t)
	topology := model.Topology{
		ID: "t-broken",
		Sensors: []model.SensorSpec{
			{ID: "s1", Type: "fabric-test-broken", Outs: []string{"n1"}},
		},
		Collectors: []string{"n1"},
	}
	if err := f.Build(ctx, topology); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := f.RunCycles(ctx, "run-broken", 1); !errors.Is(err, sensor.ErrSenseNotImplemented) {
		t.Fatalf("expected ErrSenseNotImplemented, got: %v", err)
	}
}

func TestFabricStateCarriesAcrossCycles(t *testing.T) {
	ctx := context.Background()
	f := startedFabric(t)
	topology := model.Topology{
		ID: "t-random",
		Sensors: []model.SensorSpec{
			{ID: "rv", Type: sensor.RandomVectorName, Outs: []string{"n1"}, Ext: map[string]any{"width": 2, "seed": 11}},
		},
		Collectors: []string{"n1"},
	}
	if err := f.Build(ctx, topology); err != nil {
		t.Fatalf("build: %v", err)
	}

	if _, err := f.RunCycles(ctx, "run-rv", 3); err != nil {
		t.Fatalf("run cycles: %v", err)
	}
	state, ok := f.SensorState("rv")
	if !ok {
		t.Fatal("sensor state not found")
	}
	if cycle, _ := state.ExtFloat("cycle"); cycle != 3 {
		t.Fatalf("cycle counter not carried: %v", cycle)
	}
}

func TestFabricReset(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	f := NewFabric(Config{Store: store})
	if err := f.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(f.Stop)

	if err := f.Build(ctx, testTopology()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := f.RunCycles(ctx, "run-1", 1); err != nil {
		t.Fatalf("run cycles: %v", err)
	}

	if err := f.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if !f.Started() {
		t.Fatal("fabric not restarted after reset")
	}
	if runs, err := store.ListRuns(ctx); err != nil || len(runs) != 0 {
		t.Fatalf("store not reset: runs=%v err=%v", runs, err)
	}
	if _, err := f.RunCycles(ctx, "run-2", 1); !errors.Is(err, ErrNoNetwork) {
		t.Fatalf("expected ErrNoNetwork after reset, got: %v", err)
	}
}

type brokenSensor struct {
	sensor.Core
}
