package storage

import (
	"context"
	"reflect"
	"testing"

	"dendrite/internal/model"
)

func testTopology(id string) model.Topology {
	return model.Topology{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		ID:              id,
		Sensors: []model.SensorSpec{
			{ID: "s1", Type: "scalar_input", Outs: []string{"n1", "n2"}},
		},
		Collectors: []string{"n1", "n2"},
	}
}

func testTrace(runID string) model.Trace {
	return model.Trace{
		VersionedRecord: model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion},
		RunID:           runID,
		TopologyID:      "t1",
		Cycles:          1,
		Deliveries: []model.Delivery{
			{
				Cycle:    1,
				TargetID: "n1",
				Batch: model.SignalBatch{
					SenderID:   "s1",
					Signals:    []model.Signal{{Name: "s1_1", Value: 0.5}},
					Provenance: []model.Provenance{{SenderID: "s1", Values: []float64{0.5}}},
				},
			},
		},
	}
}

func TestMemoryStoreTopologyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	topology := testTopology("t1")
	if err := store.SaveTopology(ctx, topology); err != nil {
		t.Fatalf("save topology: %v", err)
	}
	loaded, ok, err := store.GetTopology(ctx, "t1")
	if err != nil || !ok {
		t.Fatalf("get topology: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(loaded, topology) {
		t.Fatalf("topology mismatch: %+v", loaded)
	}

	if _, ok, err := store.GetTopology(ctx, "ghost"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}
	if err := store.SaveTopology(ctx, model.Topology{}); err == nil {
		t.Fatal("expected topology id validation")
	}
}

func TestMemoryStoreTraceRoundTripAndListRuns(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}

	for _, runID := range []string{"run-b", "run-a"} {
		if err := store.SaveTrace(ctx, testTrace(runID)); err != nil {
			t.Fatalf("save trace %s: %v", runID, err)
		}
	}

	loaded, ok, err := store.GetTrace(ctx, "run-a")
	if err != nil || !ok {
		t.Fatalf("get trace: ok=%v err=%v", ok, err)
	}
	if !reflect.DeepEqual(loaded, testTrace("run-a")) {
		t.Fatalf("trace mismatch: %+v", loaded)
	}

	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if !reflect.DeepEqual(runs, []string{"run-a", "run-b"}) {
		t.Fatalf("unexpected runs: %v", runs)
	}

	if err := store.SaveTrace(ctx, model.Trace{}); err == nil {
		t.Fatal("expected trace run id validation")
	}
}

func TestMemoryStoreReset(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := store.SaveTrace(ctx, testTrace("run-a")); err != nil {
		t.Fatalf("save trace: %v", err)
	}

	if err := store.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	runs, err := store.ListRuns(ctx)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("reset kept runs: %v", runs)
	}
}
