package sensor

import (
	"errors"
	"reflect"
	"testing"
)

func TestNewStateDiscardsReservedKeys(t *testing.T) {
	state := NewState(map[string]any{
		"id":    "smuggled",
		"outs":  []string{"x"},
		"gain":  2.5,
		"label": "left",
	})

	if state.ID != "" {
		t.Fatalf("extension defaults must not seed id: %q", state.ID)
	}
	if len(state.Outs) != 0 {
		t.Fatalf("extension defaults must not seed outs: %v", state.Outs)
	}
	if _, ok := state.Ext["id"]; ok {
		t.Fatal("reserved key id survived the merge")
	}
	if _, ok := state.Ext["outs"]; ok {
		t.Fatal("reserved key outs survived the merge")
	}
	if state.Ext["gain"] != 2.5 || state.Ext["label"] != "left" {
		t.Fatalf("extension fields lost: %+v", state.Ext)
	}
}

func TestNewStateCopiesExtensionMap(t *testing.T) {
	ext := map[string]any{"gain": 1.0}
	state := NewState(ext)

	ext["gain"] = 99.0
	if state.Ext["gain"] != 1.0 {
		t.Fatalf("state shares caller's map: %+v", state.Ext)
	}
}

func TestMergeExtLayersInstanceValues(t *testing.T) {
	state := NewState(map[string]any{"gain": 1.0, "width": 2})
	merged := state.MergeExt(map[string]any{"gain": 3.0, "id": "smuggled"})

	if merged.Ext["gain"] != 3.0 {
		t.Fatalf("instance value not applied: %+v", merged.Ext)
	}
	if merged.Ext["width"] != 2 {
		t.Fatalf("type default lost: %+v", merged.Ext)
	}
	if _, ok := merged.Ext["id"]; ok {
		t.Fatal("reserved key id survived the merge")
	}
	if state.Ext["gain"] != 1.0 {
		t.Fatalf("merge mutated the original state: %+v", state.Ext)
	}
}

func TestWithIdentity(t *testing.T) {
	outs := []string{"n1", "n2"}
	state, err := NewState(nil).WithIdentity("s1", outs)
	if err != nil {
		t.Fatalf("bind identity: %v", err)
	}
	if state.ID != "s1" {
		t.Fatalf("unexpected id: %s", state.ID)
	}

	outs[0] = "mutated"
	if state.Outs[0] != "n1" {
		t.Fatalf("state shares caller's outs slice: %v", state.Outs)
	}

	if _, err := state.WithIdentity("s2", nil); !errors.Is(err, ErrIdentityAssigned) {
		t.Fatalf("expected ErrIdentityAssigned, got: %v", err)
	}
	if _, err := NewState(nil).WithIdentity("", nil); err == nil {
		t.Fatal("expected empty id validation")
	}
}

func TestExtFloatConversions(t *testing.T) {
	state := NewState(map[string]any{
		"a": 1.5,
		"b": 2,
		"c": int64(3),
		"d": "nope",
	})

	if v, ok := state.ExtFloat("a"); !ok || v != 1.5 {
		t.Fatalf("float64: %v %v", v, ok)
	}
	if v, ok := state.ExtFloat("b"); !ok || v != 2 {
		t.Fatalf("int: %v %v", v, ok)
	}
	if v, ok := state.ExtFloat("c"); !ok || v != 3 {
		t.Fatalf("int64: %v %v", v, ok)
	}
	if _, ok := state.ExtFloat("d"); ok {
		t.Fatal("string must not convert")
	}
	if _, ok := state.ExtFloat("missing"); ok {
		t.Fatal("missing key must not convert")
	}
}

func TestExtFloatsConversions(t *testing.T) {
	state := NewState(map[string]any{
		"native": []float64{1, 2},
		"mixed":  []any{1, 2.5},
		"bad":    []any{"x"},
	})

	if v, ok := state.ExtFloats("native"); !ok || !reflect.DeepEqual(v, []float64{1, 2}) {
		t.Fatalf("native: %v %v", v, ok)
	}
	if v, ok := state.ExtFloats("mixed"); !ok || !reflect.DeepEqual(v, []float64{1, 2.5}) {
		t.Fatalf("mixed: %v %v", v, ok)
	}
	if _, ok := state.ExtFloats("bad"); ok {
		t.Fatal("non-numeric element must not convert")
	}
}
