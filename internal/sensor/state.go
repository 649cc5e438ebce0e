package sensor

import (
	"errors"
	"fmt"
)

// Reserved base-field keys. Extension defaults cannot seed these: the
// mandatory defaults always win during construction, so a sensor type can
// never pre-assign its own identity or target list through the extension
// mechanism.
const (
	extKeyID   = "id"
	extKeyOuts = "outs"
)

var ErrIdentityAssigned = errors.New("sensor identity already assigned")

// State is the data one sensor actor carries across sync cycles: its
// identity, the downstream targets it broadcasts to, and an open set of
// type-specific extension fields.
type State struct {
	ID   string
	Outs []string
	Ext  map[string]any
}

// NewState builds a default state by merging a sensor type's declared
// extension defaults with the mandatory base defaults (unset id, empty
// target list). Reserved keys in ext are discarded.
func NewState(ext map[string]any) State {
	merged := make(map[string]any, len(ext))
	for key, value := range ext {
		if key == extKeyID || key == extKeyOuts {
			continue
		}
		merged[key] = value
	}
	return State{Ext: merged}
}

// MergeExt returns a copy of the state with per-instance extension values
// layered over the existing ones. Reserved keys are discarded, as in
// NewState.
func (s State) MergeExt(ext map[string]any) State {
	merged := make(map[string]any, len(s.Ext)+len(ext))
	for key, value := range s.Ext {
		merged[key] = value
	}
	for key, value := range ext {
		if key == extKeyID || key == extKeyOuts {
			continue
		}
		merged[key] = value
	}
	s.Ext = merged
	return s
}

// WithIdentity assigns the actor identity and target list exactly once.
// Identity is set at instantiation by the runtime and never reassigned.
func (s State) WithIdentity(id string, outs []string) (State, error) {
	if id == "" {
		return State{}, errors.New("sensor id is required")
	}
	if s.ID != "" {
		return State{}, fmt.Errorf("%w: %s", ErrIdentityAssigned, s.ID)
	}
	s.ID = id
	s.Outs = append([]string(nil), outs...)
	return s, nil
}

// ExtFloat reads a numeric extension field. YAML and JSON decoding produce
// a mix of int and float64 values, so both are accepted.
func (s State) ExtFloat(key string) (float64, bool) {
	value, ok := s.Ext[key]
	if !ok {
		return 0, false
	}
	return toFloat(value)
}

// ExtFloats reads a numeric vector extension field.
func (s State) ExtFloats(key string) ([]float64, bool) {
	value, ok := s.Ext[key]
	if !ok {
		return nil, false
	}
	switch vs := value.(type) {
	case []float64:
		return append([]float64(nil), vs...), true
	case []any:
		out := make([]float64, 0, len(vs))
		for _, item := range vs {
			f, ok := toFloat(item)
			if !ok {
				return nil, false
			}
			out = append(out, f)
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
