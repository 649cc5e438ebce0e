package sensor

import (
	"fmt"
	"math/rand"
	"sync"
)

const (
	ScalarInputName    = "scalar_input"
	ConstantVectorName = "constant_vector"
	RandomVectorName   = "random_vector"
)

// ScalarSetter is an optional capability used by callers that drive a
// scalar stimulus into a concrete sensor from outside.
type ScalarSetter interface {
	Set(value float64)
}

// ScalarInput reads a single externally settable scalar.
type ScalarInput struct {
	Core

	mu    sync.RWMutex
	value float64
}

func NewScalarInput(initial float64) *ScalarInput {
	return &ScalarInput{value: initial}
}

func (s *ScalarInput) Set(value float64) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

func (s *ScalarInput) Sense(_ State, _ any) ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return []float64{s.value}, nil
}

// ConstantVector replays the fixed tuple declared in the "values" extension
// field every cycle.
type ConstantVector struct {
	Core
}

func NewConstantVector() *ConstantVector {
	return &ConstantVector{}
}

func (s *ConstantVector) Sense(state State, _ any) ([]float64, error) {
	values, ok := state.ExtFloats("values")
	if !ok {
		return nil, fmt.Errorf("constant vector %s: values extension is required", state.ID)
	}
	return values, nil
}

// RandomVector emits a seeded pseudo-random tuple of fixed width and counts
// completed cycles in its own extension state.
type RandomVector struct {
	Core

	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandomVector() *RandomVector {
	return &RandomVector{}
}

// BeforeSync advances the per-actor cycle counter so the next cycle sees
// the previous cycle's mutation.
func (s *RandomVector) BeforeSync(state State) (State, error) {
	cycle, _ := state.ExtFloat("cycle")
	state.Ext["cycle"] = cycle + 1
	return state, nil
}

func (s *RandomVector) Sense(state State, _ any) ([]float64, error) {
	width, ok := state.ExtFloat("width")
	if !ok || width < 1 {
		width = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng == nil {
		seed, _ := state.ExtFloat("seed")
		s.rng = rand.New(rand.NewSource(int64(seed)))
	}
	impulse := make([]float64, int(width))
	for i := range impulse {
		impulse[i] = s.rng.Float64()*2 - 1
	}
	return impulse, nil
}

func init() {
	initializeDefaultTypes()
}

func initializeDefaultTypes() {
	err := RegisterTypeWithSpec(TypeSpec{
		Name:          ScalarInputName,
		Factory:       func() Behavior { return NewScalarInput(0) },
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Defaults:      map[string]any{"initial": 0.0},
	})
	if err != nil {
		panic(err)
	}

	err = RegisterTypeWithSpec(TypeSpec{
		Name:          ConstantVectorName,
		Factory:       func() Behavior { return NewConstantVector() },
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
	if err != nil {
		panic(err)
	}

	err = RegisterTypeWithSpec(TypeSpec{
		Name:          RandomVectorName,
		Factory:       func() Behavior { return NewRandomVector() },
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
		Defaults:      map[string]any{"width": 1.0, "seed": 0.0, "cycle": 0.0},
	})
	if err != nil {
		panic(err)
	}
}
