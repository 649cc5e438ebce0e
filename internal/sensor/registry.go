package sensor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

const (
	SupportedSchemaVersion = 1
	SupportedCodecVersion  = 1
)

var (
	ErrTypeExists      = errors.New("sensor type already registered")
	ErrTypeNotFound    = errors.New("sensor type not found")
	ErrVersionMismatch = errors.New("sensor type version mismatch")
)

type Factory func() Behavior

// TypeSpec declares a concrete sensor type: its factory plus the extension
// field defaults merged into every new state (see NewState).
type TypeSpec struct {
	Name          string
	Factory       Factory
	SchemaVersion int
	CodecVersion  int
	Defaults      map[string]any
}

type registeredType struct {
	factory       Factory
	schemaVersion int
	codecVersion  int
	defaults      map[string]any
}

var typeRegistry = struct {
	mu sync.RWMutex
	m  map[string]registeredType
}{
	m: make(map[string]registeredType),
}

func RegisterType(name string, factory Factory) error {
	return RegisterTypeWithSpec(TypeSpec{
		Name:          name,
		Factory:       factory,
		SchemaVersion: SupportedSchemaVersion,
		CodecVersion:  SupportedCodecVersion,
	})
}

func RegisterTypeWithSpec(spec TypeSpec) error {
	if spec.Name == "" {
		return errors.New("sensor type name is required")
	}
	if spec.Factory == nil {
		return errors.New("sensor type factory is required")
	}
	if spec.SchemaVersion != SupportedSchemaVersion || spec.CodecVersion != SupportedCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, spec.SchemaVersion, spec.CodecVersion)
	}

	typeRegistry.mu.Lock()
	defer typeRegistry.mu.Unlock()

	if _, exists := typeRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrTypeExists, spec.Name)
	}
	typeRegistry.m[spec.Name] = registeredType{
		factory:       spec.Factory,
		schemaVersion: spec.SchemaVersion,
		codecVersion:  spec.CodecVersion,
		defaults:      spec.Defaults,
	}
	return nil
}

// ResolveType instantiates a fresh behavior and the default state for the
// named type.
func ResolveType(name string) (Behavior, State, error) {
	typeRegistry.mu.RLock()
	entry, ok := typeRegistry.m[name]
	typeRegistry.mu.RUnlock()
	if !ok {
		return nil, State{}, fmt.Errorf("%w: %s", ErrTypeNotFound, name)
	}
	if entry.schemaVersion != SupportedSchemaVersion || entry.codecVersion != SupportedCodecVersion {
		return nil, State{}, fmt.Errorf("%w: %s", ErrVersionMismatch, name)
	}
	return entry.factory(), NewState(entry.defaults), nil
}

func ListTypes() []string {
	typeRegistry.mu.RLock()
	defer typeRegistry.mu.RUnlock()

	names := make([]string, 0, len(typeRegistry.m))
	for name := range typeRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func resetRegistryForTests() {
	typeRegistry.mu.Lock()
	typeRegistry.m = make(map[string]registeredType)
	typeRegistry.mu.Unlock()

	initializeDefaultTypes()
}
