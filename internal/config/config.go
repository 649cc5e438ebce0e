package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"dendrite/internal/model"
)

// Sensor describes one sensor instance: which registered type to
// instantiate, where its output goes, and per-instance extension values.
type Sensor struct {
	ID   string         `yaml:"id"`
	Type string         `yaml:"type"`
	Outs []string       `yaml:"outs"`
	Ext  map[string]any `yaml:"ext,omitempty"`
}

// Config is the YAML description of a network run.
type Config struct {
	TopologyID string   `yaml:"topology_id"`
	Store      string   `yaml:"store"`
	StorePath  string   `yaml:"store_path"`
	Cycles     int      `yaml:"cycles"`
	Sensors    []Sensor `yaml:"sensors"`
	Collectors []string `yaml:"collectors"`
}

const (
	// DefaultConfigFilename is the default network description file.
	DefaultConfigFilename = "dendrite-network.yaml"

	// DefaultTopologyID is used when the file does not name its topology.
	DefaultTopologyID = "network"

	// DefaultCycles is the number of sync cycles when none is configured.
	DefaultCycles = 1

	// DefaultFilePermissions is the file mode for written config files.
	DefaultFilePermissions = 0o600
)

var (
	errConfigIsNotSet   = errors.New("configuration is not set")
	errNoSensors        = errors.New("at least one sensor is required")
	errStorePathMissing = errors.New("sqlite store requires store_path")
)

// Load reads a network description from the provided path, applies
// defaults, and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read network config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal network config: %w", err)
	}

	applyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the config to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if path == "" {
		path = DefaultConfigFilename
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal network config: %w", err)
	}
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write network config: %w", err)
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.TopologyID == "" {
		cfg.TopologyID = DefaultTopologyID
	}
	if cfg.Cycles <= 0 {
		cfg.Cycles = DefaultCycles
	}
}

// Validate checks structural consistency: unique addresses, known wiring
// targets, and a usable store selection.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	switch cfg.Store {
	case "", "memory":
	case "sqlite":
		if cfg.StorePath == "" {
			return errStorePathMissing
		}
	default:
		return fmt.Errorf("unsupported store backend: %s", cfg.Store)
	}

	if len(cfg.Sensors) == 0 {
		return errNoSensors
	}

	addresses := make(map[string]struct{}, len(cfg.Sensors)+len(cfg.Collectors))
	for i, collector := range cfg.Collectors {
		if collector == "" {
			return fmt.Errorf("collector %d: id is required", i)
		}
		if _, exists := addresses[collector]; exists {
			return fmt.Errorf("duplicate node id: %s", collector)
		}
		addresses[collector] = struct{}{}
	}
	for i, s := range cfg.Sensors {
		if s.ID == "" {
			return fmt.Errorf("sensor %d: id is required", i)
		}
		if s.Type == "" {
			return fmt.Errorf("sensor %s: type is required", s.ID)
		}
		if _, exists := addresses[s.ID]; exists {
			return fmt.Errorf("duplicate node id: %s", s.ID)
		}
		addresses[s.ID] = struct{}{}
	}
	for _, s := range cfg.Sensors {
		for _, out := range s.Outs {
			if _, known := addresses[out]; !known {
				return fmt.Errorf("sensor %s: unknown target: %s", s.ID, out)
			}
		}
	}
	return nil
}

// Topology converts the config into the persistable wiring record. Version
// stamps are applied by the fabric on save.
func (cfg *Config) Topology() model.Topology {
	sensors := make([]model.SensorSpec, 0, len(cfg.Sensors))
	for _, s := range cfg.Sensors {
		sensors = append(sensors, model.SensorSpec{
			ID:   s.ID,
			Type: s.Type,
			Outs: append([]string(nil), s.Outs...),
			Ext:  s.Ext,
		})
	}
	return model.Topology{
		ID:         cfg.TopologyID,
		Sensors:    sensors,
		Collectors: append([]string(nil), cfg.Collectors...),
	}
}
