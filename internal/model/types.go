package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Signal is one named scalar unit exchanged between nodes.
type Signal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Provenance names the sender of a batch together with the raw impulse the
// batch was formatted from.
type Provenance struct {
	SenderID string    `json:"sender_id"`
	Values   []float64 `json:"values"`
}

// SignalBatch is the payload delivered to each downstream target: the full
// formatted envelope list plus a single-element provenance list.
type SignalBatch struct {
	SenderID   string       `json:"sender_id"`
	Signals    []Signal     `json:"signals"`
	Provenance []Provenance `json:"provenance"`
}

// SyncRequest asks a sensor node to run one sync cycle. Metadata is opaque
// to the runtime; its interpretation belongs to the concrete sensor.
type SyncRequest struct {
	OriginID string `json:"origin_id"`
	Metadata any    `json:"metadata,omitempty"`
}

// SensorSpec describes one sensor in a persisted topology.
type SensorSpec struct {
	ID   string         `json:"id"`
	Type string         `json:"type"`
	Outs []string       `json:"outs"`
	Ext  map[string]any `json:"ext,omitempty"`
}

// Topology is the wiring of a network: its sensors and the downstream
// collector nodes they feed.
type Topology struct {
	VersionedRecord
	ID         string       `json:"id"`
	Sensors    []SensorSpec `json:"sensors"`
	Collectors []string     `json:"collectors"`
}

// Delivery records one batch as observed by one target during a run.
type Delivery struct {
	Cycle    int         `json:"cycle"`
	TargetID string      `json:"target_id"`
	Batch    SignalBatch `json:"batch"`
}

// Trace is the ordered record of everything delivered during one run.
type Trace struct {
	VersionedRecord
	RunID      string     `json:"run_id"`
	TopologyID string     `json:"topology_id"`
	Cycles     int        `json:"cycles"`
	Deliveries []Delivery `json:"deliveries"`
}
