package storage

import (
	"encoding/json"
	"errors"

	"dendrite/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeTopology(t model.Topology) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTopology(data []byte) (model.Topology, error) {
	var topology model.Topology
	if err := json.Unmarshal(data, &topology); err != nil {
		return model.Topology{}, err
	}
	if err := checkVersion(topology.VersionedRecord); err != nil {
		return model.Topology{}, err
	}
	return topology, nil
}

func EncodeTrace(t model.Trace) ([]byte, error) {
	return json.Marshal(t)
}

func DecodeTrace(data []byte) (model.Trace, error) {
	var trace model.Trace
	if err := json.Unmarshal(data, &trace); err != nil {
		return model.Trace{}, err
	}
	if err := checkVersion(trace.VersionedRecord); err != nil {
		return model.Trace{}, err
	}
	return trace, nil
}

func checkVersion(record model.VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
