package chain

import (
	"encoding/json"
	"fmt"
	"os"
)

// Artifact is the compiled contract artifact: ABI plus deployment bytecode.
// Both are treated as opaque configuration, loaded once at startup.
type Artifact struct {
	ABI      json.RawMessage `json:"abi"`
	Bytecode string          `json:"bytecode"`
}

// LoadArtifact reads and parses the artifact JSON from disk.
func LoadArtifact(path string) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read contract artifact: %w", err)
	}

	var artifact Artifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse contract artifact: %w", err)
	}
	if len(artifact.ABI) == 0 {
		return nil, fmt.Errorf("contract artifact %s has no ABI", path)
	}
	if artifact.Bytecode == "" {
		return nil, fmt.Errorf("contract artifact %s has no bytecode", path)
	}
	return &artifact, nil
}
