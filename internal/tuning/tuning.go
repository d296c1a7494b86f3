// Package tuning loads the operator-editable knobs from tuning.yaml.
// Zero values fall through to the world config defaults.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	WorldBoundaryR int `yaml:"world_boundary_r"`

	SettlementCellSize int `yaml:"settlement_cell_size"`
	SettlementPermille int `yaml:"settlement_permille"`

	ChunkCacheLimit    int `yaml:"chunk_cache_limit"`
	SaveEveryEvictions int `yaml:"save_every_evictions"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
