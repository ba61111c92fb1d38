// Package latency provides the hardware configuration for the timing
// engine: reservation-station counts and execution latencies per
// functional-unit class.
package latency

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/omarsaqr12/tomsim/insts"
)

// Config holds the operator-supplied hardware parameters. Counts are the
// number of reservation stations per functional-unit class; latencies are
// execution times in cycles.
type Config struct {
	LoadStations    int `json:"load_stations"`
	StoreStations   int `json:"store_stations"`
	BeqStations     int `json:"beq_stations"`
	CallRetStations int `json:"call_ret_stations"`
	AddSubStations  int `json:"add_sub_stations"`
	NorStations     int `json:"nor_stations"`
	MulStations     int `json:"mul_stations"`

	LoadLatency    uint64 `json:"load_latency"`
	StoreLatency   uint64 `json:"store_latency"`
	BeqLatency     uint64 `json:"beq_latency"`
	CallRetLatency uint64 `json:"call_ret_latency"`
	AddSubLatency  uint64 `json:"add_sub_latency"`
	NorLatency     uint64 `json:"nor_latency"`
	MulLatency     uint64 `json:"mul_latency"`
}

// DefaultConfig returns the default hardware parameters.
func DefaultConfig() *Config {
	return &Config{
		LoadStations:    2,
		StoreStations:   2,
		BeqStations:     2,
		CallRetStations: 1,
		AddSubStations:  4,
		NorStations:     2,
		MulStations:     2,

		LoadLatency:    5,
		StoreLatency:   5,
		BeqLatency:     1,
		CallRetLatency: 1,
		AddSubLatency:  2,
		NorLatency:     1,
		MulLatency:     10,
	}
}

// Stations returns the number of reservation stations for a class.
func (c *Config) Stations(class insts.Class) int {
	switch class {
	case insts.ClassLoad:
		return c.LoadStations
	case insts.ClassStore:
		return c.StoreStations
	case insts.ClassBranch:
		return c.BeqStations
	case insts.ClassCallRet:
		return c.CallRetStations
	case insts.ClassAddSub:
		return c.AddSubStations
	case insts.ClassNor:
		return c.NorStations
	case insts.ClassMul:
		return c.MulStations
	}
	return 0
}

// Latency returns the execution latency in cycles for a class.
func (c *Config) Latency(class insts.Class) uint64 {
	switch class {
	case insts.ClassLoad:
		return c.LoadLatency
	case insts.ClassStore:
		return c.StoreLatency
	case insts.ClassBranch:
		return c.BeqLatency
	case insts.ClassCallRet:
		return c.CallRetLatency
	case insts.ClassAddSub:
		return c.AddSubLatency
	case insts.ClassNor:
		return c.NorLatency
	case insts.ClassMul:
		return c.MulLatency
	}
	return 0
}

// LoadConfig loads a Config from a JSON file. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read hardware config file: %w", err)
	}

	config := DefaultConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse hardware config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a Config to a JSON file.
func (c *Config) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize hardware config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write hardware config file: %w", err)
	}

	return nil
}

// Validate checks that every class has at least one station and a latency
// of at least one cycle.
func (c *Config) Validate() error {
	for class := insts.Class(0); class < insts.NumClasses; class++ {
		if c.Stations(class) < 1 {
			return fmt.Errorf("%s station count must be > 0", class)
		}
		if c.Latency(class) < 1 {
			return fmt.Errorf("%s latency must be > 0", class)
		}
	}
	return nil
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}
