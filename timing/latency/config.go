package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds total instruction latencies in cycles. The defaults
// match the hardware core: int16 ops and memory accesses retire in one
// cycle, the tensor unit occupies the issue slot for its full latency.
type TimingConfig struct {
	// IntLatency is the latency for VADD, VSUB and RELU. Default: 1 cycle.
	IntLatency uint64 `json:"int_latency"`

	// MemLatency is the latency for LD and ST (single-cycle BRAM).
	// Default: 1 cycle.
	MemLatency uint64 `json:"mem_latency"`

	// TensorMulLatency is the total latency of VMUL, including the issue
	// cycle. Default: 2 cycles.
	TensorMulLatency uint64 `json:"tensor_mul_latency"`

	// TensorMacLatency is the total latency of FMAC, including the issue
	// cycle. Default: 5 cycles.
	TensorMacLatency uint64 `json:"tensor_mac_latency"`

	// HaltLatency is the latency of HALT. Default: 1 cycle.
	HaltLatency uint64 `json:"halt_latency"`
}

// DefaultTimingConfig returns a TimingConfig matching the hardware core.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		IntLatency:       1,
		MemLatency:       1,
		TensorMulLatency: 2,
		TensorMacLatency: 5,
		HaltLatency:      1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Missing fields keep
// their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.IntLatency == 0 {
		return fmt.Errorf("int_latency must be > 0")
	}
	if c.MemLatency == 0 {
		return fmt.Errorf("mem_latency must be > 0")
	}
	if c.TensorMulLatency == 0 {
		return fmt.Errorf("tensor_mul_latency must be > 0")
	}
	if c.TensorMacLatency == 0 {
		return fmt.Errorf("tensor_mac_latency must be > 0")
	}
	if c.HaltLatency == 0 {
		return fmt.Errorf("halt_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
