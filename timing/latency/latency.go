// Package latency provides the instruction timing model for cycle-accurate
// simulation. The default values reproduce the hardware core's observed
// cycle counts and can be overridden via TimingConfig.
package latency

import (
	"github.com/coronado2/ee533-gpu/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with the hardware default values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a latency table with a custom configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Config returns the table's timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

// TotalCycles returns the total latency of an opcode, including its issue
// cycle. Unknown opcodes report one cycle.
func (t *Table) TotalCycles(op insts.Op) uint64 {
	switch op {
	case insts.OpVADD, insts.OpVSUB, insts.OpRELU:
		return t.config.IntLatency
	case insts.OpLD, insts.OpST:
		return t.config.MemLatency
	case insts.OpVMUL:
		return t.config.TensorMulLatency
	case insts.OpFMAC:
		return t.config.TensorMacLatency
	case insts.OpHALT:
		return t.config.HaltLatency
	default:
		return 1
	}
}

// StallCycles returns the number of stall cycles an opcode owes after its
// issue cycle. Zero for single-cycle opcodes.
func (t *Table) StallCycles(op insts.Op) uint64 {
	total := t.TotalCycles(op)
	if total == 0 {
		return 0
	}
	return total - 1
}
