package emu

import "github.com/coronado2/ee533-gpu/insts"

// RegFile represents the accelerator's register file: 16 general-purpose
// 64-bit registers. A register holds an opaque 64-bit value; whether it is
// 4 int16 lanes or 4 bf16 lanes is decided by the instruction reading it.
type RegFile struct {
	// R holds registers r0-r15.
	R [insts.NumRegs]uint64
}

// ReadReg reads a register value. Register indices come from 4-bit
// instruction fields, so they are always in range.
func (r *RegFile) ReadReg(reg uint8) uint64 {
	return r.R[reg]
}

// WriteReg writes a value to a register.
func (r *RegFile) WriteReg(reg uint8, value uint64) {
	r.R[reg] = value
}
