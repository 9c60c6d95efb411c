package emu

// VectorUnit implements the single-cycle packed int16 operations.
type VectorUnit struct {
	regFile *RegFile
}

// NewVectorUnit creates a vector unit connected to the given register file.
func NewVectorUnit(regFile *RegFile) *VectorUnit {
	return &VectorUnit{regFile: regFile}
}

// VADD performs per-lane signed 16-bit addition with wraparound: rd = rs1 + rs2.
func (v *VectorUnit) VADD(rd, rs1, rs2 uint8) {
	a := UnpackInt16(v.regFile.ReadReg(rs1))
	b := UnpackInt16(v.regFile.ReadReg(rs2))
	var out [Lanes]int16
	for i := range out {
		out[i] = a[i] + b[i]
	}
	v.regFile.WriteReg(rd, PackInt16(out))
}

// VSUB performs per-lane signed 16-bit subtraction with wraparound: rd = rs1 - rs2.
func (v *VectorUnit) VSUB(rd, rs1, rs2 uint8) {
	a := UnpackInt16(v.regFile.ReadReg(rs1))
	b := UnpackInt16(v.regFile.ReadReg(rs2))
	var out [Lanes]int16
	for i := range out {
		out[i] = a[i] - b[i]
	}
	v.regFile.WriteReg(rd, PackInt16(out))
}

// RELU performs per-lane max(0, lane): rd = max(0, rs1).
func (v *VectorUnit) RELU(rd, rs1 uint8) {
	a := UnpackInt16(v.regFile.ReadReg(rs1))
	var out [Lanes]int16
	for i := range out {
		if a[i] > 0 {
			out[i] = a[i]
		}
	}
	v.regFile.WriteReg(rd, PackInt16(out))
}
