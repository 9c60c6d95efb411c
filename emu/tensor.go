package emu

// TensorUnit implements the multi-cycle packed bf16 operations. Products
// are computed in float32 and rounded to nearest-even on the way back to
// bf16, matching the hardware datapath. The unit only computes results;
// the simulator owns the busy countdown that models its latency.
type TensorUnit struct {
	regFile *RegFile
}

// NewTensorUnit creates a tensor unit connected to the given register file.
func NewTensorUnit(regFile *RegFile) *TensorUnit {
	return &TensorUnit{regFile: regFile}
}

// VMUL performs per-lane bf16 multiplication: rd = rs1 * rs2.
func (t *TensorUnit) VMUL(rd, rs1, rs2 uint8) {
	a := UnpackFloat32(t.regFile.ReadReg(rs1))
	b := UnpackFloat32(t.regFile.ReadReg(rs2))
	var out [Lanes]float32
	for i := range out {
		out[i] = a[i] * b[i]
	}
	t.regFile.WriteReg(rd, PackFloat32(out))
}

// FMAC performs per-lane bf16 fused multiply-accumulate: rd = rs1*rs2 + rd.
// The destination register is the implicit accumulator.
func (t *TensorUnit) FMAC(rd, rs1, rs2 uint8) {
	a := UnpackFloat32(t.regFile.ReadReg(rs1))
	b := UnpackFloat32(t.regFile.ReadReg(rs2))
	acc := UnpackFloat32(t.regFile.ReadReg(rd))
	var out [Lanes]float32
	for i := range out {
		out[i] = a[i]*b[i] + acc[i]
	}
	t.regFile.WriteReg(rd, PackFloat32(out))
}
