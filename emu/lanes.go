// Package emu provides functional and cycle-accurate emulation of the
// SIMD accelerator core: 16 general-purpose 64-bit registers, a 512-word
// data memory, a packed int16x4 vector unit, and a multi-cycle bf16x4
// tensor unit.
package emu

import "math"

// Lanes is the number of 16-bit sub-values packed into a 64-bit register
// or memory word.
const Lanes = 4

// Lane 0 occupies bits [15:0]; higher lanes sit toward the MSB. Loads and
// stores move packed values opaquely, so this mapping is the single point
// where lane order is defined.

// PackInt16 packs 4 signed 16-bit lanes into a 64-bit register value.
func PackInt16(lanes [Lanes]int16) uint64 {
	var v uint64
	for i, lane := range lanes {
		v |= uint64(uint16(lane)) << (16 * i)
	}
	return v
}

// UnpackInt16 unpacks a 64-bit register value into 4 signed 16-bit lanes.
func UnpackInt16(v uint64) [Lanes]int16 {
	var lanes [Lanes]int16
	for i := range lanes {
		lanes[i] = int16(uint16(v >> (16 * i)))
	}
	return lanes
}

// PackBF16 packs 4 raw bf16 lanes into a 64-bit register value.
func PackBF16(lanes [Lanes]uint16) uint64 {
	var v uint64
	for i, lane := range lanes {
		v |= uint64(lane) << (16 * i)
	}
	return v
}

// UnpackBF16 unpacks a 64-bit register value into 4 raw bf16 lanes.
func UnpackBF16(v uint64) [Lanes]uint16 {
	var lanes [Lanes]uint16
	for i := range lanes {
		lanes[i] = uint16(v >> (16 * i))
	}
	return lanes
}

// BF16ToFloat32 widens a bf16 value to float32. bf16 is the upper half of
// the float32 bit pattern, so widening is exact.
func BF16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// BF16FromFloat32 narrows a float32 to bf16 with round-to-nearest-even.
func BF16FromFloat32(f float32) uint16 {
	bits := math.Float32bits(f)
	if bits&0x7FFFFFFF > 0x7F800000 {
		// NaN: keep it quiet, preserve the sign.
		return uint16(bits>>16) | 0x0040
	}
	bits += 0x7FFF + (bits >> 16 & 1)
	return uint16(bits >> 16)
}

// PackFloat32 converts 4 float32 lanes to bf16 and packs them.
func PackFloat32(lanes [Lanes]float32) uint64 {
	var b [Lanes]uint16
	for i, f := range lanes {
		b[i] = BF16FromFloat32(f)
	}
	return PackBF16(b)
}

// UnpackFloat32 unpacks a 64-bit register value into 4 float32 lanes,
// interpreting each lane as bf16.
func UnpackFloat32(v uint64) [Lanes]float32 {
	var lanes [Lanes]float32
	for i, b := range UnpackBF16(v) {
		lanes[i] = BF16ToFloat32(b)
	}
	return lanes
}
