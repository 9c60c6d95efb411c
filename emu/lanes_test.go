package emu_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coronado2/ee533-gpu/emu"
)

var _ = Describe("Lane packing", func() {
	Describe("Int16 lanes", func() {
		It("should round-trip positive and negative lanes", func() {
			lanes := [4]int16{-5, -1, 0, 7}
			Expect(emu.UnpackInt16(emu.PackInt16(lanes))).To(Equal(lanes))
		})

		It("should place lane 0 in the lowest 16 bits", func() {
			v := emu.PackInt16([4]int16{1, 2, 3, 4})
			Expect(v & 0xFFFF).To(Equal(uint64(1)))
			Expect(v >> 48).To(Equal(uint64(4)))
		})

		It("should round-trip the extremes", func() {
			lanes := [4]int16{-32768, 32767, -1, 1}
			Expect(emu.UnpackInt16(emu.PackInt16(lanes))).To(Equal(lanes))
		})
	})

	Describe("BF16 conversion", func() {
		// bf16 is the top half of the float32 bit pattern:
		// 1.0 -> 0x3F80, 2.0 -> 0x4000, 3.0 -> 0x4040, 6.0 -> 0x40C0
		It("should narrow exact values without rounding", func() {
			Expect(emu.BF16FromFloat32(1.0)).To(Equal(uint16(0x3F80)))
			Expect(emu.BF16FromFloat32(2.0)).To(Equal(uint16(0x4000)))
			Expect(emu.BF16FromFloat32(3.0)).To(Equal(uint16(0x4040)))
			Expect(emu.BF16FromFloat32(-6.0)).To(Equal(uint16(0xC0C0)))
		})

		It("should widen exactly", func() {
			Expect(emu.BF16ToFloat32(0x4000)).To(Equal(float32(2.0)))
			Expect(emu.BF16ToFloat32(0xC0E0)).To(Equal(float32(-7.0)))
		})

		It("should round to nearest even", func() {
			// 1.00390625 (0x3F808000) sits exactly between bf16 values
			// 0x3F80 and 0x3F81; ties go to the even encoding 0x3F80.
			Expect(emu.BF16FromFloat32(1.00390625)).To(Equal(uint16(0x3F80)))
			// 1.01171875 (0x3F818000) ties upward to even 0x3F82.
			Expect(emu.BF16FromFloat32(1.01171875)).To(Equal(uint16(0x3F82)))
		})

		It("should keep NaN a NaN", func() {
			nan := emu.BF16FromFloat32(float32(math.NaN()))
			Expect(nan & 0x7F80).To(Equal(uint16(0x7F80)))
			Expect(nan & 0x007F).ToNot(Equal(uint16(0)))
		})

		It("should round-trip packed float lanes", func() {
			v := emu.PackFloat32([4]float32{1, 2, 3, 4})
			Expect(emu.UnpackFloat32(v)).To(Equal([4]float32{1, 2, 3, 4}))
		})
	})
})
