package emu_test

import (
	"bytes"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coronado2/ee533-gpu/emu"
	"github.com/coronado2/ee533-gpu/insts"
	"github.com/coronado2/ee533-gpu/timing/latency"
)

func assemble(program ...insts.Instruction) []uint32 {
	return insts.Assemble(program)
}

var _ = Describe("Simulator", func() {
	Describe("Integer SIMD programs", func() {
		It("should run VADD: [1,2,3,4]+[10,20,30,40]=[11,22,33,44]", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVADD, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, emu.PackInt16([4]int16{1, 2, 3, 4}))
			s.RegFile().WriteReg(1, emu.PackInt16([4]int16{10, 20, 30, 40}))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusHalted))
			Expect(emu.UnpackInt16(s.RegFile().ReadReg(2))).
				To(Equal([4]int16{11, 22, 33, 44}))
		})

		It("should run VSUB: [10,20,30,40]-[1,2,3,4]=[9,18,27,36]", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVSUB, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, emu.PackInt16([4]int16{10, 20, 30, 40}))
			s.RegFile().WriteReg(1, emu.PackInt16([4]int16{1, 2, 3, 4}))

			_, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(emu.UnpackInt16(s.RegFile().ReadReg(2))).
				To(Equal([4]int16{9, 18, 27, 36}))
		})

		It("should run RELU: max(0,[-5,-1,0,7])=[0,0,0,7]", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpRELU, Rd: 1, Rs1: 0},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, emu.PackInt16([4]int16{-5, -1, 0, 7}))

			_, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(emu.UnpackInt16(s.RegFile().ReadReg(1))).
				To(Equal([4]int16{0, 0, 0, 7}))
		})
	})

	Describe("bf16 tensor programs", func() {
		It("should run VMUL: [2]*[3]=[6]", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVMUL, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, emu.PackFloat32([4]float32{2, 2, 2, 2}))
			s.RegFile().WriteReg(1, emu.PackFloat32([4]float32{3, 3, 3, 3}))

			_, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(emu.UnpackFloat32(s.RegFile().ReadReg(2))).
				To(Equal([4]float32{6, 6, 6, 6}))
		})

		It("should run FMAC: 2*3+1=7 with rd as accumulator", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpFMAC, Rd: 3, Rs1: 1, Rs2: 2},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(1, emu.PackFloat32([4]float32{2, 2, 2, 2}))
			s.RegFile().WriteReg(2, emu.PackFloat32([4]float32{3, 3, 3, 3}))
			s.RegFile().WriteReg(3, emu.PackFloat32([4]float32{1, 1, 1, 1}))

			_, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(emu.UnpackFloat32(s.RegFile().ReadReg(3))).
				To(Equal([4]float32{7, 7, 7, 7}))
		})
	})

	Describe("Cycle-count parity with the hardware", func() {
		It("should take 3 cycles for [VMUL, HALT]", func() {
			// 1 issue + 1 stall + 1 halt
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVMUL, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusHalted))
			Expect(result.Cycles).To(Equal(uint64(3)))
		})

		It("should take 6 cycles for [FMAC, HALT]", func() {
			// 1 issue + 4 stall + 1 halt
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpFMAC, Rd: 3, Rs1: 1, Rs2: 2},
				insts.Instruction{Op: insts.OpHALT},
			))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cycles).To(Equal(uint64(6)))
		})

		It("should take 1 cycle per int16 or memory instruction", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVADD, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpVSUB, Rd: 3, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cycles).To(Equal(uint64(3)))
		})
	})

	Describe("Custom latency tables", func() {
		It("should stall memory instructions for the configured latency", func() {
			config := latency.DefaultTimingConfig()
			config.MemLatency = 4
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpLD, Rd: 1, Rs1: 0},
				insts.Instruction{Op: insts.OpHALT},
			), emu.WithLatencyTable(latency.NewTableWithConfig(config)))

			result, err := s.Run()

			// 4 LD cycles + 1 halt
			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cycles).To(Equal(uint64(5)))
		})

		It("should stall int16 instructions for the configured latency", func() {
			config := latency.DefaultTimingConfig()
			config.IntLatency = 2
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVADD, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			), emu.WithLatencyTable(latency.NewTableWithConfig(config)))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cycles).To(Equal(uint64(3)))
		})

		It("should charge HALT for the configured latency", func() {
			config := latency.DefaultTimingConfig()
			config.HaltLatency = 3
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpHALT},
			), emu.WithLatencyTable(latency.NewTableWithConfig(config)))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusHalted))
			Expect(result.Cycles).To(Equal(uint64(3)))
		})

		It("should shorten the tensor stall when the table says so", func() {
			config := latency.DefaultTimingConfig()
			config.TensorMacLatency = 2
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpFMAC, Rd: 3, Rs1: 1, Rs2: 2},
				insts.Instruction{Op: insts.OpHALT},
			), emu.WithLatencyTable(latency.NewTableWithConfig(config)))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Cycles).To(Equal(uint64(3)))
		})
	})

	Describe("Memory addressing", func() {
		It("should load, add and store through byte addresses", func() {
			// r0=0, r4=8, r5=16 are byte addresses; word index is addr/8.
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpLD, Rd: 1, Rs1: 0},
				insts.Instruction{Op: insts.OpLD, Rd: 2, Rs1: 4},
				insts.Instruction{Op: insts.OpVADD, Rd: 3, Rs1: 1, Rs2: 2},
				insts.Instruction{Op: insts.OpST, Rs1: 5, Rs2: 3},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, 0)
			s.RegFile().WriteReg(4, 8)
			s.RegFile().WriteReg(5, 16)
			s.Memory().SetWord(0, emu.PackInt16([4]int16{1, 2, 3, 4}))
			s.Memory().SetWord(1, emu.PackInt16([4]int16{5, 6, 7, 8}))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusHalted))
			Expect(emu.UnpackInt16(s.Memory().Word(2))).
				To(Equal([4]int16{6, 8, 10, 12}))
		})

		It("should fault on an out-of-range load", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpLD, Rd: 1, Rs1: 0},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, uint64(insts.DMemWords)*8)

			result, err := s.Run()

			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("out of range"))
			Expect(result.Status).To(Equal(emu.StatusFault))
		})

		It("should fault on an out-of-range store with the state inspectable", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpST, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			))
			s.RegFile().WriteReg(0, 1<<20)

			result, err := s.Run()

			Expect(err).To(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusFault))
			Expect(s.PC()).To(Equal(uint64(0)))
		})
	})

	Describe("Run bounds", func() {
		It("should report a non-terminating program as max-cycles", func() {
			// The bound cuts execution off before the HALT pad is reached.
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVADD, Rd: 2, Rs1: 0, Rs2: 1},
			), emu.WithMaxCycles(1))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusMaxCycles))
			Expect(result.Cycles).To(Equal(uint64(1)))
		})

		It("should read the HALT pad past the end of the program", func() {
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVADD, Rd: 2, Rs1: 0, Rs2: 1},
			))

			result, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(result.Status).To(Equal(emu.StatusHalted))
			Expect(result.Cycles).To(Equal(uint64(2)))
		})
	})

	Describe("Trace output", func() {
		It("should log each cycle to the trace writer", func() {
			buf := &bytes.Buffer{}
			s := emu.NewSimulator(assemble(
				insts.Instruction{Op: insts.OpVMUL, Rd: 2, Rs1: 0, Rs2: 1},
				insts.Instruction{Op: insts.OpHALT},
			), emu.WithTrace(buf))

			_, err := s.Run()

			Expect(err).ToNot(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("VMUL"))
			Expect(buf.String()).To(ContainSubstring("stalled"))
			Expect(buf.String()).To(ContainSubstring("HALT"))
		})
	})
})
