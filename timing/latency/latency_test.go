package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/coronado2/ee533-gpu/insts"
	"github.com/coronado2/ee533-gpu/timing/latency"
)

var _ = Describe("TimingConfig", func() {
	It("should default to the hardware core's latencies", func() {
		config := latency.DefaultTimingConfig()

		Expect(config.IntLatency).To(Equal(uint64(1)))
		Expect(config.MemLatency).To(Equal(uint64(1)))
		Expect(config.TensorMulLatency).To(Equal(uint64(2)))
		Expect(config.TensorMacLatency).To(Equal(uint64(5)))
		Expect(config.HaltLatency).To(Equal(uint64(1)))
	})

	It("should validate the defaults", func() {
		Expect(latency.DefaultTimingConfig().Validate()).To(Succeed())
	})

	It("should reject zero latencies", func() {
		config := latency.DefaultTimingConfig()
		config.TensorMacLatency = 0

		err := config.Validate()

		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("tensor_mac_latency"))
	})

	It("should clone without sharing state", func() {
		config := latency.DefaultTimingConfig()
		clone := config.Clone()
		clone.IntLatency = 9

		Expect(config.IntLatency).To(Equal(uint64(1)))
	})

	It("should round-trip through a JSON file", func() {
		config := latency.DefaultTimingConfig()
		config.TensorMulLatency = 3

		path := filepath.Join(GinkgoT().TempDir(), "timing.json")
		Expect(config.SaveConfig(path)).To(Succeed())

		loaded, err := latency.LoadConfig(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(loaded).To(Equal(config))
	})

	It("should keep defaults for fields missing from the file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "timing.json")
		err := os.WriteFile(path, []byte(`{"tensor_mac_latency": 8}`), 0644)
		Expect(err).ToNot(HaveOccurred())

		loaded, err := latency.LoadConfig(path)

		Expect(err).ToNot(HaveOccurred())
		Expect(loaded.TensorMacLatency).To(Equal(uint64(8)))
		Expect(loaded.TensorMulLatency).To(Equal(uint64(2)))
	})

	It("should fail on a missing file", func() {
		_, err := latency.LoadConfig(filepath.Join(GinkgoT().TempDir(), "absent.json"))

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Table", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	It("should report single-cycle latency for int16 and memory ops", func() {
		for _, op := range []insts.Op{
			insts.OpVADD, insts.OpVSUB, insts.OpRELU,
			insts.OpLD, insts.OpST, insts.OpHALT,
		} {
			Expect(table.TotalCycles(op)).To(Equal(uint64(1)))
			Expect(table.StallCycles(op)).To(Equal(uint64(0)))
		}
	})

	It("should report the tensor unit latencies", func() {
		Expect(table.TotalCycles(insts.OpVMUL)).To(Equal(uint64(2)))
		Expect(table.StallCycles(insts.OpVMUL)).To(Equal(uint64(1)))
		Expect(table.TotalCycles(insts.OpFMAC)).To(Equal(uint64(5)))
		Expect(table.StallCycles(insts.OpFMAC)).To(Equal(uint64(4)))
	})

	It("should honor a custom configuration", func() {
		config := latency.DefaultTimingConfig()
		config.MemLatency = 4
		table = latency.NewTableWithConfig(config)

		Expect(table.TotalCycles(insts.OpLD)).To(Equal(uint64(4)))
		Expect(table.StallCycles(insts.OpST)).To(Equal(uint64(3)))
		Expect(table.Config()).To(BeIdenticalTo(config))
	})

	It("should treat unknown opcodes as single-cycle", func() {
		Expect(table.TotalCycles(insts.Op(0x7))).To(Equal(uint64(1)))
	})
})
