package emu

import (
	"fmt"
	"io"

	"github.com/coronado2/ee533-gpu/insts"
	"github.com/coronado2/ee533-gpu/timing/latency"
)

// DefaultMaxCycles bounds a run when no explicit limit is configured.
const DefaultMaxCycles = 5000

// RunStatus classifies how a simulation ended.
type RunStatus int

// Run statuses.
const (
	// StatusHalted means the program executed HALT.
	StatusHalted RunStatus = iota
	// StatusMaxCycles means the cycle bound was reached without HALT.
	StatusMaxCycles
	// StatusFault means execution aborted, e.g. on an out-of-range
	// memory access. The simulator state at the fault is inspectable.
	StatusFault
)

// String returns a readable name for the status.
func (s RunStatus) String() string {
	switch s {
	case StatusHalted:
		return "halted"
	case StatusMaxCycles:
		return "max-cycles"
	case StatusFault:
		return "fault"
	default:
		return fmt.Sprintf("RunStatus(%d)", int(s))
	}
}

// RunResult reports the outcome of a simulation run.
type RunResult struct {
	Status RunStatus
	// Cycles is the total cycle count: the sum of the latencies of every
	// executed instruction, including HALT.
	Cycles uint64
}

// Simulator executes encoded programs cycle by cycle, reproducing the
// hardware's stall behavior. It is a strictly in-order, single-issue
// model: while an instruction owes stall cycles no new instruction is
// fetched.
// Each Simulator owns its register file and data memory; concurrent runs
// must use separate instances.
type Simulator struct {
	program []uint32
	regFile *RegFile
	memory  *Memory

	vectorUnit *VectorUnit
	tensorUnit *TensorUnit
	latencies  *latency.Table

	pc    uint64
	cycle uint64
	// busy counts remaining stall cycles owed by the current instruction.
	busy uint64

	maxCycles uint64
	trace     io.Writer
}

// SimulatorOption is a functional option for configuring the Simulator.
type SimulatorOption func(*Simulator)

// WithMaxCycles sets the cycle bound for Run. A value of 0 means no limit.
func WithMaxCycles(limit uint64) SimulatorOption {
	return func(s *Simulator) {
		s.maxCycles = limit
	}
}

// WithTrace enables a per-cycle execution trace on the given writer.
func WithTrace(w io.Writer) SimulatorOption {
	return func(s *Simulator) {
		s.trace = w
	}
}

// WithLatencyTable sets a custom latency table.
func WithLatencyTable(table *latency.Table) SimulatorOption {
	return func(s *Simulator) {
		s.latencies = table
	}
}

// NewSimulator creates a simulator for the given instruction words.
// Fetches past the end of the program read the HALT pad word, matching the
// hardware's instruction-memory initialization.
func NewSimulator(program []uint32, opts ...SimulatorOption) *Simulator {
	regFile := &RegFile{}

	s := &Simulator{
		program:    program,
		regFile:    regFile,
		memory:     NewMemory(),
		vectorUnit: NewVectorUnit(regFile),
		tensorUnit: NewTensorUnit(regFile),
		latencies:  latency.NewTable(),
		maxCycles:  DefaultMaxCycles,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// RegFile returns the simulator's register file.
func (s *Simulator) RegFile() *RegFile {
	return s.regFile
}

// Memory returns the simulator's data memory.
func (s *Simulator) Memory() *Memory {
	return s.memory
}

// Cycle returns the current cycle count.
func (s *Simulator) Cycle() uint64 {
	return s.cycle
}

// PC returns the current program counter (a word index).
func (s *Simulator) PC() uint64 {
	return s.pc
}

// fetch reads the instruction word at the program counter.
func (s *Simulator) fetch() uint32 {
	if s.pc < uint64(len(s.program)) {
		return s.program[s.pc]
	}
	return insts.HaltWord
}

// Step advances the simulation by one cycle. It returns true when the
// program has halted. A returned error is fatal; the simulator state at
// the point of failure remains inspectable.
func (s *Simulator) Step() (halted bool, err error) {
	s.cycle++

	// A stalling instruction holds the program counter; the cycle still
	// elapses.
	if s.busy > 0 {
		s.busy--
		s.tracef("[cycle %4d] stalled, %d stall cycle(s) left\n",
			s.cycle, s.busy)
		return false, nil
	}

	word := s.fetch()
	f := insts.Decode(word)
	s.tracef("[cycle %4d] pc=%03d  %s\n", s.cycle, s.pc, insts.Disassemble(word))

	switch f.Opcode {
	case insts.OpVADD:
		s.vectorUnit.VADD(f.Rd, f.Rs1, f.Rs2)
	case insts.OpVSUB:
		s.vectorUnit.VSUB(f.Rd, f.Rs1, f.Rs2)
	case insts.OpRELU:
		s.vectorUnit.RELU(f.Rd, f.Rs1)
	case insts.OpLD:
		value, err := s.memory.Read64(s.regFile.ReadReg(f.Rs1))
		if err != nil {
			return false, fmt.Errorf("pc=%d: %w", s.pc, err)
		}
		s.regFile.WriteReg(f.Rd, value)
	case insts.OpST:
		err := s.memory.Write64(s.regFile.ReadReg(f.Rs1), s.regFile.ReadReg(f.Rs2))
		if err != nil {
			return false, fmt.Errorf("pc=%d: %w", s.pc, err)
		}
	case insts.OpVMUL:
		s.tensorUnit.VMUL(f.Rd, f.Rs1, f.Rs2)
	case insts.OpFMAC:
		s.tensorUnit.FMAC(f.Rd, f.Rs1, f.Rs2)
	case insts.OpHALT:
		s.cycle += s.latencies.StallCycles(insts.OpHALT)
		return true, nil
	default:
		return false, fmt.Errorf("pc=%d: unknown opcode %#x in word %08X",
			s.pc, uint8(f.Opcode), word)
	}

	// Every opcode owes its configured stall cycles; under the default
	// table only the tensor unit stalls.
	s.busy = s.latencies.StallCycles(f.Opcode)
	s.pc++
	return false, nil
}

// Run executes the program until HALT, the cycle bound, or a fault.
// A non-terminating program is reported as StatusMaxCycles, distinct from
// normal completion. Faults additionally return a non-nil error.
func (s *Simulator) Run() (RunResult, error) {
	for {
		if s.maxCycles > 0 && s.cycle >= s.maxCycles {
			return RunResult{Status: StatusMaxCycles, Cycles: s.cycle},
				nil
		}

		halted, err := s.Step()
		if err != nil {
			return RunResult{Status: StatusFault, Cycles: s.cycle}, err
		}
		if halted {
			s.tracef("[cycle %4d] HALT, %d cycle(s) total\n", s.cycle, s.cycle)
			return RunResult{Status: StatusHalted, Cycles: s.cycle}, nil
		}
	}
}

// DumpRegs writes the register file contents to w, one register per line.
func (s *Simulator) DumpRegs(w io.Writer) {
	for i, v := range s.regFile.R {
		fmt.Fprintf(w, "r%-2d = 0x%016X  int16:%v\n", i, v, UnpackInt16(v))
	}
}

func (s *Simulator) tracef(format string, args ...interface{}) {
	if s.trace != nil {
		fmt.Fprintf(s.trace, format, args...)
	}
}
