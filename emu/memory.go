package emu

import (
	"fmt"

	"github.com/coronado2/ee533-gpu/insts"
)

// Memory represents the accelerator's data BRAM: 512 words of 64 bits.
// Instructions supply byte addresses; the hardware indexes the BRAM with
// the byte address divided by 8.
type Memory struct {
	words [insts.DMemWords]uint64
}

// NewMemory creates a zeroed data memory.
func NewMemory() *Memory {
	return &Memory{}
}

// Read64 reads the 64-bit word addressed by byte address addr.
func (m *Memory) Read64(addr uint64) (uint64, error) {
	index := addr / 8
	if index >= insts.DMemWords {
		return 0, fmt.Errorf(
			"data memory read out of range: byte address %d (word index %d, depth %d)",
			addr, index, insts.DMemWords)
	}
	return m.words[index], nil
}

// Write64 writes a 64-bit word at byte address addr.
func (m *Memory) Write64(addr uint64, value uint64) error {
	index := addr / 8
	if index >= insts.DMemWords {
		return fmt.Errorf(
			"data memory write out of range: byte address %d (word index %d, depth %d)",
			addr, index, insts.DMemWords)
	}
	m.words[index] = value
	return nil
}

// Word returns the word at a word index directly. Used by tests and by
// callers preloading kernel arguments. Unlike Read64, the index is a
// host-side value rather than guest state, so an out-of-range index is a
// programming error and panics.
func (m *Memory) Word(index int) uint64 {
	checkIndex(index)
	return m.words[index]
}

// SetWord stores a word at a word index directly. Panics on an
// out-of-range index, like Word.
func (m *Memory) SetWord(index int, value uint64) {
	checkIndex(index)
	m.words[index] = value
}

func checkIndex(index int) {
	if index < 0 || index >= insts.DMemWords {
		panic(fmt.Sprintf("memory word index %d out of range [0, %d)",
			index, insts.DMemWords))
	}
}
