// Package insts defines the accelerator's 32-bit instruction set.
//
// The encoding matches the hardware control unit exactly:
//
//	Bits [31:28]  opcode  (4 bits)
//	Bits [27:24]  dtype   (4 bits)  0 = INT16, 1 = BF16
//	Bits [23:20]  rd      (4 bits)  destination register
//	Bits [19:16]  rs1     (4 bits)  source register 1 (also LD/ST base address)
//	Bits [15:12]  rs2     (4 bits)  source register 2 (also ST write data)
//	Bits [11: 0]  reserved, always zero
//
// Usage:
//
//	word := insts.Encode(insts.OpVADD, insts.DTypeInt16, 2, 0, 1)
//	f := insts.Decode(word)
//	fmt.Println(insts.Disassemble(word)) // "VADD     r2, r0, r1"
package insts

import "fmt"

// Op is a 4-bit opcode value.
type Op uint8

// Opcodes as dispatched by the hardware core.
const (
	OpVADD Op = 0x0 // packed int16 add        rd = rs1 + rs2
	OpVSUB Op = 0x1 // packed int16 subtract   rd = rs1 - rs2
	OpVMUL Op = 0x2 // packed bf16 multiply    rd = rs1 * rs2   (tensor unit)
	OpFMAC Op = 0x3 // packed bf16 fused MAC   rd = rs1*rs2 + rd (tensor unit)
	OpRELU Op = 0x4 // packed int16 ReLU       rd = max(0, rs1)
	OpLD   Op = 0x5 // load 64-bit word        rd = mem[rs1]
	OpST   Op = 0x6 // store 64-bit word       mem[rs1] = rs2
	OpHALT Op = 0xF // stop execution
)

// DType is the 4-bit data-type field.
type DType uint8

// Data types. LD/ST carry DTypeInt16 but the hardware ignores the field.
const (
	DTypeInt16 DType = 0x0
	DTypeBF16  DType = 0x1
)

// Hardware geometry.
const (
	NumRegs   = 16  // r0 - r15, 64 bits each
	IMemDepth = 256 // instruction memory words
	DMemWords = 512 // data BRAM words (64-bit each)

	// HaltWord is the encoded HALT instruction, also used to pad unused
	// instruction memory when producing a load image.
	HaltWord uint32 = 0xF0000000
)

// opInfo describes one opcode table entry.
type opInfo struct {
	mnemonic string
	dtype    DType
}

// opTable is the closed opcode table. It is set once at init and never
// mutated; both the encoder and the translator share it.
var opTable = map[Op]opInfo{
	OpVADD: {"VADD", DTypeInt16},
	OpVSUB: {"VSUB", DTypeInt16},
	OpVMUL: {"VMUL", DTypeBF16},
	OpFMAC: {"FMAC", DTypeBF16},
	OpRELU: {"RELU", DTypeInt16},
	OpLD:   {"LD", DTypeInt16},
	OpST:   {"ST", DTypeInt16},
	OpHALT: {"HALT", DTypeInt16},
}

var mnemonicTable = func() map[string]Op {
	m := make(map[string]Op, len(opTable))
	for op, info := range opTable {
		m[info.mnemonic] = op
	}
	return m
}()

// Mnemonic returns the mnemonic for an opcode, or "OP<hex>" for values
// outside the table so stray words remain inspectable.
func (op Op) Mnemonic() string {
	if info, ok := opTable[op]; ok {
		return info.mnemonic
	}
	return fmt.Sprintf("OP%X", uint8(op))
}

// NaturalDType returns the opcode's natural data type.
// Unknown opcodes report DTypeInt16.
func (op Op) NaturalDType() DType {
	return opTable[op].dtype
}

// Known reports whether op appears in the opcode table.
func (op Op) Known() bool {
	_, ok := opTable[op]
	return ok
}

// LookupMnemonic resolves a mnemonic string to its opcode.
func LookupMnemonic(mnemonic string) (Op, bool) {
	op, ok := mnemonicTable[mnemonic]
	return op, ok
}

// Instruction is the not-yet-encoded record form produced by the
// front-end translator and consumed by Assemble. Rd and Rs2 are zero for
// instructions that do not reference them.
type Instruction struct {
	Op  Op
	Rd  uint8
	Rs1 uint8
	Rs2 uint8
}

// String renders the record in assembly-like form for diagnostics.
func (i Instruction) String() string {
	switch i.Op {
	case OpHALT:
		return "HALT"
	case OpLD:
		return fmt.Sprintf("LD r%d, [r%d]", i.Rd, i.Rs1)
	case OpST:
		return fmt.Sprintf("ST [r%d], r%d", i.Rs1, i.Rs2)
	case OpRELU:
		return fmt.Sprintf("RELU r%d, r%d", i.Rd, i.Rs1)
	default:
		return fmt.Sprintf("%s r%d, r%d, r%d", i.Op.Mnemonic(), i.Rd, i.Rs1, i.Rs2)
	}
}
