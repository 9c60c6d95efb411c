package insts

import "fmt"

// Field bit positions within the 32-bit word.
const (
	opcodeShift = 28
	dtypeShift  = 24
	rdShift     = 20
	rs1Shift    = 16
	rs2Shift    = 12

	fieldMask = 0xF
)

// Fields holds the unpacked fields of one instruction word.
type Fields struct {
	Opcode Op
	DType  DType
	Rd     uint8
	Rs1    uint8
	Rs2    uint8
}

// Encode packs one 32-bit instruction word. Bits [11:0] are always zero.
// A field outside 0-15 is a caller-side programming error and panics.
func Encode(opcode Op, dtype DType, rd, rs1, rs2 uint8) uint32 {
	checkField("opcode", uint8(opcode))
	checkField("dtype", uint8(dtype))
	checkField("rd", rd)
	checkField("rs1", rs1)
	checkField("rs2", rs2)

	return uint32(opcode)<<opcodeShift |
		uint32(dtype)<<dtypeShift |
		uint32(rd)<<rdShift |
		uint32(rs1)<<rs1Shift |
		uint32(rs2)<<rs2Shift
}

func checkField(name string, v uint8) {
	if v > fieldMask {
		panic(fmt.Sprintf("insts: %s out of range: %#x", name, v))
	}
}

// Decode unpacks a 32-bit instruction word. It is total over all inputs:
// unknown opcodes decode to their raw numeric value rather than failing.
func Decode(word uint32) Fields {
	return Fields{
		Opcode: Op(word >> opcodeShift & fieldMask),
		DType:  DType(word >> dtypeShift & fieldMask),
		Rd:     uint8(word >> rdShift & fieldMask),
		Rs1:    uint8(word >> rs1Shift & fieldMask),
		Rs2:    uint8(word >> rs2Shift & fieldMask),
	}
}

// NewWord builds an instruction word from a mnemonic string, looking up
// the mnemonic's natural dtype from the opcode table.
func NewWord(mnemonic string, rd, rs1, rs2 uint8) (uint32, error) {
	op, ok := LookupMnemonic(mnemonic)
	if !ok {
		return 0, fmt.Errorf("unknown mnemonic: %q", mnemonic)
	}
	return Encode(op, op.NaturalDType(), rd, rs1, rs2), nil
}

// Assemble encodes a list of instruction records into instruction words.
func Assemble(program []Instruction) []uint32 {
	words := make([]uint32, len(program))
	for i, inst := range program {
		words[i] = Encode(inst.Op, inst.Op.NaturalDType(), inst.Rd, inst.Rs1, inst.Rs2)
	}
	return words
}
