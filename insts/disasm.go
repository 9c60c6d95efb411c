package insts

import "fmt"

// Disassemble renders one instruction word in human-readable form.
// Unknown opcodes render as a numbered placeholder rather than failing.
func Disassemble(word uint32) string {
	f := Decode(word)

	switch f.Opcode {
	case OpHALT:
		return "HALT"
	case OpLD:
		return fmt.Sprintf("LD       r%d, [r%d]", f.Rd, f.Rs1)
	case OpST:
		return fmt.Sprintf("ST       [r%d], r%d", f.Rs1, f.Rs2)
	case OpRELU:
		return fmt.Sprintf("RELU     r%d, r%d", f.Rd, f.Rs1)
	case OpFMAC:
		return fmt.Sprintf("FMAC     r%d, r%d, r%d   ; rd = rs1*rs2 + rd",
			f.Rd, f.Rs1, f.Rs2)
	default:
		return fmt.Sprintf("%-6s   r%d, r%d, r%d",
			f.Opcode.Mnemonic(), f.Rd, f.Rs1, f.Rs2)
	}
}
