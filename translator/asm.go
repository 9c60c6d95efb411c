package translator

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/coronado2/ee533-gpu/insts"
)

// Hand-written assembly syntax (case-insensitive, '#' or ';' comments):
//
//	VADD  rd, rs1, rs2
//	VSUB  rd, rs1, rs2
//	VMUL  rd, rs1, rs2
//	FMAC  rd, rs1, rs2    ; rd is also the accumulator
//	RELU  rd, rs1
//	LD    rd, [rs1]
//	ST    [rs1], rs2
//	HALT

// asmRule pairs a line pattern with an instruction builder. Rules are
// tried in order; the first match wins.
type asmRule struct {
	pattern *regexp.Regexp
	build   func(m []string) (insts.Instruction, error)
}

var asmRules = []asmRule{
	{
		regexp.MustCompile(`(?i)^HALT\b`),
		func(m []string) (insts.Instruction, error) {
			return insts.Instruction{Op: insts.OpHALT}, nil
		},
	},
	{
		regexp.MustCompile(`(?i)^LD\s+r(\d+)\s*,\s*\[\s*r(\d+)\s*\]`),
		func(m []string) (insts.Instruction, error) {
			rd, err := asmReg(m[1])
			if err != nil {
				return insts.Instruction{}, err
			}
			rs1, err := asmReg(m[2])
			if err != nil {
				return insts.Instruction{}, err
			}
			return insts.Instruction{Op: insts.OpLD, Rd: rd, Rs1: rs1}, nil
		},
	},
	{
		regexp.MustCompile(`(?i)^ST\s+\[\s*r(\d+)\s*\]\s*,\s*r(\d+)`),
		func(m []string) (insts.Instruction, error) {
			rs1, err := asmReg(m[1])
			if err != nil {
				return insts.Instruction{}, err
			}
			rs2, err := asmReg(m[2])
			if err != nil {
				return insts.Instruction{}, err
			}
			return insts.Instruction{Op: insts.OpST, Rs1: rs1, Rs2: rs2}, nil
		},
	},
	{
		regexp.MustCompile(`(?i)^RELU\s+r(\d+)\s*,\s*r(\d+)`),
		func(m []string) (insts.Instruction, error) {
			rd, err := asmReg(m[1])
			if err != nil {
				return insts.Instruction{}, err
			}
			rs1, err := asmReg(m[2])
			if err != nil {
				return insts.Instruction{}, err
			}
			return insts.Instruction{Op: insts.OpRELU, Rd: rd, Rs1: rs1}, nil
		},
	},
	{
		regexp.MustCompile(`(?i)^(\w+)\s+r(\d+)\s*,\s*r(\d+)\s*,\s*r(\d+)`),
		func(m []string) (insts.Instruction, error) {
			op, ok := insts.LookupMnemonic(strings.ToUpper(m[1]))
			if !ok {
				return insts.Instruction{}, fmt.Errorf("unknown mnemonic %q", m[1])
			}
			rd, err := asmReg(m[2])
			if err != nil {
				return insts.Instruction{}, err
			}
			rs1, err := asmReg(m[3])
			if err != nil {
				return insts.Instruction{}, err
			}
			rs2, err := asmReg(m[4])
			if err != nil {
				return insts.Instruction{}, err
			}
			return insts.Instruction{Op: op, Rd: rd, Rs1: rs1, Rs2: rs2}, nil
		},
	},
}

var asmComment = regexp.MustCompile(`[#;].*`)

// asmReg parses a literal register index, which must already be in 0-15.
func asmReg(digits string) (uint8, error) {
	n, err := strconv.Atoi(digits)
	if err != nil || n >= insts.NumRegs {
		return 0, fmt.Errorf("register r%s out of range (r0-r%d)",
			digits, insts.NumRegs-1)
	}
	return uint8(n), nil
}

// ParseAsm parses hand-written assembly. Unrecognized lines are recorded
// by line number and skipped; they do not abort translation.
func ParseAsm(text string) ([]insts.Instruction, []Diagnostic) {
	var program []insts.Instruction
	var diags []Diagnostic

	for lineno, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(asmComment.ReplaceAllString(raw, ""))
		if line == "" {
			continue
		}

		matched := false
		for _, rule := range asmRules {
			m := rule.pattern.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			matched = true
			inst, err := rule.build(m)
			if err != nil {
				diags = append(diags, Diagnostic{
					Line:    lineno + 1,
					Message: fmt.Sprintf("%v: %s", err, line),
				})
				break
			}
			program = append(program, inst)
			break
		}
		if !matched {
			diags = append(diags, Diagnostic{
				Line:    lineno + 1,
				Message: "unrecognised: " + line,
			})
		}
	}

	return program, diags
}
