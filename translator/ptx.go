package translator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/coronado2/ee533-gpu/insts"
)

// Supported PTX patterns, as emitted for the five kernel shapes:
//
//	add.s16   rd, rs1, rs2          ->  VADD rd, rs1, rs2
//	sub.s16   rd, rs1, rs2          ->  VSUB rd, rs1, rs2
//	max.s16   rd, rs1, 0            ->  RELU rd, rs1
//	mul.rn.bf16  rd, rs1, rs2       ->  VMUL rd, rs1, rs2
//	fma.rn.bf16  rd, rs1, rs2, acc  ->  FMAC rd, rs1, rs2
//	ld.global.*  rd, [base]         ->  LD rd, [base]
//	st.global.*  [base], rs2        ->  ST [base], rs2
//	ret                             ->  HALT
//
// Everything else PTX emits for these kernels (directives, address
// computation, type conversion, predication, barriers) carries no
// executable semantics here and is skipped silently.

// ptxSkip lists boilerplate patterns dropped before matching.
var ptxSkip = []*regexp.Regexp{
	regexp.MustCompile(`^\s*\.`),  // directives: .version, .reg, .param ...
	regexp.MustCompile(`^\s*//`),  // comments
	regexp.MustCompile(`^\s*\{`),  // open brace
	regexp.MustCompile(`^\s*\}`),  // close brace
	regexp.MustCompile(`\bversion\b`),
	regexp.MustCompile(`\btarget\b`),
	regexp.MustCompile(`\baddress_size\b`),
	regexp.MustCompile(`\.visible\b`),
	regexp.MustCompile(`\.entry\b`),
	regexp.MustCompile(`\bmov\.`),      // register moves / address computation
	regexp.MustCompile(`\bcvta\.`),     // convert address space
	regexp.MustCompile(`\bcvt\.`),      // type conversion
	regexp.MustCompile(`\bsetp\.`),     // set predicate
	regexp.MustCompile(`^\s*@`),        // predicated instructions
	regexp.MustCompile(`\bbra\b`),      // branch
	regexp.MustCompile(`\bbar\.sync\b`),
	regexp.MustCompile(`\bld\.param\b`),
	regexp.MustCompile(`\bshl\.`),       // shift left (index arithmetic)
	regexp.MustCompile(`\badd\.\s*s64\b`), // pointer arithmetic
	regexp.MustCompile(`\badd\.\s*u64\b`),
	regexp.MustCompile(`\bmul\.\s*wide\b`),
	regexp.MustCompile(`\bmul\.\s*lo\b`),
	regexp.MustCompile(`\band\.\s*b32\b`),
}

var (
	ptxComment = regexp.MustCompile(`//.*`)

	ptxRet  = regexp.MustCompile(`^ret\b`)
	ptxLd   = regexp.MustCompile(`^ld\.global\.\w+\s+(%\w+)\s*,\s*\[(%\w+)\s*\]`)
	ptxSt   = regexp.MustCompile(`^st\.global\.\w+\s+\[(%\w+)\s*\]\s*,\s*(%\w+)`)
	ptxAdd  = regexp.MustCompile(`^add\.[su]16\s+(%\w+)\s*,\s*(%\w+)\s*,\s*(%\w+)`)
	ptxSub  = regexp.MustCompile(`^sub\.[su]16\s+(%\w+)\s*,\s*(%\w+)\s*,\s*(%\w+)`)
	ptxMul  = regexp.MustCompile(`^mul\.rn\.bf16\s+(%\w+)\s*,\s*(%\w+)\s*,\s*(%\w+)`)
	ptxFma  = regexp.MustCompile(`^fma\.rn\.bf16\s+(%\w+)\s*,\s*(%\w+)\s*,\s*(%\w+)\s*,\s*(%\w+)`)
	ptxRelu = regexp.MustCompile(`^max\.[su]16\s+(%\w+)\s*,\s*(%\w+)\s*,\s*0\b`)
)

// PTXParser translates restricted PTX into instruction records, assigning
// physical registers in first-seen order. A parser is single-use per
// translation unit: Parse resets its register map.
type PTXParser struct {
	regMap map[string]uint8
	diags  []Diagnostic
}

// NewPTXParser creates a PTX parser.
func NewPTXParser() *PTXParser {
	return &PTXParser{}
}

// RegMap returns the virtual-to-physical register mapping after the last
// Parse call.
func (p *PTXParser) RegMap() map[string]uint8 {
	m := make(map[string]uint8, len(p.regMap))
	for k, v := range p.regMap {
		m[k] = v
	}
	return m
}

// Diagnostics returns the skipped-line and warning diagnostics recorded
// by the last Parse call.
func (p *PTXParser) Diagnostics() []Diagnostic {
	return p.diags
}

// reg maps a PTX register name to a physical register in first-seen
// order. More than 16 distinct names is a fatal translation failure.
func (p *PTXParser) reg(name string) (uint8, error) {
	if n, ok := p.regMap[name]; ok {
		return n, nil
	}
	n := len(p.regMap)
	if n >= insts.NumRegs {
		return 0, fmt.Errorf(
			"kernel uses more than %d registers; cannot map %q: split into multiple kernels or reuse registers",
			insts.NumRegs, name)
	}
	p.regMap[name] = uint8(n)
	return uint8(n), nil
}

func shouldSkip(line string) bool {
	for _, pat := range ptxSkip {
		if pat.MatchString(line) {
			return true
		}
	}
	return false
}

// Parse translates PTX source text into instruction records.
// Unrecognized lines are recorded by line number and skipped; running out
// of physical registers aborts with an error naming the register.
func (p *PTXParser) Parse(text string) ([]insts.Instruction, error) {
	p.regMap = make(map[string]uint8)
	p.diags = nil

	var program []insts.Instruction

	for lineno, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(ptxComment.ReplaceAllString(raw, ""))
		line = strings.TrimSpace(strings.TrimSuffix(line, ";"))
		if line == "" || shouldSkip(line) {
			continue
		}

		inst, matched, err := p.parseLine(line, lineno+1)
		if err != nil {
			return nil, err
		}
		if matched {
			program = append(program, inst)
		} else {
			p.diags = append(p.diags, Diagnostic{
				Line:    lineno + 1,
				Message: "unrecognised: " + line,
			})
		}
	}

	return program, nil
}

func (p *PTXParser) parseLine(line string, lineno int) (insts.Instruction, bool, error) {
	none := insts.Instruction{}

	if ptxRet.MatchString(line) {
		return insts.Instruction{Op: insts.OpHALT}, true, nil
	}

	if m := ptxLd.FindStringSubmatch(line); m != nil {
		rd, err := p.reg(m[1])
		if err != nil {
			return none, false, err
		}
		rs1, err := p.reg(m[2])
		if err != nil {
			return none, false, err
		}
		return insts.Instruction{Op: insts.OpLD, Rd: rd, Rs1: rs1}, true, nil
	}

	if m := ptxSt.FindStringSubmatch(line); m != nil {
		rs1, err := p.reg(m[1])
		if err != nil {
			return none, false, err
		}
		rs2, err := p.reg(m[2])
		if err != nil {
			return none, false, err
		}
		return insts.Instruction{Op: insts.OpST, Rs1: rs1, Rs2: rs2}, true, nil
	}

	type triple struct {
		pat *regexp.Regexp
		op  insts.Op
	}
	for _, t := range []triple{
		{ptxAdd, insts.OpVADD},
		{ptxSub, insts.OpVSUB},
		{ptxMul, insts.OpVMUL},
	} {
		m := t.pat.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		rd, err := p.reg(m[1])
		if err != nil {
			return none, false, err
		}
		rs1, err := p.reg(m[2])
		if err != nil {
			return none, false, err
		}
		rs2, err := p.reg(m[3])
		if err != nil {
			return none, false, err
		}
		return insts.Instruction{Op: t.op, Rd: rd, Rs1: rs1, Rs2: rs2}, true, nil
	}

	if m := ptxFma.FindStringSubmatch(line); m != nil {
		// PTX: rd = rs1*rs2 + acc. The hardware always reads rd as the
		// accumulator, so acc is folded into rd; if the names differ the
		// numeric result changes and the caller must be told.
		if m[4] != m[1] {
			p.diags = append(p.diags, Diagnostic{
				Line: lineno,
				Message: fmt.Sprintf(
					"FMAC: accumulator %s mapped to rd=%s; hardware reads rd as accumulator, initialise rd before issuing FMAC",
					m[4], m[1]),
			})
		}
		rd, err := p.reg(m[1])
		if err != nil {
			return none, false, err
		}
		rs1, err := p.reg(m[2])
		if err != nil {
			return none, false, err
		}
		rs2, err := p.reg(m[3])
		if err != nil {
			return none, false, err
		}
		return insts.Instruction{Op: insts.OpFMAC, Rd: rd, Rs1: rs1, Rs2: rs2}, true, nil
	}

	if m := ptxRelu.FindStringSubmatch(line); m != nil {
		rd, err := p.reg(m[1])
		if err != nil {
			return none, false, err
		}
		rs1, err := p.reg(m[2])
		if err != nil {
			return none, false, err
		}
		return insts.Instruction{Op: insts.OpRELU, Rd: rd, Rs1: rs1}, true, nil
	}

	return none, false, nil
}
