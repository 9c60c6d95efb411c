// Package translator converts PTX or hand-written assembly text into
// instruction records, assigning every symbolic register a physical slot
// in r0-r15.
//
// Three front-ends are provided:
//
//   - ParseAsm: fixed per-mnemonic assembly syntax with literal register
//     indices.
//   - PTXParser: a restricted PTX pattern set with first-seen virtual
//     register allocation.
//   - TranslateKernel: the full kernel translator, which follows
//     param -> cvta -> add.s64 address chains so each register maps back
//     to its kernel argument slot under the fixed calling convention.
package translator

import "fmt"

// Diagnostic records a non-fatal translation issue tied to a source line.
type Diagnostic struct {
	Line    int
	Message string
}

// String renders the diagnostic for display.
func (d Diagnostic) String() string {
	if d.Line > 0 {
		return fmt.Sprintf("line %d: %s", d.Line, d.Message)
	}
	return d.Message
}
