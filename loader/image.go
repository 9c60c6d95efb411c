// Package loader moves assembled programs between instruction words and
// the hardware's memory-initialization format: a fixed-depth file of one
// 8-digit uppercase hex word per line, consumed by $readmemh.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coronado2/ee533-gpu/insts"
)

// Section names a contiguous run of instructions in a listing, typically
// one kernel.
type Section struct {
	Name  string
	Count int
}

// WriteMem serializes a program as a load image: each word as 8 uppercase
// hex digits, one per line, padded to the instruction memory depth with
// the HALT sentinel. The format must match the hardware byte for byte.
func WriteMem(w io.Writer, words []uint32) error {
	if len(words) > insts.IMemDepth {
		return fmt.Errorf("program too large: %d words > %d",
			len(words), insts.IMemDepth)
	}
	bw := bufio.NewWriter(w)
	for _, word := range words {
		fmt.Fprintf(bw, "%08X\n", word)
	}
	for i := len(words); i < insts.IMemDepth; i++ {
		fmt.Fprintf(bw, "%08X\n", insts.HaltWord)
	}
	return bw.Flush()
}

// ReadMem parses a load image back into instruction words. Blank lines
// and // comments are tolerated, matching what $readmemh accepts.
func ReadMem(r io.Reader) ([]uint32, error) {
	var words []uint32
	scanner := bufio.NewScanner(r)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "//"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" {
			continue
		}
		word, err := strconv.ParseUint(line, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad hex word %q: %w", lineno, line, err)
		}
		if len(words) >= insts.IMemDepth {
			return nil, fmt.Errorf("line %d: image exceeds %d words",
				lineno, insts.IMemDepth)
		}
		words = append(words, uint32(word))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read load image: %w", err)
	}
	return words, nil
}

// WriteListing emits a human-readable listing: one disassembled line per
// instruction, annotated with its zero-padded index. Sections, when
// given, segment the listing by kernel name; their counts must cover the
// word list exactly.
func WriteListing(w io.Writer, words []uint32, sections []Section) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "// addr  word      disassembly\n")

	if len(sections) == 0 {
		sections = []Section{{Name: "", Count: len(words)}}
	}

	idx := 0
	for _, sec := range sections {
		if sec.Name != "" {
			fmt.Fprintf(bw, "\n// -- %s --\n", sec.Name)
		}
		for i := 0; i < sec.Count; i++ {
			if idx >= len(words) {
				return fmt.Errorf("section %q overruns program (%d words)",
					sec.Name, len(words))
			}
			fmt.Fprintf(bw, "[%03d]  %08X  %s\n",
				idx, words[idx], insts.Disassemble(words[idx]))
			idx++
		}
	}
	return bw.Flush()
}
