// Package main provides the gpuasm CLI: it translates PTX or hand-written
// assembly into a load image and listing, and optionally simulates the
// result.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xyproto/env/v2"

	"github.com/coronado2/ee533-gpu/emu"
	"github.com/coronado2/ee533-gpu/insts"
	"github.com/coronado2/ee533-gpu/loader"
	"github.com/coronado2/ee533-gpu/timing/latency"
	"github.com/coronado2/ee533-gpu/translator"
)

var (
	output = flag.String("o", env.Str("GPUASM_OUT", "gpu_program"),
		"output base name")
	sim = flag.Bool("sim", false,
		"run the simulator after assembling")
	maxCycles = flag.Uint64("max-cycles", uint64(env.Int("GPUASM_MAX_CYCLES", emu.DefaultMaxCycles)),
		"simulation cycle bound")
	configPath = flag.String("config", env.Str("GPUASM_TIMING", ""),
		"path to timing configuration JSON file")
	verbose = flag.Bool("v", env.Bool("GPUASM_TRACE"),
		"verbose output (cycle trace when simulating)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: gpuasm [options] <kernel.ptx | kernel.asm>\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	path := flag.Arg(0)
	text, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %s: %v\n", path, err)
		os.Exit(1)
	}

	words, sections, err := translate(path, string(text))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error translating %s: %v\n", path, err)
		os.Exit(1)
	}

	if err := writeOutputs(words, sections); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing outputs: %v\n", err)
		os.Exit(1)
	}

	if *sim {
		if err := simulate(words); err != nil {
			fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
			os.Exit(1)
		}
	}
}

// translate picks a front-end by file extension.
func translate(path, text string) ([]uint32, []loader.Section, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".ptx":
		return translatePTX(text)
	case ".mem":
		words, err := loader.ReadMem(strings.NewReader(text))
		return words, nil, err
	default:
		program, diags := translator.ParseAsm(text)
		for _, d := range diags {
			fmt.Fprintf(os.Stderr, "  [ASM %s]\n", d)
		}
		return insts.Assemble(program), nil, nil
	}
}

func translatePTX(text string) ([]uint32, []loader.Section, error) {
	kernels := translator.ExtractKernels(text)

	if len(kernels) == 0 {
		// A bare instruction body with no entry directive: use the
		// first-seen register allocator.
		parser := translator.NewPTXParser()
		program, err := parser.Parse(text)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range parser.Diagnostics() {
			fmt.Fprintf(os.Stderr, "  [PTX %s]\n", d)
		}
		return insts.Assemble(program), nil, nil
	}

	var words []uint32
	var sections []loader.Section
	for _, k := range kernels {
		result, err := translator.TranslateKernel(text, k)
		if err != nil {
			return nil, nil, fmt.Errorf("kernel %s: %w", k.Name, err)
		}
		for _, d := range result.Diagnostics {
			fmt.Fprintf(os.Stderr, "  [%s %s]\n", k.Name, d)
		}
		if *verbose {
			fmt.Printf("  [%s] params: %v\n", k.Name, result.ParamRegs)
		}
		kw := insts.Assemble(result.Instructions)
		words = append(words, kw...)
		sections = append(sections, loader.Section{Name: k.Name, Count: len(kw)})
	}
	return words, sections, nil
}

func writeOutputs(words []uint32, sections []loader.Section) error {
	memPath := *output + ".mem"
	memFile, err := os.Create(memPath)
	if err != nil {
		return err
	}
	defer memFile.Close()
	if err := loader.WriteMem(memFile, words); err != nil {
		return err
	}

	lstPath := *output + ".lst"
	lstFile, err := os.Create(lstPath)
	if err != nil {
		return err
	}
	defer lstFile.Close()
	if err := loader.WriteListing(lstFile, words, sections); err != nil {
		return err
	}

	fmt.Printf("%d instruction(s): %s, %s\n", len(words), memPath, lstPath)
	return nil
}

func simulate(words []uint32) error {
	table := latency.NewTable()
	if *configPath != "" {
		config, err := latency.LoadConfig(*configPath)
		if err != nil {
			return err
		}
		if err := config.Validate(); err != nil {
			return err
		}
		table = latency.NewTableWithConfig(config)
	}

	opts := []emu.SimulatorOption{
		emu.WithMaxCycles(*maxCycles),
		emu.WithLatencyTable(table),
	}
	if *verbose {
		opts = append(opts, emu.WithTrace(os.Stdout))
	}

	s := emu.NewSimulator(words, opts...)
	result, err := s.Run()
	// The register dump is printed even on a fault; the machine state at
	// the failing instruction is what the user needs to see.
	fmt.Printf("status: %s, %d cycle(s)\n", result.Status, result.Cycles)
	s.DumpRegs(os.Stdout)
	return err
}
