// Package main provides the entry point for the ee533-gpu toolchain.
// The toolchain translates PTX or hand-written assembly for a small
// fixed-function SIMD accelerator and simulates it cycle accurately.
//
// For the full CLI, use: go run ./cmd/gpuasm
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("ee533-gpu - SIMD accelerator compiler toolchain and simulator")
	fmt.Println("")
	fmt.Println("Usage: gpuasm [options] <kernel.ptx | kernel.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -o           Output base name (default: gpu_program)")
	fmt.Println("  -sim         Run the simulator after assembling")
	fmt.Println("  -max-cycles  Simulation cycle bound")
	fmt.Println("  -config      Path to timing configuration JSON file")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/gpuasm' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/gpuasm' instead.")
	}
}
