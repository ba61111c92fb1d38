// Package main provides the entry point for tomsim.
// Tomsim is a cycle-by-cycle Tomasulo out-of-order execution simulator
// built on Akita hook infrastructure.
//
// For the full CLI, use: go run ./cmd/tomsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Tomsim - Tomasulo Out-of-Order Execution Simulator")
	fmt.Println("")
	fmt.Println("Usage: tomsim [options] <program.asm>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -config      Path to hardware configuration JSON file")
	fmt.Println("  -state       Path to initial state JSON file")
	fmt.Println("  -start-pc    Address of the first instruction")
	fmt.Println("  -max-cycles  Cycle budget before the run aborts")
	fmt.Println("  -emu         Run the functional emulator instead of the timing model")
	fmt.Println("  -trace       Print per-cycle pipeline events")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/tomsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/tomsim' instead.")
	}
}
