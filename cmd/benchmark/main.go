// Command benchmark runs the tomsim microbenchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-json    Output results as JSON (default: human-readable)
//	-config  Path to hardware configuration JSON file
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Compare two hardware configurations
//	go run ./cmd/benchmark -config fast.json -json > fast.json.out
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/omarsaqr12/tomsim/benchmarks"
	"github.com/omarsaqr12/tomsim/timing/latency"
)

func main() {
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	configPath := flag.String("config", "", "Path to hardware configuration JSON file")
	flag.Parse()

	cfg := latency.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	results, err := benchmarks.RunAll(benchmarks.GetMicrobenchmarks(), cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Benchmark failed: %v\n", err)
		os.Exit(1)
	}

	if *jsonOutput {
		if err := benchmarks.WriteResults(os.Stdout, results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing results: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("Tomsim Microbenchmark Harness")
	fmt.Println("=============================")
	fmt.Println("")
	fmt.Printf("%-22s %8s %8s %6s %9s %11s\n",
		"benchmark", "cycles", "insts", "ipc", "branches", "mispredicts")
	for _, r := range results {
		fmt.Printf("%-22s %8d %8d %6.3f %9d %11d\n",
			r.Name, r.Cycles, r.Instructions, r.IPC, r.Branches, r.Mispredicts)
	}
}
