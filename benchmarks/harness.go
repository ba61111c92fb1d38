package benchmarks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/core"
	"github.com/omarsaqr12/tomsim/timing/latency"
)

// Result holds the outcome of a single benchmark run.
type Result struct {
	// Name identifies the benchmark.
	Name string `json:"name"`

	// Description explains what the benchmark measures.
	Description string `json:"description"`

	// Cycles is the total simulated cycle count.
	Cycles uint64 `json:"cycles"`

	// Instructions is the number of completed instructions.
	Instructions uint64 `json:"instructions"`

	// IPC is instructions per cycle.
	IPC float64 `json:"ipc"`

	// Branches and Mispredicts count conditional branch resolutions.
	Branches    uint64 `json:"branches"`
	Mispredicts uint64 `json:"mispredicts"`

	// MispredictRate is Mispredicts over Branches, 0 without branches.
	MispredictRate float64 `json:"mispredict_rate"`

	// WallTime is the host time the simulation took.
	WallTime time.Duration `json:"wall_time_ns"`
}

// Run assembles, executes, and verifies one benchmark under the given
// hardware configuration.
func Run(b Benchmark, cfg *latency.Config) (*Result, error) {
	prog, err := insts.Assemble(b.Source, 0)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	if b.Setup != nil {
		b.Setup(regFile, memory)
	}

	engine, err := core.New(prog, cfg,
		core.WithRegFile(regFile), core.WithMemory(memory))
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}

	start := time.Now()
	report, err := engine.RunToCompletion()
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}
	wallTime := time.Since(start)

	if err := verify(b, report); err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", b.Name, err)
	}

	return &Result{
		Name:           b.Name,
		Description:    b.Description,
		Cycles:         report.Summary.TotalCycles,
		Instructions:   report.Summary.Completed,
		IPC:            report.Summary.IPC,
		Branches:       report.Summary.Branches,
		Mispredicts:    report.Summary.Mispredicts,
		MispredictRate: report.Summary.MispredictRate,
		WallTime:       wallTime,
	}, nil
}

func verify(b Benchmark, report *core.FinalReport) error {
	for reg, want := range b.ExpectedRegisters {
		if got := report.Registers[reg]; got != want {
			return fmt.Errorf("register R%d = %d, want %d", reg, got, want)
		}
	}
	for addr, want := range b.ExpectedMemory {
		if got := report.Memory[addr]; got != want {
			return fmt.Errorf("memory[%d] = %d, want %d", addr, got, want)
		}
	}
	return nil
}

// RunAll runs every benchmark and collects the results. It stops at
// the first failure.
func RunAll(benchmarks []Benchmark, cfg *latency.Config) ([]Result, error) {
	results := make([]Result, 0, len(benchmarks))
	for _, b := range benchmarks {
		result, err := Run(b, cfg)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// WriteResults emits the results as indented JSON.
func WriteResults(w io.Writer, results []Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
