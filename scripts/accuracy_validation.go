// Package main provides accuracy validation for the timing engine.
// It checks that the Tomasulo model's final architectural state matches
// the functional reference emulator on every microbenchmark.
package main

import (
	"fmt"
	"os"

	"github.com/omarsaqr12/tomsim/benchmarks"
	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/core"
	"github.com/omarsaqr12/tomsim/timing/latency"
)

func main() {
	cfg := latency.DefaultConfig()
	failed := 0

	for _, b := range benchmarks.GetMicrobenchmarks() {
		if err := validate(b, cfg); err != nil {
			fmt.Printf("FAIL  %-22s %v\n", b.Name, err)
			failed++
			continue
		}
		fmt.Printf("PASS  %s\n", b.Name)
	}

	if failed > 0 {
		fmt.Printf("\n%d benchmark(s) diverged\n", failed)
		os.Exit(1)
	}
	fmt.Println("\nTiming model matches the functional emulator on all benchmarks")
}

// validate runs one benchmark on both models and compares the final
// registers and non-zero memory.
func validate(b benchmarks.Benchmark, cfg *latency.Config) error {
	prog, err := insts.Assemble(b.Source, 0)
	if err != nil {
		return err
	}

	timingRegs, timingMem, err := runTiming(prog, b, cfg)
	if err != nil {
		return err
	}
	refRegs, refMem, err := runReference(prog, b)
	if err != nil {
		return err
	}

	for r := 0; r < insts.NumRegs; r++ {
		if timingRegs[r] != refRegs[r] {
			return fmt.Errorf("R%d: timing %d, reference %d",
				r, timingRegs[r], refRegs[r])
		}
	}
	if len(timingMem) != len(refMem) {
		return fmt.Errorf("memory: timing has %d non-zero cells, reference %d",
			len(timingMem), len(refMem))
	}
	for addr, want := range refMem {
		if got := timingMem[addr]; got != want {
			return fmt.Errorf("memory[%d]: timing %d, reference %d",
				addr, got, want)
		}
	}
	return nil
}

func runTiming(
	prog *insts.Program, b benchmarks.Benchmark, cfg *latency.Config,
) ([insts.NumRegs]int16, map[uint16]int16, error) {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	if b.Setup != nil {
		b.Setup(regFile, memory)
	}

	engine, err := core.New(prog, cfg,
		core.WithRegFile(regFile), core.WithMemory(memory))
	if err != nil {
		return [insts.NumRegs]int16{}, nil, err
	}

	report, err := engine.RunToCompletion()
	if err != nil {
		return [insts.NumRegs]int16{}, nil, err
	}
	return report.Registers, report.Memory, nil
}

func runReference(
	prog *insts.Program, b benchmarks.Benchmark,
) ([insts.NumRegs]int16, map[uint16]int16, error) {
	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	if b.Setup != nil {
		b.Setup(regFile, memory)
	}

	emulator := emu.NewEmulator(prog,
		emu.WithRegFile(regFile),
		emu.WithMemory(memory),
		emu.WithMaxInstructions(core.DefaultMaxCycles),
	)
	if err := emulator.Run(); err != nil {
		return [insts.NumRegs]int16{}, nil, err
	}
	return regFile.Snapshot(), memory.NonZero(), nil
}
