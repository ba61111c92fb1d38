// Package main provides the entry point for tomsim.
// Tomsim is a cycle-by-cycle Tomasulo out-of-order execution simulator
// for a 16-bit single-issue processor.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/loader"
	"github.com/omarsaqr12/tomsim/timing/core"
	"github.com/omarsaqr12/tomsim/timing/latency"
	"github.com/omarsaqr12/tomsim/timing/tomasulo"
)

var (
	configPath = flag.String("config", "", "Path to hardware configuration JSON file")
	statePath  = flag.String("state", "", "Path to initial state JSON file")
	startPC    = flag.Int("start-pc", 0, "Address of the first instruction")
	maxCycles  = flag.Uint64("max-cycles", core.DefaultMaxCycles, "Cycle budget before the run aborts")
	funcMode   = flag.Bool("emu", false, "Run the functional emulator instead of the timing model")
	trace      = flag.Bool("trace", false, "Print per-cycle pipeline events")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: tomsim [options] <program.asm>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	programPath := flag.Arg(0)

	prog, err := loader.LoadProgram(programPath, *startPC)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	if *verbose {
		fmt.Printf("Loaded: %s\n", programPath)
		fmt.Printf("Instructions: %d\n", prog.Length())
		fmt.Printf("Start PC: %d\n", prog.StartPC())
	}

	regFile := &emu.RegFile{}
	memory := emu.NewMemory()
	if *statePath != "" {
		state, err := loader.LoadState(*statePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading state: %v\n", err)
			os.Exit(1)
		}
		state.Apply(regFile, memory)
	}

	if *funcMode {
		runEmulation(prog, regFile, memory)
		return
	}
	runTiming(prog, regFile, memory)
}

// runEmulation runs the program on the functional reference emulator.
func runEmulation(prog *insts.Program, regFile *emu.RegFile, memory *emu.Memory) {
	emulator := emu.NewEmulator(prog,
		emu.WithRegFile(regFile),
		emu.WithMemory(memory),
		emu.WithMaxInstructions(*maxCycles),
	)

	if err := emulator.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Emulation error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Instructions executed: %d\n", emulator.InstructionCount())
	printRegisters(regFile.Snapshot())
	printMemory(memory.NonZero())
}

// runTiming runs the program on the Tomasulo timing model.
func runTiming(prog *insts.Program, regFile *emu.RegFile, memory *emu.Memory) {
	cfg := latency.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	opts := []core.Option{
		core.WithRegFile(regFile),
		core.WithMemory(memory),
		core.WithMaxCycles(*maxCycles),
	}
	if *trace {
		opts = append(opts, core.WithHook(traceHook{w: os.Stdout}))
	}

	engine, err := core.New(prog, cfg, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	report, err := engine.RunToCompletion()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Simulation error: %v\n", err)
		os.Exit(1)
	}

	printReport(report)
}

func printReport(report *core.FinalReport) {
	s := report.Summary
	fmt.Printf("Run: %s\n", report.RunID)
	fmt.Printf("Cycles: %d\n", s.TotalCycles)
	fmt.Printf("Instructions: %d\n", s.Completed)
	fmt.Printf("IPC: %.3f\n", s.IPC)
	fmt.Printf("Branches: %d\n", s.Branches)
	fmt.Printf("Mispredicts: %d (%.1f%%)\n", s.Mispredicts, s.MispredictRate*100)

	fmt.Println("\nInstruction timing:")
	fmt.Printf("%5s %5s  %-24s %-8s %6s %6s %6s %6s\n",
		"seq", "idx", "instruction", "station", "issue", "start", "end", "write")
	for _, row := range report.Timing {
		fmt.Printf("%5d %5d  %-24s %-8s %6d %6d %6d %6d\n",
			row.Seq, row.InstIndex, row.Text, row.Station,
			row.IssueCycle, row.ExecStartCycle, row.ExecEndCycle, row.WriteCycle)
	}

	printRegisters(report.Registers)
	printMemory(report.Memory)
}

func printRegisters(registers [insts.NumRegs]int16) {
	fmt.Println("\nRegisters:")
	for r, v := range registers {
		if v != 0 || *verbose {
			fmt.Printf("  R%-2d = %d\n", r, v)
		}
	}
}

func printMemory(memory map[uint16]int16) {
	if len(memory) == 0 {
		return
	}
	fmt.Println("\nMemory (non-zero):")
	addrs := make([]int, 0, len(memory))
	for addr := range memory {
		addrs = append(addrs, int(addr))
	}
	sort.Ints(addrs)
	for _, addr := range addrs {
		fmt.Printf("  [%d] = %d\n", addr, memory[uint16(addr)])
	}
}

// traceHook prints one line per pipeline event.
type traceHook struct {
	w io.Writer
}

func (t traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case tomasulo.HookPosIssue:
		ev := ctx.Item.(tomasulo.InstEvent)
		fmt.Fprintf(t.w, "cycle %4d  issue      %-5s %s\n", ev.Cycle, ev.Station, ev.Inst)
	case tomasulo.HookPosExecStart:
		ev := ctx.Item.(tomasulo.InstEvent)
		fmt.Fprintf(t.w, "cycle %4d  exec-start %-5s %s\n", ev.Cycle, ev.Station, ev.Inst)
	case tomasulo.HookPosExecEnd:
		ev := ctx.Item.(tomasulo.InstEvent)
		fmt.Fprintf(t.w, "cycle %4d  exec-end   %-5s %s\n", ev.Cycle, ev.Station, ev.Inst)
	case tomasulo.HookPosWriteback:
		ev := ctx.Item.(tomasulo.InstEvent)
		fmt.Fprintf(t.w, "cycle %4d  writeback  %-5s %s\n", ev.Cycle, ev.Station, ev.Inst)
	case tomasulo.HookPosBranchResolved:
		ev := ctx.Item.(tomasulo.BranchEvent)
		outcome := "not taken"
		if ev.ActualTaken {
			outcome = "taken, mispredicted"
		}
		fmt.Fprintf(t.w, "cycle %4d  branch     [%d] %s\n", ev.Cycle, ev.InstIndex, outcome)
	}
}
