// Package core wires the Tomasulo scheduler, the metrics recorder,
// and the architectural state into a runnable engine with a simple
// step/run interface.
package core

import (
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/latency"
	"github.com/omarsaqr12/tomsim/timing/metrics"
	"github.com/omarsaqr12/tomsim/timing/station"
	"github.com/omarsaqr12/tomsim/timing/tomasulo"
)

// ErrCycleLimit is returned by RunToCompletion when the program does
// not drain within the cycle budget. Straight-line RET without a
// terminating branch loops forever; the budget turns that into an
// error instead of a hang.
var ErrCycleLimit = errors.New("core: cycle limit reached")

// DefaultMaxCycles is the cycle budget used when no option overrides it.
const DefaultMaxCycles uint64 = 1_000_000

// Engine is a single-core simulation instance. Create one per run;
// the architectural state it owns is mutated in place.
type Engine struct {
	prog    *insts.Program
	regFile *emu.RegFile
	memory  *emu.Memory

	sched    *tomasulo.Scheduler
	recorder *metrics.Recorder

	maxCycles uint64
	hooks     []sim.Hook
}

// Option configures an Engine.
type Option func(*Engine)

// WithRegFile seeds the engine with a pre-populated register file.
func WithRegFile(regFile *emu.RegFile) Option {
	return func(e *Engine) { e.regFile = regFile }
}

// WithMemory seeds the engine with a pre-populated memory.
func WithMemory(memory *emu.Memory) Option {
	return func(e *Engine) { e.memory = memory }
}

// WithMaxCycles overrides the cycle budget.
func WithMaxCycles(n uint64) Option {
	return func(e *Engine) { e.maxCycles = n }
}

// WithHook attaches an additional observer to the scheduler, beside
// the engine's own metrics recorder.
func WithHook(hook sim.Hook) Option {
	return func(e *Engine) { e.hooks = append(e.hooks, hook) }
}

// New creates an engine for the program under the given hardware
// configuration.
func New(prog *insts.Program, cfg *latency.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		prog:      prog,
		regFile:   &emu.RegFile{},
		memory:    emu.NewMemory(),
		maxCycles: DefaultMaxCycles,
	}
	for _, opt := range opts {
		opt(e)
	}

	sched, err := tomasulo.NewScheduler(prog, cfg, e.regFile, e.memory)
	if err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	e.sched = sched

	e.recorder = metrics.NewRecorder()
	sched.AcceptHook(e.recorder)
	for _, hook := range e.hooks {
		sched.AcceptHook(hook)
	}

	return e, nil
}

// CycleReport is the machine state after one stepped cycle.
type CycleReport struct {
	// Events lists what the cycle did.
	Events tomasulo.CycleEvents
	// Stations is the reservation-station view after the cycle.
	Stations []station.View
	// RegisterStatus names the pending producer per register.
	RegisterStatus [insts.NumRegs]string
	// Registers is the architectural register file after the cycle.
	Registers [insts.NumRegs]int16
}

// StepOneCycle advances the machine one cycle and reports the
// resulting state. Useful for interactive and trace-driven runs.
func (e *Engine) StepOneCycle() CycleReport {
	events := e.sched.Tick()
	return CycleReport{
		Events:         events,
		Stations:       e.sched.StationSnapshot(),
		RegisterStatus: e.sched.RegisterStatusSnapshot(),
		Registers:      e.regFile.Snapshot(),
	}
}

// Done reports whether the program has drained.
func (e *Engine) Done() bool {
	return e.sched.Done()
}

// Cycle returns the number of cycles simulated so far.
func (e *Engine) Cycle() uint64 {
	return e.sched.Cycle()
}

// Registers returns the current architectural register file.
func (e *Engine) Registers() [insts.NumRegs]int16 {
	return e.regFile.Snapshot()
}

// Memory returns the non-zero memory cells.
func (e *Engine) Memory() map[uint16]int16 {
	return e.memory.NonZero()
}

// Stations returns the current reservation-station view.
func (e *Engine) Stations() []station.View {
	return e.sched.StationSnapshot()
}

// RegisterStatus names the pending producer per register, "" when the
// register is not renamed.
func (e *Engine) RegisterStatus() [insts.NumRegs]string {
	return e.sched.RegisterStatusSnapshot()
}

// FinalReport is the result of a completed run.
type FinalReport struct {
	// RunID uniquely identifies the run.
	RunID string
	// Summary holds the run-level statistics.
	Summary metrics.Summary
	// Timing is the per-instruction cycle table, in issue order.
	Timing []metrics.Row
	// Registers is the final register file.
	Registers [insts.NumRegs]int16
	// Memory holds the final non-zero memory cells.
	Memory map[uint16]int16
}

// RunToCompletion steps the machine until the program drains, then
// folds the recorded metrics into a FinalReport. It returns
// ErrCycleLimit if the budget runs out first.
func (e *Engine) RunToCompletion() (*FinalReport, error) {
	for e.sched.Cycle() < e.maxCycles {
		if e.sched.Tick().Done {
			return &FinalReport{
				RunID:     xid.New().String(),
				Summary:   e.recorder.Summarize(e.sched.Cycle()),
				Timing:    e.recorder.Rows(),
				Registers: e.regFile.Snapshot(),
				Memory:    e.memory.NonZero(),
			}, nil
		}
	}
	return nil, fmt.Errorf("%w after %d cycles", ErrCycleLimit, e.sched.Cycle())
}
