package tomasulo

import (
	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/station"
)

// Hook positions fired by the scheduler. Observers register with
// AcceptHook and dispatch on ctx.Pos.
var (
	// HookPosIssue fires when an instruction claims a reservation station.
	HookPosIssue = &sim.HookPos{Name: "Issue"}

	// HookPosExecStart fires when a station begins execution.
	HookPosExecStart = &sim.HookPos{Name: "ExecStart"}

	// HookPosExecEnd fires when a station finishes its functional-unit
	// latency. Single-cycle operations fire ExecStart and ExecEnd in the
	// same cycle.
	HookPosExecEnd = &sim.HookPos{Name: "ExecEnd"}

	// HookPosWriteback fires when a station wins the broadcast port and
	// retires. At most one per cycle.
	HookPosWriteback = &sim.HookPos{Name: "Writeback"}

	// HookPosBranchResolved fires when a BEQ resolves, whether taken or
	// not. CALL and RET redirect unconditionally and do not report here.
	HookPosBranchResolved = &sim.HookPos{Name: "BranchResolved"}
)

// InstEvent is the hook payload for per-instruction positions.
type InstEvent struct {
	Cycle     uint64
	Seq       uint64
	InstIndex int
	Station   station.ID
	Inst      *insts.Instruction
}

// BranchEvent is the hook payload for HookPosBranchResolved. The
// front end always predicts not taken, so every taken branch is a
// misprediction.
type BranchEvent struct {
	Cycle          uint64
	Seq            uint64
	InstIndex      int
	PredictedTaken bool
	ActualTaken    bool
}

// Mispredicted reports whether the resolution disagreed with the
// static prediction.
func (e BranchEvent) Mispredicted() bool {
	return e.ActualTaken != e.PredictedTaken
}

// CycleEvents summarizes what one Tick did, for trace output and
// interactive stepping. Hook observers get the same information with
// richer payloads.
type CycleEvents struct {
	Cycle uint64

	// IssuedSeq is the dynamic sequence number issued this cycle, or -1
	// when issue stalled or the program is exhausted.
	IssuedSeq int64

	// Dispatched and Finished list the stations that entered and left
	// execution this cycle.
	Dispatched []station.ID
	Finished   []station.ID

	// WroteBack names the station that won the broadcast port, if any.
	WroteBack *station.ID

	Done bool
}
