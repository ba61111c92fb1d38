// Package metrics collects per-instruction timing and run-level
// statistics by observing scheduler hooks.
package metrics

import (
	"fmt"
	"sort"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/timing/tomasulo"
)

// Row is the timing record of one dynamic instruction: the cycle it
// reached each pipeline step. A zero cycle means the step was not
// reached yet.
type Row struct {
	// Seq is the dynamic issue sequence number.
	Seq uint64
	// InstIndex is the static program-order index.
	InstIndex int
	// Text is the disassembled instruction.
	Text string
	// Station is the reservation station the instruction occupied.
	Station string

	IssueCycle     uint64
	ExecStartCycle uint64
	ExecEndCycle   uint64
	WriteCycle     uint64
}

// Summary holds run-level statistics.
type Summary struct {
	// TotalCycles is the number of cycles simulated.
	TotalCycles uint64
	// Issued is the number of instructions issued.
	Issued uint64
	// Completed is the number of instructions that wrote back.
	Completed uint64
	// IPC is Completed divided by TotalCycles.
	IPC float64
	// Branches is the number of conditional branches resolved.
	Branches uint64
	// Mispredicts is the number of taken branches. The front end
	// always predicts not taken.
	Mispredicts uint64
	// MispredictRate is Mispredicts divided by Branches, 0 when the
	// run had no conditional branches.
	MispredictRate float64
}

// Recorder is a scheduler hook that accumulates timing rows and
// branch statistics. Attach it with Scheduler.AcceptHook.
type Recorder struct {
	rows map[uint64]*Row

	issued      uint64
	completed   uint64
	branches    uint64
	mispredicts uint64

	lastWriteCycle uint64
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{rows: make(map[uint64]*Row)}
}

// Func dispatches on the hook position. It implements sim.Hook.
func (r *Recorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case tomasulo.HookPosIssue:
		ev := ctx.Item.(tomasulo.InstEvent)
		r.issued++
		r.rows[ev.Seq] = &Row{
			Seq:        ev.Seq,
			InstIndex:  ev.InstIndex,
			Text:       ev.Inst.String(),
			Station:    ev.Station.String(),
			IssueCycle: ev.Cycle,
		}
	case tomasulo.HookPosExecStart:
		ev := ctx.Item.(tomasulo.InstEvent)
		r.row(ev).ExecStartCycle = ev.Cycle
	case tomasulo.HookPosExecEnd:
		ev := ctx.Item.(tomasulo.InstEvent)
		r.row(ev).ExecEndCycle = ev.Cycle
	case tomasulo.HookPosWriteback:
		ev := ctx.Item.(tomasulo.InstEvent)
		if ev.Cycle == r.lastWriteCycle {
			panic(fmt.Sprintf(
				"metrics: two write-backs observed in cycle %d", ev.Cycle))
		}
		r.lastWriteCycle = ev.Cycle
		r.completed++
		r.row(ev).WriteCycle = ev.Cycle
	case tomasulo.HookPosBranchResolved:
		ev := ctx.Item.(tomasulo.BranchEvent)
		r.branches++
		if ev.Mispredicted() {
			r.mispredicts++
		}
	}
}

func (r *Recorder) row(ev tomasulo.InstEvent) *Row {
	row, ok := r.rows[ev.Seq]
	if !ok {
		row = &Row{Seq: ev.Seq, InstIndex: ev.InstIndex}
		r.rows[ev.Seq] = row
	}
	return row
}

// Rows returns the timing table in dynamic issue order.
func (r *Recorder) Rows() []Row {
	out := make([]Row, 0, len(r.rows))
	for _, row := range r.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}

// Summarize folds the accumulated counters into a Summary for a run
// of the given length.
func (r *Recorder) Summarize(totalCycles uint64) Summary {
	s := Summary{
		TotalCycles: totalCycles,
		Issued:      r.issued,
		Completed:   r.completed,
		Branches:    r.branches,
		Mispredicts: r.mispredicts,
	}
	if totalCycles > 0 {
		s.IPC = float64(r.completed) / float64(totalCycles)
	}
	if r.branches > 0 {
		s.MispredictRate = float64(r.mispredicts) / float64(r.branches)
	}
	return s
}
