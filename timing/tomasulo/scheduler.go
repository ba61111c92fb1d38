// Package tomasulo implements the out-of-order execution engine:
// single issue per cycle, reservation stations per functional-unit
// class, register renaming through a register-status table, and a
// single-broadcast common data bus arbitrated by dynamic age.
package tomasulo

import (
	"errors"
	"fmt"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/latency"
	"github.com/omarsaqr12/tomsim/timing/station"
)

// regStatus is one entry of the register-status table. A busy entry
// names the station that will produce the register's next value.
// Entry 0 is never busy: register 0 reads as zero and ignores writes.
type regStatus struct {
	Busy     bool
	Producer station.ID
}

// Scheduler drives the Tomasulo pipeline cycle by cycle. It is
// hookable: observers attach with AcceptHook and receive InstEvent
// and BranchEvent payloads at the positions defined in this package.
type Scheduler struct {
	sim.HookableBase

	prog    *insts.Program
	cfg     *latency.Config
	pool    *station.Pool
	regFile *emu.RegFile
	memory  *emu.Memory

	regStatus [insts.NumRegs]regStatus

	cycle   uint64
	nextSeq uint64

	// issueIdx is the program-order index of the next instruction to
	// issue. Control-flow redirects rewrite it at write-back.
	issueIdx int

	// controlPending stalls issue while a BEQ, CALL, or RET is in
	// flight. The front end never issues past unresolved control flow.
	controlPending bool

	issued    uint64
	completed uint64

	// lastWriteback guards the single broadcast port.
	lastWriteback uint64
}

// NewScheduler builds a scheduler over the given program and hardware
// configuration. The register file and memory are the architectural
// state the run mutates in place.
func NewScheduler(
	prog *insts.Program,
	cfg *latency.Config,
	regFile *emu.RegFile,
	memory *emu.Memory,
) (*Scheduler, error) {
	if prog == nil || prog.Length() == 0 {
		return nil, errors.New("tomasulo: empty program")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("tomasulo: %w", err)
	}

	s := &Scheduler{
		prog:    prog,
		cfg:     cfg,
		pool:    station.NewPool(cfg),
		regFile: regFile,
		memory:  memory,
	}

	return s, nil
}

// Tick advances the machine by one cycle. The four pipeline steps run
// in a fixed order: write-back, execution completion, dispatch, issue.
// A station freed by write-back is allocatable by this cycle's issue,
// and an operand resolved by this cycle's broadcast lets its consumer
// dispatch this cycle.
func (s *Scheduler) Tick() CycleEvents {
	s.cycle++
	ev := CycleEvents{Cycle: s.cycle, IssuedSeq: -1}

	s.writeback(&ev)
	s.finishExecution(&ev)
	s.dispatch(&ev)
	s.issue(&ev)

	ev.Done = s.Done()

	return ev
}

// Done reports whether the run is complete: issue has run off the end
// of the program and every station has drained.
func (s *Scheduler) Done() bool {
	if s.controlPending {
		return false
	}
	if s.issueIdx >= 0 && s.issueIdx < s.prog.Length() {
		return false
	}
	return s.pool.Busy() == 0
}

// Cycle returns the number of cycles ticked so far.
func (s *Scheduler) Cycle() uint64 {
	return s.cycle
}

// InstructionsIssued returns the dynamic issue count.
func (s *Scheduler) InstructionsIssued() uint64 {
	return s.issued
}

// InstructionsCompleted returns the dynamic completion count.
func (s *Scheduler) InstructionsCompleted() uint64 {
	return s.completed
}

// StationSnapshot returns a presentation view of every station.
func (s *Scheduler) StationSnapshot() []station.View {
	return s.pool.Snapshot()
}

// RegisterStatusSnapshot returns, per register, the name of the
// pending producer station, or "" when the register is not renamed.
func (s *Scheduler) RegisterStatusSnapshot() [insts.NumRegs]string {
	var out [insts.NumRegs]string
	for r, st := range s.regStatus {
		if st.Busy {
			out[r] = st.Producer.String()
		}
	}
	return out
}

// writeback arbitrates the broadcast port: among stations waiting to
// write back, the oldest (lowest dynamic sequence number) wins. Stores
// commit to memory, control flow redirects the issue pointer, and
// value producers broadcast on the common data bus.
func (s *Scheduler) writeback(ev *CycleEvents) {
	var winner *station.Station
	s.pool.ForEach(func(st *station.Station) {
		if !st.Busy || st.Phase != station.PhaseWaitingWriteback {
			return
		}
		if winner == nil || st.Seq < winner.Seq {
			winner = st
		}
	})
	if winner == nil {
		return
	}

	if s.lastWriteback == s.cycle {
		panic("tomasulo: broadcast port claimed twice in one cycle")
	}
	s.lastWriteback = s.cycle

	inst := winner.Inst
	switch inst.Op {
	case insts.OpSTORE:
		s.memory.Write(winner.Addr, winner.Operands[0].Value)
	case insts.OpBEQ:
		taken := winner.Operands[0].Value == winner.Operands[1].Value
		if taken {
			s.redirect(int(inst.Imm))
		}
		s.controlPending = false
		s.InvokeHook(sim.HookCtx{
			Domain: s,
			Pos:    HookPosBranchResolved,
			Item: BranchEvent{
				Cycle:          s.cycle,
				Seq:            winner.Seq,
				InstIndex:      winner.InstIndex,
				PredictedTaken: false,
				ActualTaken:    taken,
			},
		})
	case insts.OpCALL:
		s.broadcast(winner)
		s.redirect(int(inst.Imm))
		s.controlPending = false
	case insts.OpRET:
		s.redirect(int(winner.Operands[0].Value))
		s.controlPending = false
	default:
		s.broadcast(winner)
	}

	s.completed++
	id := winner.ID
	ev.WroteBack = &id
	s.fire(HookPosWriteback, winner)
	s.pool.Free(id)
}

// broadcast puts a result on the common data bus: every station
// holding the producer's tag resolves, and the register-status table
// retires the rename if it still points at the producer. A younger
// writer may have reclaimed the register, in which case the broadcast
// skips the register file.
func (s *Scheduler) broadcast(st *station.Station) {
	s.pool.ObserveBroadcast(st.ID, st.Result)
	for r := 1; r < insts.NumRegs; r++ {
		if s.regStatus[r].Busy && s.regStatus[r].Producer == st.ID {
			s.regStatus[r] = regStatus{}
			s.regFile.Write(uint8(r), st.Result)
		}
	}
}

// redirect points issue at an absolute program counter. Targets
// outside the program leave the front end exhausted.
func (s *Scheduler) redirect(pc int) {
	s.issueIdx = pc - s.prog.StartPC()
}

// finishExecution moves stations whose latency countdown expired into
// the write-back queue and latches their results.
func (s *Scheduler) finishExecution(ev *CycleEvents) {
	s.pool.ForEach(func(st *station.Station) {
		if !st.Busy || st.Phase != station.PhaseExecuting {
			return
		}
		if st.ExecEndTarget > s.cycle {
			return
		}
		st.ExecEndCycle = s.cycle
		s.computeResult(st)
		st.Phase = station.PhaseWaitingWriteback
		ev.Finished = append(ev.Finished, st.ID)
		s.fire(HookPosExecEnd, st)
	})
}

// dispatch starts execution on every waiting station whose operands
// are resolved. Stations in different units execute concurrently.
// Single-cycle operations finish within their dispatch cycle and
// compete for the bus the next cycle.
func (s *Scheduler) dispatch(ev *CycleEvents) {
	s.pool.ForEach(func(st *station.Station) {
		if !st.Busy || st.Phase != station.PhaseWaitingOperands {
			return
		}
		if !st.OperandsReady() {
			return
		}

		st.Phase = station.PhaseExecuting
		st.ExecStartCycle = s.cycle
		lat := s.cfg.Latency(st.Inst.Op.Class())
		st.ExecEndTarget = s.cycle + lat - 1

		switch st.Inst.Op {
		case insts.OpLOAD:
			st.Addr = emu.EffectiveAddr(st.Operands[0].Value, st.Inst.Imm)
		case insts.OpSTORE:
			st.Addr = emu.EffectiveAddr(st.Operands[1].Value, st.Inst.Imm)
		}

		ev.Dispatched = append(ev.Dispatched, st.ID)
		s.fire(HookPosExecStart, st)

		if lat == 1 {
			st.ExecEndCycle = s.cycle
			s.computeResult(st)
			st.Phase = station.PhaseWaitingWriteback
			ev.Finished = append(ev.Finished, st.ID)
			s.fire(HookPosExecEnd, st)
		}
	})
}

// issue places the next program-order instruction into a free station
// of its class, renaming its destination and capturing its operands as
// values or producer tags. Issue stalls on unresolved control flow and
// on structural hazards.
func (s *Scheduler) issue(ev *CycleEvents) {
	if s.controlPending {
		return
	}
	if s.issueIdx < 0 || s.issueIdx >= s.prog.Length() {
		return
	}

	inst := s.prog.At(s.issueIdx)
	id, ok := s.pool.TryAllocate(inst.Op.Class())
	if !ok {
		return
	}

	st := s.pool.Get(id)
	st.Inst = inst
	st.InstIndex = inst.Index
	st.Seq = s.nextSeq
	st.IssuedCycle = s.cycle
	s.bindOperands(st)

	s.nextSeq++
	s.issued++
	s.issueIdx++
	if inst.Op.IsControlFlow() {
		s.controlPending = true
	}

	ev.IssuedSeq = int64(st.Seq)
	s.fire(HookPosIssue, st)
}

// bindOperands captures the instruction's sources into the station's
// value-or-tag slots and renames its destination. Sources are read
// before the destination is renamed, so an instruction reading its own
// destination sees the prior producer.
func (s *Scheduler) bindOperands(st *station.Station) {
	inst := st.Inst
	switch inst.Op {
	case insts.OpLOAD:
		s.bindReg(st, 0, inst.Ra)
		s.pool.BindOperand(st.ID, 1, 0)
		s.setDest(st, inst.Rd)
	case insts.OpSTORE:
		// Slot 0 carries the value to store, slot 1 the base address.
		s.bindReg(st, 0, inst.Rd)
		s.bindReg(st, 1, inst.Ra)
	case insts.OpBEQ:
		s.bindReg(st, 0, inst.Ra)
		s.bindReg(st, 1, inst.Rb)
	case insts.OpCALL:
		s.pool.BindOperand(st.ID, 0, 0)
		s.pool.BindOperand(st.ID, 1, 0)
		s.setDest(st, 1)
	case insts.OpRET:
		s.bindReg(st, 0, 1)
		s.pool.BindOperand(st.ID, 1, 0)
	default:
		s.bindReg(st, 0, inst.Ra)
		s.bindReg(st, 1, inst.Rb)
		s.setDest(st, inst.Rd)
	}
}

func (s *Scheduler) bindReg(st *station.Station, slot int, reg uint8) {
	if reg != 0 && s.regStatus[reg].Busy {
		s.pool.BindOperandTag(st.ID, slot, s.regStatus[reg].Producer)
		return
	}
	s.pool.BindOperand(st.ID, slot, s.regFile.Read(reg))
}

func (s *Scheduler) setDest(st *station.Station, reg uint8) {
	st.HasDest = true
	st.Dest = reg
	if reg != 0 {
		s.regStatus[reg] = regStatus{Busy: true, Producer: st.ID}
	}
}

func (s *Scheduler) computeResult(st *station.Station) {
	a, b := st.Operands[0].Value, st.Operands[1].Value
	switch st.Inst.Op {
	case insts.OpLOAD:
		st.Result = s.memory.Read(st.Addr)
	case insts.OpCALL:
		st.Result = int16(st.Inst.PC + 1)
	case insts.OpADD:
		st.Result = emu.Add(a, b)
	case insts.OpSUB:
		st.Result = emu.Sub(a, b)
	case insts.OpNOR:
		st.Result = emu.Nor(a, b)
	case insts.OpMUL:
		st.Result = emu.Mul(a, b)
	}
	st.ResultReady = true
}

func (s *Scheduler) fire(pos *sim.HookPos, st *station.Station) {
	s.InvokeHook(sim.HookCtx{
		Domain: s,
		Pos:    pos,
		Item: InstEvent{
			Cycle:     s.cycle,
			Seq:       st.Seq,
			InstIndex: st.InstIndex,
			Station:   st.ID,
			Inst:      st.Inst,
		},
	})
}
