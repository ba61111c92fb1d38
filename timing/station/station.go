// Package station models the reservation-station pool: per
// functional-unit-class arenas of fixed capacity, operand value/tag
// tracking, and the common-data-bus broadcast fan-out.
package station

import (
	"fmt"

	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/latency"
)

// ID identifies a reservation station: its class plus its index within the
// class arena.
type ID struct {
	Class insts.Class
	Index int
}

// String renders the conventional station name, e.g. "MUL1" or "ADD3".
func (id ID) String() string {
	return fmt.Sprintf("%s%d", id.Class, id.Index+1)
}

// Phase is the execution phase of an occupied station.
type Phase uint8

// Station phases. A free station is in PhaseIdle; an occupied station moves
// WaitingOperands -> Executing -> WaitingWriteback and returns to idle when
// its result is written back.
const (
	PhaseIdle Phase = iota
	PhaseWaitingOperands
	PhaseExecuting
	PhaseWaitingWriteback
)

var phaseNames = [...]string{"Idle", "WaitingOperands", "Executing", "WaitingWriteback"}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// Operand is a value-or-tag field: either a resolved 16-bit value or a
// reference to the station that will produce it.
type Operand struct {
	// Ready discriminates the union: true means Value is authoritative,
	// false means the operand arrives on WaitingOn's broadcast.
	Ready     bool
	Value     int16
	WaitingOn ID
}

func (o Operand) String() string {
	if o.Ready {
		return fmt.Sprintf("%d", o.Value)
	}
	return o.WaitingOn.String()
}

// Station is one reservation-station slot.
type Station struct {
	ID   ID
	Busy bool

	// Inst is the occupying instruction; InstIndex is its program-order
	// index. Seq is the dynamic issue sequence number, used for write-back
	// arbitration (re-issued loop bodies get fresh numbers).
	Inst      *insts.Instruction
	InstIndex int
	Seq       uint64

	// Operands holds the two value-or-tag fields. Instructions with fewer
	// than two register sources leave the unused slots pre-resolved.
	Operands [2]Operand

	// HasDest and Dest describe the destination register, if any.
	HasDest bool
	Dest    uint8

	// Addr is the effective memory address for LOAD/STORE, computed at
	// dispatch.
	Addr uint16

	Phase Phase

	// Cycle counters, 0 until the phase is reached.
	IssuedCycle    uint64
	ExecStartCycle uint64
	ExecEndCycle   uint64

	// ExecEndTarget is the cycle the latency countdown expires, set at
	// dispatch.
	ExecEndTarget uint64

	// Result holds the computed value once execution finished.
	Result      int16
	ResultReady bool
}

// OperandsReady returns true when neither operand is waiting on a tag.
func (s *Station) OperandsReady() bool {
	return s.Operands[0].Ready && s.Operands[1].Ready
}

// reset clears the slot back to idle, keeping its identity.
func (s *Station) reset() {
	id := s.ID
	*s = Station{ID: id}
}

// Pool is the full set of reservation stations, one fixed-capacity arena
// per functional-unit class.
type Pool struct {
	arenas [insts.NumClasses][]Station
}

// NewPool builds a pool sized by the hardware configuration.
func NewPool(cfg *latency.Config) *Pool {
	p := &Pool{}
	for class := insts.Class(0); class < insts.NumClasses; class++ {
		arena := make([]Station, cfg.Stations(class))
		for i := range arena {
			arena[i].ID = ID{Class: class, Index: i}
		}
		p.arenas[class] = arena
	}
	return p
}

// TryAllocate returns the lowest-index free station of the class, or false
// if all are occupied (structural hazard).
func (p *Pool) TryAllocate(class insts.Class) (ID, bool) {
	for i := range p.arenas[class] {
		if !p.arenas[class][i].Busy {
			p.arenas[class][i].Busy = true
			p.arenas[class][i].Phase = PhaseWaitingOperands
			return p.arenas[class][i].ID, true
		}
	}
	return ID{}, false
}

// Get returns the station with the given identity.
func (p *Pool) Get(id ID) *Station {
	return &p.arenas[id.Class][id.Index]
}

// BindOperand resolves an operand slot to a literal value.
func (p *Pool) BindOperand(id ID, slot int, value int16) {
	p.Get(id).Operands[slot] = Operand{Ready: true, Value: value}
}

// BindOperandTag marks an operand slot as waiting for the producer
// station's broadcast.
func (p *Pool) BindOperandTag(id ID, slot int, producer ID) {
	p.Get(id).Operands[slot] = Operand{WaitingOn: producer}
}

// ObserveBroadcast delivers a completing station's value to every station
// holding a matching tag, in either operand slot. This is the common-data-
// bus fan-out: all consumers resolve within the broadcast cycle.
func (p *Pool) ObserveBroadcast(producer ID, value int16) {
	p.ForEach(func(s *Station) {
		if !s.Busy {
			return
		}
		for slot := range s.Operands {
			op := &s.Operands[slot]
			if !op.Ready && op.WaitingOn == producer {
				*op = Operand{Ready: true, Value: value}
			}
		}
	})
}

// Free releases a station after write-back.
func (p *Pool) Free(id ID) {
	p.Get(id).reset()
}

// Busy returns the number of occupied stations across all classes.
func (p *Pool) Busy() int {
	n := 0
	p.ForEach(func(s *Station) {
		if s.Busy {
			n++
		}
	})
	return n
}

// ForEach visits every station in class, then index, order.
func (p *Pool) ForEach(fn func(*Station)) {
	for class := range p.arenas {
		for i := range p.arenas[class] {
			fn(&p.arenas[class][i])
		}
	}
}

// View is an immutable per-station snapshot for presentation layers.
type View struct {
	Name      string
	Busy      bool
	Op        string
	InstIndex int
	Vj, Vk    string
	Phase     string

	IssuedCycle    uint64
	ExecStartCycle uint64
	ExecEndCycle   uint64
}

// Snapshot returns a view of every station, in class then index order.
func (p *Pool) Snapshot() []View {
	var views []View
	p.ForEach(func(s *Station) {
		v := View{Name: s.ID.String(), Busy: s.Busy}
		if s.Busy {
			if s.Inst != nil {
				v.Op = s.Inst.Op.String()
			}
			v.InstIndex = s.InstIndex
			v.Vj = s.Operands[0].String()
			v.Vk = s.Operands[1].String()
			v.Phase = s.Phase.String()
			v.IssuedCycle = s.IssuedCycle
			v.ExecStartCycle = s.ExecStartCycle
			v.ExecEndCycle = s.ExecEndCycle
		}
		views = append(views, v)
	})
	return views
}
