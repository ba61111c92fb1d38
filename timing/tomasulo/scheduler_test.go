package tomasulo_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/latency"
	"github.com/omarsaqr12/tomsim/timing/tomasulo"
)

// eventRecorder collects hook payloads by position.
type eventRecorder struct {
	issues     []tomasulo.InstEvent
	execStarts []tomasulo.InstEvent
	execEnds   []tomasulo.InstEvent
	writebacks []tomasulo.InstEvent
	branches   []tomasulo.BranchEvent
}

func (r *eventRecorder) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case tomasulo.HookPosIssue:
		r.issues = append(r.issues, ctx.Item.(tomasulo.InstEvent))
	case tomasulo.HookPosExecStart:
		r.execStarts = append(r.execStarts, ctx.Item.(tomasulo.InstEvent))
	case tomasulo.HookPosExecEnd:
		r.execEnds = append(r.execEnds, ctx.Item.(tomasulo.InstEvent))
	case tomasulo.HookPosWriteback:
		r.writebacks = append(r.writebacks, ctx.Item.(tomasulo.InstEvent))
	case tomasulo.HookPosBranchResolved:
		r.branches = append(r.branches, ctx.Item.(tomasulo.BranchEvent))
	}
}

func mustAssemble(src string) *insts.Program {
	prog, err := insts.Assemble(src, 0)
	Expect(err).NotTo(HaveOccurred())
	return prog
}

var _ = Describe("Scheduler", func() {
	var (
		regFile  *emu.RegFile
		memory   *emu.Memory
		cfg      *latency.Config
		recorder *eventRecorder
	)

	BeforeEach(func() {
		regFile = &emu.RegFile{}
		memory = emu.NewMemory()
		cfg = latency.DefaultConfig()
		recorder = &eventRecorder{}
	})

	newScheduler := func(src string) *tomasulo.Scheduler {
		sched, err := tomasulo.NewScheduler(mustAssemble(src), cfg, regFile, memory)
		Expect(err).NotTo(HaveOccurred())
		sched.AcceptHook(recorder)
		return sched
	}

	runToCompletion := func(sched *tomasulo.Scheduler, maxCycles int) {
		for i := 0; i < maxCycles; i++ {
			if sched.Tick().Done {
				return
			}
		}
		Fail("run did not complete within the cycle bound")
	}

	Describe("NewScheduler", func() {
		It("should reject an empty program", func() {
			_, err := tomasulo.NewScheduler(nil, cfg, regFile, memory)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an invalid configuration", func() {
			cfg.MulStations = 0
			_, err := tomasulo.NewScheduler(
				mustAssemble("ADD R1, R2, R3"), cfg, regFile, memory)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("single instruction", func() {
		It("should issue, execute, and write back an ADD", func() {
			regFile.Write(2, 5)
			regFile.Write(3, 7)
			sched := newScheduler("ADD R1, R2, R3")

			runToCompletion(sched, 10)

			Expect(regFile.Read(1)).To(Equal(int16(12)))
			Expect(sched.Cycle()).To(Equal(uint64(4)))
			Expect(recorder.issues).To(HaveLen(1))
			Expect(recorder.issues[0].Cycle).To(Equal(uint64(1)))
			Expect(recorder.execStarts[0].Cycle).To(Equal(uint64(2)))
			Expect(recorder.execEnds[0].Cycle).To(Equal(uint64(3)))
			Expect(recorder.writebacks[0].Cycle).To(Equal(uint64(4)))
		})

		It("should finish a single-cycle NOR within its dispatch cycle", func() {
			sched := newScheduler("NOR R1, R0, R0")

			runToCompletion(sched, 10)

			Expect(regFile.Read(1)).To(Equal(int16(-1)))
			Expect(sched.Cycle()).To(Equal(uint64(3)))
			Expect(recorder.execStarts[0].Cycle).To(Equal(uint64(2)))
			Expect(recorder.execEnds[0].Cycle).To(Equal(uint64(2)))
			Expect(recorder.writebacks[0].Cycle).To(Equal(uint64(3)))
		})
	})

	Describe("data dependencies", func() {
		It("should forward a result to its consumer on the broadcast cycle", func() {
			regFile.Write(2, 3)
			regFile.Write(3, 4)
			sched := newScheduler(`
				ADD R1, R2, R3
				ADD R4, R1, R1
			`)

			runToCompletion(sched, 20)

			Expect(regFile.Read(1)).To(Equal(int16(7)))
			Expect(regFile.Read(4)).To(Equal(int16(14)))

			// The consumer dispatches in the producer's write-back cycle.
			Expect(recorder.writebacks[0].Seq).To(Equal(uint64(0)))
			Expect(recorder.execStarts[1].Seq).To(Equal(uint64(1)))
			Expect(recorder.execStarts[1].Cycle).
				To(Equal(recorder.writebacks[0].Cycle))
		})

		It("should let independent instructions execute out of order", func() {
			regFile.Write(2, 2)
			regFile.Write(3, 3)
			sched := newScheduler(`
				MUL R1, R2, R3
				NOR R4, R0, R0
			`)

			runToCompletion(sched, 30)

			// The NOR, younger but faster, writes back first.
			Expect(recorder.writebacks[0].Seq).To(Equal(uint64(1)))
			Expect(recorder.writebacks[1].Seq).To(Equal(uint64(0)))
			Expect(regFile.Read(1)).To(Equal(int16(6)))
			Expect(regFile.Read(4)).To(Equal(int16(-1)))
		})
	})

	Describe("write-back arbitration", func() {
		It("should grant the bus to the oldest of simultaneous completions", func() {
			sched := newScheduler(`
				ADD R1, R2, R3
				NOR R4, R5, R6
			`)

			runToCompletion(sched, 20)

			// Both are ready in cycle 4. The ADD carries the lower
			// sequence number and wins; the NOR waits a cycle.
			Expect(recorder.writebacks[0].Seq).To(Equal(uint64(0)))
			Expect(recorder.writebacks[0].Cycle).To(Equal(uint64(4)))
			Expect(recorder.writebacks[1].Seq).To(Equal(uint64(1)))
			Expect(recorder.writebacks[1].Cycle).To(Equal(uint64(5)))
		})

		It("should never write back twice in one cycle", func() {
			sched := newScheduler(`
				ADD R1, R1, R2
				NOR R3, R3, R4
				ADD R5, R5, R6
				NOR R7, R7, R8
			`)

			runToCompletion(sched, 40)

			seen := map[uint64]bool{}
			for _, wb := range recorder.writebacks {
				Expect(seen[wb.Cycle]).To(BeFalse(),
					"two write-backs in cycle %d", wb.Cycle)
				seen[wb.Cycle] = true
			}
			Expect(recorder.writebacks).To(HaveLen(4))
		})
	})

	Describe("register 0", func() {
		It("should discard writes to register 0", func() {
			regFile.Write(1, 10)
			regFile.Write(2, 20)
			sched := newScheduler("ADD R0, R1, R2")

			runToCompletion(sched, 10)

			Expect(regFile.Read(0)).To(Equal(int16(0)))
			Expect(recorder.writebacks).To(HaveLen(1))
		})

		It("should never make a reader wait on a register 0 producer", func() {
			regFile.Write(1, 10)
			regFile.Write(2, 20)
			sched := newScheduler(`
				MUL R0, R1, R2
				ADD R3, R0, R0
			`)

			runToCompletion(sched, 30)

			// The ADD reads zeros immediately instead of waiting ten
			// cycles for the MUL.
			Expect(regFile.Read(3)).To(Equal(int16(0)))
			Expect(recorder.writebacks[0].Seq).To(Equal(uint64(1)))
		})
	})

	Describe("structural hazards", func() {
		It("should stall issue until a station frees", func() {
			cfg.AddSubStations = 1
			sched := newScheduler(`
				ADD R1, R2, R3
				ADD R4, R5, R6
			`)

			runToCompletion(sched, 20)

			// The second ADD issues in the cycle the first one's
			// write-back frees the station.
			Expect(recorder.issues[0].Cycle).To(Equal(uint64(1)))
			Expect(recorder.issues[1].Cycle).To(Equal(uint64(4)))
			Expect(recorder.issues[1].Cycle).
				To(Equal(recorder.writebacks[0].Cycle))
		})
	})

	Describe("control flow", func() {
		It("should stall issue behind an unresolved branch", func() {
			regFile.Write(1, 1)
			sched := newScheduler(`
				BEQ R1, R2, 3
				ADD R3, R4, R5
			`)

			runToCompletion(sched, 20)

			// BEQ resolves not taken in cycle 3; the ADD issues the
			// same cycle.
			Expect(recorder.issues[1].Cycle).To(Equal(uint64(3)))
			Expect(recorder.branches).To(HaveLen(1))
			Expect(recorder.branches[0].ActualTaken).To(BeFalse())
			Expect(recorder.branches[0].Mispredicted()).To(BeFalse())
		})

		It("should redirect issue on a taken branch and skip the fall-through", func() {
			regFile.Write(4, 9)
			regFile.Write(5, 2)
			sched := newScheduler(`
				ADD R1, R0, R0
				BEQ R0, R0, 3
				ADD R2, R2, R2
				SUB R3, R4, R5
			`)

			runToCompletion(sched, 30)

			Expect(recorder.branches).To(HaveLen(1))
			Expect(recorder.branches[0].ActualTaken).To(BeTrue())
			Expect(recorder.branches[0].Mispredicted()).To(BeTrue())

			// The fall-through ADD at index 2 never issues.
			Expect(sched.InstructionsCompleted()).To(Equal(uint64(3)))
			Expect(regFile.Read(3)).To(Equal(int16(7)))
			Expect(regFile.Read(2)).To(Equal(int16(0)))
		})

		It("should run a counted loop to completion", func() {
			regFile.Write(2, 3) // loop counter
			regFile.Write(3, 1)
			sched := newScheduler(`
				loop: BEQ R2, R0, 4
				SUB R2, R2, R3
				ADD R4, R4, R3
				BEQ R0, R0, loop
			`)

			runToCompletion(sched, 200)

			Expect(regFile.Read(2)).To(Equal(int16(0)))
			Expect(regFile.Read(4)).To(Equal(int16(3)))
			// Four resolutions of the exit branch, three of the back edge.
			Expect(recorder.branches).To(HaveLen(7))
		})
	})

	Describe("CALL and RET", func() {
		It("should link the return address and return through it", func() {
			sched := newScheduler(`
				CALL 3
				ADD R4, R0, R0
				BEQ R0, R0, 5
				NOR R5, R0, R0
				RET
			`)

			runToCompletion(sched, 100)

			Expect(regFile.Read(1)).To(Equal(int16(1)))
			Expect(regFile.Read(5)).To(Equal(int16(-1)))
			// The callee body runs before the fall-through code.
			var order []int
			for _, wb := range recorder.writebacks {
				order = append(order, wb.InstIndex)
			}
			Expect(order).To(Equal([]int{0, 3, 4, 1, 2}))
		})
	})

	Describe("memory", func() {
		It("should commit a store at write-back and feed a later load", func() {
			regFile.Write(2, 42)
			sched := newScheduler(`
				STORE R2, 5(R0)
				LOAD R3, 5(R0)
			`)

			runToCompletion(sched, 30)

			Expect(memory.Read(5)).To(Equal(int16(42)))
			Expect(regFile.Read(3)).To(Equal(int16(42)))
			Expect(recorder.writebacks).To(HaveLen(2))
		})

		It("should address loads relative to the base register", func() {
			regFile.Write(2, 100)
			memory.Write(103, -7)
			sched := newScheduler("LOAD R1, 3(R2)")

			runToCompletion(sched, 20)

			Expect(regFile.Read(1)).To(Equal(int16(-7)))
		})
	})

	Describe("snapshots", func() {
		It("should report the pending producer per register", func() {
			sched := newScheduler("MUL R7, R2, R3")

			sched.Tick()

			status := sched.RegisterStatusSnapshot()
			Expect(status[7]).To(Equal("MUL1"))
			Expect(status[0]).To(BeEmpty())

			runToCompletion(sched, 30)
			Expect(sched.RegisterStatusSnapshot()[7]).To(BeEmpty())
		})

		It("should expose busy stations in the pool view", func() {
			sched := newScheduler("MUL R7, R2, R3")

			sched.Tick()

			busy := 0
			for _, v := range sched.StationSnapshot() {
				if v.Busy {
					busy++
					Expect(v.Op).To(Equal("MUL"))
				}
			}
			Expect(busy).To(Equal(1))
		})
	})
})
