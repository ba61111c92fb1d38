package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
	"github.com/omarsaqr12/tomsim/timing/latency"
	"github.com/omarsaqr12/tomsim/timing/metrics"
	"github.com/omarsaqr12/tomsim/timing/tomasulo"
)

func runProgram(src string, regFile *emu.RegFile) (*metrics.Recorder, uint64) {
	prog, err := insts.Assemble(src, 0)
	Expect(err).NotTo(HaveOccurred())

	sched, err := tomasulo.NewScheduler(
		prog, latency.DefaultConfig(), regFile, emu.NewMemory())
	Expect(err).NotTo(HaveOccurred())

	recorder := metrics.NewRecorder()
	sched.AcceptHook(recorder)

	for i := 0; i < 1000; i++ {
		if sched.Tick().Done {
			return recorder, sched.Cycle()
		}
	}
	Fail("run did not complete")
	return nil, 0
}

var _ = Describe("Recorder", func() {
	Describe("timing table", func() {
		It("should record one row per dynamic instruction, in issue order", func() {
			regFile := &emu.RegFile{}
			regFile.Write(2, 5)
			recorder, _ := runProgram(`
				ADD R1, R2, R2
				NOR R3, R1, R1
			`, regFile)

			rows := recorder.Rows()
			Expect(rows).To(HaveLen(2))
			Expect(rows[0].Seq).To(Equal(uint64(0)))
			Expect(rows[0].Text).To(Equal("ADD R1, R2, R2"))
			Expect(rows[0].Station).To(Equal("ADD1"))
			Expect(rows[1].InstIndex).To(Equal(1))
		})

		It("should record the full cycle trajectory of an instruction", func() {
			recorder, _ := runProgram("ADD R1, R2, R3", &emu.RegFile{})

			row := recorder.Rows()[0]
			Expect(row.IssueCycle).To(Equal(uint64(1)))
			Expect(row.ExecStartCycle).To(Equal(uint64(2)))
			Expect(row.ExecEndCycle).To(Equal(uint64(3)))
			Expect(row.WriteCycle).To(Equal(uint64(4)))
		})

		It("should give each loop iteration its own row", func() {
			regFile := &emu.RegFile{}
			regFile.Write(2, 2)
			regFile.Write(3, 1)
			recorder, _ := runProgram(`
				loop: BEQ R2, R0, 3
				SUB R2, R2, R3
				BEQ R0, R0, loop
			`, regFile)

			// Two full iterations plus the final exit test.
			Expect(recorder.Rows()).To(HaveLen(7))
		})
	})

	Describe("summary", func() {
		It("should compute completion counts and IPC", func() {
			recorder, cycles := runProgram(`
				ADD R1, R2, R3
				NOR R4, R5, R6
			`, &emu.RegFile{})

			s := recorder.Summarize(cycles)
			Expect(s.Issued).To(Equal(uint64(2)))
			Expect(s.Completed).To(Equal(uint64(2)))
			Expect(s.TotalCycles).To(Equal(cycles))
			Expect(s.IPC).To(BeNumerically("~", 2.0/float64(cycles), 1e-9))
		})

		It("should count taken branches as mispredictions", func() {
			regFile := &emu.RegFile{}
			regFile.Write(1, 1)
			recorder, cycles := runProgram(`
				BEQ R1, R2, 2
				BEQ R0, R0, 3
				ADD R3, R3, R3
			`, regFile)

			s := recorder.Summarize(cycles)
			Expect(s.Branches).To(Equal(uint64(2)))
			Expect(s.Mispredicts).To(Equal(uint64(1)))
			Expect(s.MispredictRate).To(BeNumerically("~", 0.5, 1e-9))
		})

		It("should report a full mispredict rate when every branch is taken", func() {
			regFile := &emu.RegFile{}
			recorder, cycles := runProgram(`
				LOAD R1, 0(R0)
				BEQ R1, R0, 2
				ADD R2, R2, R2
			`, regFile)

			s := recorder.Summarize(cycles)
			Expect(s.Branches).To(Equal(uint64(1)))
			Expect(s.Mispredicts).To(Equal(uint64(1)))
			Expect(s.MispredictRate).To(BeNumerically("~", 1.0, 1e-9))
			Expect(s.Completed).To(Equal(uint64(3)))
		})

		It("should report a zero mispredict rate for branch-free runs", func() {
			recorder, cycles := runProgram("ADD R1, R2, R3", &emu.RegFile{})

			s := recorder.Summarize(cycles)
			Expect(s.Branches).To(Equal(uint64(0)))
			Expect(s.MispredictRate).To(BeZero())
		})
	})

	Describe("write-back port check", func() {
		It("should panic when two write-backs land in one cycle", func() {
			recorder := metrics.NewRecorder()
			wb := func(seq uint64, cycle uint64) {
				recorder.Func(sim.HookCtx{
					Pos: tomasulo.HookPosWriteback,
					Item: tomasulo.InstEvent{
						Cycle: cycle,
						Seq:   seq,
						Inst:  &insts.Instruction{Op: insts.OpADD},
					},
				})
			}

			wb(0, 3)
			Expect(func() { wb(1, 3) }).To(Panic())
		})
	})
})
