package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/omarsaqr12/tomsim/emu"
	"github.com/omarsaqr12/tomsim/insts"
)

func mustAssemble(src string) *insts.Program {
	prog, err := insts.Assemble(src, 0)
	Expect(err).NotTo(HaveOccurred())
	return prog
}

var _ = Describe("Emulator", func() {
	Describe("arithmetic", func() {
		It("should execute ADD, SUB, NOR, MUL", func() {
			rf := &emu.RegFile{}
			rf.Write(2, 6)
			rf.Write(3, 7)
			e := emu.NewEmulator(mustAssemble(`
				ADD R4, R2, R3
				SUB R5, R2, R3
				NOR R6, R2, R3
				MUL R7, R2, R3
			`), emu.WithRegFile(rf))

			Expect(e.Run()).To(Succeed())
			Expect(rf.Read(4)).To(Equal(int16(13)))
			Expect(rf.Read(5)).To(Equal(int16(-1)))
			Expect(rf.Read(6)).To(Equal(int16(^int16(6 | 7))))
			Expect(rf.Read(7)).To(Equal(int16(42)))
			Expect(e.InstructionCount()).To(Equal(uint64(4)))
		})

		It("should wrap 16-bit arithmetic", func() {
			rf := &emu.RegFile{}
			rf.Write(1, 32767)
			rf.Write(2, 1)
			e := emu.NewEmulator(mustAssemble("ADD R3, R1, R2"), emu.WithRegFile(rf))

			Expect(e.Run()).To(Succeed())
			Expect(rf.Read(3)).To(Equal(int16(-32768)))
		})

		It("should discard writes to R0", func() {
			rf := &emu.RegFile{}
			rf.Write(1, 5)
			e := emu.NewEmulator(mustAssemble("ADD R0, R1, R1"), emu.WithRegFile(rf))

			Expect(e.Run()).To(Succeed())
			Expect(rf.Read(0)).To(Equal(int16(0)))
		})
	})

	Describe("memory", func() {
		It("should load and store through offset addressing", func() {
			rf := &emu.RegFile{}
			rf.Write(2, 100)
			mem := emu.NewMemory()
			mem.Write(104, 77)
			e := emu.NewEmulator(mustAssemble(`
				LOAD R1, 4(R2)
				STORE R1, 8(R2)
			`), emu.WithRegFile(rf), emu.WithMemory(mem))

			Expect(e.Run()).To(Succeed())
			Expect(rf.Read(1)).To(Equal(int16(77)))
			Expect(mem.Read(108)).To(Equal(int16(77)))
		})

		It("should read unwritten memory as zero", func() {
			e := emu.NewEmulator(mustAssemble("LOAD R1, 0(R0)"))

			Expect(e.Run()).To(Succeed())
			Expect(e.RegFile().Read(1)).To(Equal(int16(0)))
		})
	})

	Describe("control flow", func() {
		It("should take BEQ when operands are equal", func() {
			rf := &emu.RegFile{}
			e := emu.NewEmulator(mustAssemble(`
				BEQ R1, R0, 2
				ADD R2, R2, R2
				RET
			`), emu.WithRegFile(rf), emu.WithMaxInstructions(10))

			// BEQ taken skips the ADD; RET with R1=0 returns to index 0,
			// where BEQ is taken again until the cap trips.
			res := e.Step()
			Expect(res.Inst.Op).To(Equal(insts.OpBEQ))
			Expect(e.PC()).To(Equal(2))
		})

		It("should fall through BEQ when operands differ", func() {
			rf := &emu.RegFile{}
			rf.Write(1, 1)
			e := emu.NewEmulator(mustAssemble(`
				BEQ R1, R0, 2
				ADD R2, R1, R1
			`), emu.WithRegFile(rf))

			Expect(e.Run()).To(Succeed())
			Expect(rf.Read(2)).To(Equal(int16(2)))
		})

		It("should save the return address in R1 on CALL", func() {
			e := emu.NewEmulator(mustAssemble(`
				CALL func
				BEQ R0, R0, 3
			func:
				RET
			`), emu.WithMaxInstructions(10))

			Expect(e.Step().Inst.Op).To(Equal(insts.OpCALL))
			Expect(e.RegFile().Read(1)).To(Equal(int16(1)))
			Expect(e.PC()).To(Equal(2))

			Expect(e.Step().Inst.Op).To(Equal(insts.OpRET))
			Expect(e.PC()).To(Equal(1))

			// The BEQ target is one past the program end, terminating it.
			Expect(e.Run()).To(Succeed())
			Expect(e.InstructionCount()).To(Equal(uint64(3)))
		})

		It("should enforce the instruction cap", func() {
			e := emu.NewEmulator(mustAssemble("BEQ R0, R0, 0"),
				emu.WithMaxInstructions(5))

			Expect(e.Run()).To(MatchError(ContainSubstring("max instructions")))
			Expect(e.InstructionCount()).To(Equal(uint64(5)))
		})
	})
})
