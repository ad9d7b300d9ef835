package emu_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/psxcore/emu"
)

var _ = Describe("CPU memory access", func() {
	Describe("Aligned loads and stores", func() {
		// SW r2, 0(r1) -> 0xAC220000, LW r3, 0(r1) -> 0x8C230000
		It("should round-trip a word through memory", func() {
			cpu, _ := newTestCPU(0xAC220000, 0x8C230000, 0)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xDEADBEEF

			cpu.Step()
			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[3]).To(Equal(uint32(0xDEADBEEF)))
		})

		// LB r2, 0(r1) -> 0x80220000
		It("should sign-extend LB", func() {
			cpu, memory := newTestCPU(0x80220000, 0)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x80)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0xFFFFFF80)))
		})

		// LBU r2, 0(r1) -> 0x90220000
		It("should zero-extend LBU", func() {
			cpu, memory := newTestCPU(0x90220000, 0)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x80)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x80)))
		})

		// LH r2, 0(r1) -> 0x84220000
		It("should sign-extend LH", func() {
			cpu, memory := newTestCPU(0x84220000, 0)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x8000)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0xFFFF8000)))
		})

		// LHU r2, 0(r1) -> 0x94220000
		It("should zero-extend LHU", func() {
			cpu, memory := newTestCPU(0x94220000, 0)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x8000)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x8000)))
		})

		// SB r2, 1(r1) -> 0xA0220001
		It("should store a single byte", func() {
			cpu, memory := newTestCPU(0xA0220001)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xAA
			memory.Write32(0x2000, 0x11223344)

			cpu.Step()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x1122AA44)))
		})

		// SH r2, 2(r1) -> 0xA4220002
		It("should store a halfword", func() {
			cpu, memory := newTestCPU(0xA4220002)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xBEEF
			memory.Write32(0x2000, 0x11223344)

			cpu.Step()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(0xBEEF3344)))
		})
	})

	Describe("Misaligned accesses", func() {
		// LW r2, 0(r1) -> 0x8C220000
		It("should fault a misaligned LW without touching the register",
			func() {
				cpu, _ := newTestCPU(0x8C220000)
				cpu.RegFile().R[1] = 0x2001
				cpu.RegFile().R[2] = 7

				result := cpu.Step()

				Expect(result.Cause).To(Equal(emu.ExcAddrLoad))
				Expect(cpu.Cop0().BadVaddr).To(Equal(uint32(0x2001)))
				Expect(cpu.RegFile().R[2]).To(Equal(uint32(7)))
			})

		// LH r2, 0(r1) -> 0x84220000
		It("should fault a misaligned LH", func() {
			cpu, _ := newTestCPU(0x84220000)
			cpu.RegFile().R[1] = 0x2001

			result := cpu.Step()

			Expect(result.Cause).To(Equal(emu.ExcAddrLoad))
		})

		// SW r2, 0(r1) -> 0xAC220000
		It("should fault a misaligned SW without touching memory", func() {
			cpu, memory := newTestCPU(0xAC220000)
			cpu.RegFile().R[1] = 0x2002
			cpu.RegFile().R[2] = 0xDEADBEEF

			result := cpu.Step()

			Expect(result.Cause).To(Equal(emu.ExcAddrStore))
			Expect(cpu.Cop0().BadVaddr).To(Equal(uint32(0x2002)))
			Expect(memory.Read32(0x2000)).To(Equal(uint32(0)))
		})

		// SH r2, 0(r1) -> 0xA4220000
		It("should fault a misaligned SH", func() {
			cpu, _ := newTestCPU(0xA4220000)
			cpu.RegFile().R[1] = 0x2001

			result := cpu.Step()

			Expect(result.Cause).To(Equal(emu.ExcAddrStore))
		})
	})

	Describe("Unaligned load merges", func() {
		// LWR r2, 0(r1) -> 0x98220000
		It("should load a full word with LWR at offset zero", func() {
			cpu, memory := newTestCPU(0x98220000, 0)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x44332211)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x44332211)))
		})

		// LWL r2, 1(r1) -> 0x88220001
		It("should merge the high bytes with LWL", func() {
			cpu, memory := newTestCPU(0x88220001, 0)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xAABBCCDD
			memory.Write32(0x2000, 0x44332211)

			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x2211CCDD)))
		})

		// LWR r2, 1(r1); LWL r2, 4(r1); ADDU r3, r2, r0
		It("should assemble an unaligned word through the delay slot", func() {
			cpu, memory := newTestCPU(0x98220001, 0x88220004, 0x00401821)
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x44332211)
			memory.Write32(0x2004, 0x88776655)

			cpu.Step()
			cpu.Step()

			// The pair is still in flight; the committed register is
			// untouched until the next instruction.
			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0)))

			cpu.Step()
			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x55443322)))
			Expect(cpu.RegFile().R[3]).To(Equal(uint32(0)))
		})
	})

	Describe("Unaligned store merges", func() {
		// SWL r2, 2(r1) -> 0xA8220002
		It("should write the high bytes with SWL", func() {
			cpu, memory := newTestCPU(0xA8220002)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xAABBCCDD
			memory.Write32(0x2000, 0x11223344)

			cpu.Step()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x11AABBCC)))
		})

		// SWR r2, 1(r1) -> 0xB8220001
		It("should write the low bytes with SWR", func() {
			cpu, memory := newTestCPU(0xB8220001)
			cpu.RegFile().R[1] = 0x2000
			cpu.RegFile().R[2] = 0xAABBCCDD
			memory.Write32(0x2000, 0x11223344)

			cpu.Step()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(0xBBCCDD44)))
		})
	})

	Describe("Cache control register", func() {
		// SW r2, 0(r1); LW r3, 0(r1); NOP
		It("should intercept the register instead of memory", func() {
			cpu, memory := newTestCPU(0xAC220000, 0x8C230000, 0)
			cpu.RegFile().R[1] = 0xFFFE0130
			cpu.RegFile().R[2] = 0x800

			cpu.Step()
			cpu.Step()
			cpu.Step()

			Expect(cpu.RegFile().R[3]).To(Equal(uint32(0x800)))
			Expect(memory.Read32(0xFFFE0130)).To(Equal(uint32(0)))
		})
	})

	Describe("Instruction cache", func() {
		// SW r2, 0(r1) enables the cache through the control register.
		enableCache := func() (*emu.CPU, *emu.Memory) {
			cpu, memory := newTestCPU(0xAC220000)
			cpu.RegFile().R[1] = 0xFFFE0130
			cpu.RegFile().R[2] = 0x800
			cpu.Step()
			return cpu, memory
		}

		jumpTo := func(cpu *emu.CPU, pc uint32) {
			cpu.RegFile().PC = pc
			cpu.RegFile().NextPC = pc + 4
		}

		It("should serve cached fetches after the line fills", func() {
			cpu, memory := enableCache()

			// ADDIU r5, r0, 7 -> 0x24050007
			memory.Write32(0x2000, 0x24050007)
			jumpTo(cpu, 0x2000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(7)))

			// The rewrite is invisible while the line stays valid.
			memory.Write32(0x2000, 0x24050009)
			jumpTo(cpu, 0x2000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(7)))
		})

		It("should bypass the cache for the uncached segment", func() {
			cpu, memory := enableCache()

			memory.Write32(0x2000, 0x24050007)
			jumpTo(cpu, 0xA0002000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(7)))

			memory.Write32(0x2000, 0x24050009)
			jumpTo(cpu, 0xA0002000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(9)))
		})

		It("should invalidate a line through an isolated store", func() {
			cpu, memory := enableCache()

			memory.Write32(0x2000, 0x24050007)
			jumpTo(cpu, 0x2000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(7)))

			memory.Write32(0x2000, 0x24050009)

			// SW r6, 0(r4) -> 0xAC860000 with the cache isolated.
			memory.Write32(0x3000, 0xAC860000)
			cpu.Cop0().Write(12, 0x10000)
			cpu.RegFile().R[4] = 0x2000
			jumpTo(cpu, 0x3000)
			cpu.Step()
			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x24050009)))

			cpu.Cop0().Write(12, 0)
			jumpTo(cpu, 0x2000)
			cpu.Step()
			Expect(cpu.RegFile().R[5]).To(Equal(uint32(9)))
		})
	})

	Describe("Geometry coprocessor access", func() {
		// MTC2 r1, dr9 -> 0x48814800
		It("should fault coprocessor-2 moves while CU2 is clear", func() {
			cpu, _ := newTestCPU(0x48814800)

			result := cpu.Step()

			Expect(result.Cause).To(Equal(emu.ExcCopUnusable))
			Expect((cpu.Cop0().Cause >> 28) & 0x3).To(Equal(uint32(2)))
		})

		// MTC2 r1, dr9; MFC2 r2, dr9 -> 0x48024800; NOP
		It("should move data registers through the delay slot", func() {
			cpu, _ := newTestCPU(0x48814800, 0x48024800, 0)
			cpu.Cop0().SR |= 1 << 30
			cpu.RegFile().R[1] = 0x1234

			cpu.Step()
			Expect(cpu.GTE().IR[1]).To(Equal(int16(0x1234)))

			cpu.Step()
			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0)))

			cpu.Step()
			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0x1234)))
		})

		// CTC2 r1, cr26 -> 0x48C1D000; CFC2 r2, cr26 -> 0x4842D000; NOP
		It("should sign-extend H through a control read-back", func() {
			cpu, _ := newTestCPU(0x48C1D000, 0x4842D000, 0)
			cpu.Cop0().SR |= 1 << 30
			cpu.RegFile().R[1] = 0x8000

			cpu.Step()
			cpu.Step()
			cpu.Step()

			Expect(cpu.GTE().H).To(Equal(uint16(0x8000)))
			Expect(cpu.RegFile().R[2]).To(Equal(uint32(0xFFFF8000)))
		})

		// NCLIP -> 0x4A000006
		It("should run a geometry command from the pipeline", func() {
			cpu, _ := newTestCPU(0x4A000006)
			cpu.Cop0().SR |= 1 << 30
			g := cpu.GTE()
			g.SXY[0] = emu.Vec2x16{X: 0, Y: 0}
			g.SXY[1] = emu.Vec2x16{X: 1, Y: 0}
			g.SXY[2] = emu.Vec2x16{X: 0, Y: 1}

			result := cpu.Step()

			Expect(result.Exception).To(BeFalse())
			Expect(g.MAC[0]).To(Equal(int32(1)))
		})

		It("should still run a geometry command cut off by an interrupt",
			func() {
				cpu, _ := newTestCPU(0x4A000006)
				cpu.Cop0().Write(12, 0x0401)
				cpu.SetInterruptLines(1)
				g := cpu.GTE()
				g.SXY[1] = emu.Vec2x16{X: 1, Y: 0}
				g.SXY[2] = emu.Vec2x16{X: 0, Y: 1}

				result := cpu.Step()

				Expect(result.Cause).To(Equal(emu.ExcInterrupt))
				Expect(g.MAC[0]).To(Equal(int32(1)))
			})

		// LWC2 r9, 0(r1) -> 0xC8290000 targets IR1.
		It("should load a geometry register from memory with LWC2", func() {
			cpu, memory := newTestCPU(0xC8290000)
			cpu.Cop0().SR |= 1 << 30
			cpu.RegFile().R[1] = 0x2000
			memory.Write32(0x2000, 0x4321)

			cpu.Step()

			Expect(cpu.GTE().IR[1]).To(Equal(int16(0x4321)))
		})

		// SWC2 r9, 0(r1) -> 0xE8290000
		It("should store a geometry register to memory with SWC2", func() {
			cpu, memory := newTestCPU(0xE8290000)
			cpu.Cop0().SR |= 1 << 30
			cpu.RegFile().R[1] = 0x2000
			cpu.GTE().IR[1] = 0x1357

			cpu.Step()

			Expect(memory.Read32(0x2000)).To(Equal(uint32(0x1357)))
		})

		// LWC0 r9, 0(r1) -> 0xC0290000
		It("should perform and discard loads for absent coprocessors", func() {
			cpu, _ := newTestCPU(0xC0290000)
			cpu.RegFile().R[1] = 0x2000

			result := cpu.Step()

			Expect(result.Exception).To(BeFalse())
		})
	})
})
