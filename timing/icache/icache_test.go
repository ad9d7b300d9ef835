package icache_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/psxcore/emu"
	"github.com/sarchlab/psxcore/timing/icache"
)

// memoryFill adapts a sparse memory into the fetch fill callback.
func memoryFill(memory *emu.Memory) func(uint32) (uint32, bool) {
	return func(physical uint32) (uint32, bool) {
		return memory.Load(physical, emu.SizeWord)
	}
}

// faultingFill always reports a bus error.
func faultingFill(uint32) (uint32, bool) {
	return 0, true
}

var _ = Describe("Cache", func() {
	var (
		cache  *icache.Cache
		memory *emu.Memory
	)

	BeforeEach(func() {
		cache = icache.New()
		memory = emu.NewMemory()
	})

	Describe("Fetch", func() {
		It("should miss cold and hit afterwards", func() {
			memory.Write32(0x2000, 0x11111111)
			memory.Write32(0x2004, 0x22222222)

			word, fault := cache.Fetch(0x2000, memoryFill(memory))
			Expect(fault).To(BeFalse())
			Expect(word).To(Equal(uint32(0x11111111)))

			word, fault = cache.Fetch(0x2004, memoryFill(memory))
			Expect(fault).To(BeFalse())
			Expect(word).To(Equal(uint32(0x22222222)))

			stats := cache.Stats()
			Expect(stats.Fetches).To(Equal(uint64(2)))
			Expect(stats.Misses).To(Equal(uint64(1)))
			Expect(stats.Hits).To(Equal(uint64(1)))
			Expect(stats.FillWords).To(Equal(uint64(4)))
		})

		It("should serve stale words until the line is replaced", func() {
			memory.Write32(0x2000, 0x11111111)
			cache.Fetch(0x2000, memoryFill(memory))

			memory.Write32(0x2000, 0x99999999)
			word, _ := cache.Fetch(0x2000, memoryFill(memory))

			Expect(word).To(Equal(uint32(0x11111111)))
		})

		It("should fill only the tail of a line", func() {
			memory.Write32(0x2008, 0x33333333)
			memory.Write32(0x200C, 0x44444444)

			cache.Fetch(0x2008, memoryFill(memory))

			Expect(cache.Stats().FillWords).To(Equal(uint64(2)))
		})

		It("should miss on a word before the valid region", func() {
			memory.Write32(0x2008, 0x33333333)
			cache.Fetch(0x2008, memoryFill(memory))

			memory.Write32(0x2000, 0x11111111)
			word, fault := cache.Fetch(0x2000, memoryFill(memory))

			Expect(fault).To(BeFalse())
			Expect(word).To(Equal(uint32(0x11111111)))
			Expect(cache.Stats().Misses).To(Equal(uint64(2)))
		})

		It("should evict on a conflicting tag", func() {
			memory.Write32(0x2000, 0x11111111)
			memory.Write32(0x3000, 0x55555555)

			// Both addresses map to set zero.
			cache.Fetch(0x2000, memoryFill(memory))
			word, _ := cache.Fetch(0x3000, memoryFill(memory))
			Expect(word).To(Equal(uint32(0x55555555)))

			// The first line is gone.
			cache.Fetch(0x2000, memoryFill(memory))
			Expect(cache.Stats().Misses).To(Equal(uint64(3)))
		})

		It("should strip the segment prefix when filling", func() {
			memory.Write32(0x2000, 0x11111111)

			word, fault := cache.Fetch(0x80002000, memoryFill(memory))

			Expect(fault).To(BeFalse())
			Expect(word).To(Equal(uint32(0x11111111)))
		})

		It("should abort the fetch on a fill fault", func() {
			_, fault := cache.Fetch(0x2000, faultingFill)
			Expect(fault).To(BeTrue())

			// The line was not installed.
			memory.Write32(0x2000, 0x11111111)
			word, _ := cache.Fetch(0x2000, memoryFill(memory))
			Expect(word).To(Equal(uint32(0x11111111)))
			Expect(cache.Stats().Misses).To(Equal(uint64(2)))
		})
	})

	Describe("Isolated accesses", func() {
		It("should read back an isolated data write", func() {
			cache.IsolatedStore(0x2004, 0xCAFEBABE, false)

			Expect(cache.IsolatedLoad(0x2004, false)).To(
				Equal(uint32(0xCAFEBABE)))
		})

		It("should read and write tags in tag-test mode", func() {
			cache.IsolatedStore(0x2000, 0x12345000, true)

			Expect(cache.IsolatedLoad(0x2000, true)).To(
				Equal(uint32(0x12345000)))
		})

		It("should invalidate the line on an isolated store", func() {
			memory.Write32(0x2000, 0x11111111)
			cache.Fetch(0x2000, memoryFill(memory))

			cache.IsolatedStore(0x2000, 0, false)

			memory.Write32(0x2000, 0x99999999)
			word, _ := cache.Fetch(0x2000, memoryFill(memory))

			Expect(word).To(Equal(uint32(0x99999999)))
			Expect(cache.Stats().Invalidations).To(Equal(uint64(1)))
		})
	})

	Describe("Snapshot round trip", func() {
		It("should restore lines and validity", func() {
			memory.Write32(0x2000, 0x11111111)
			memory.Write32(0x2004, 0x22222222)
			cache.Fetch(0x2000, memoryFill(memory))

			lines := cache.Lines()

			restored := icache.New()
			restored.SetLines(lines)

			word, fault := restored.Fetch(0x2000, faultingFill)
			Expect(fault).To(BeFalse())
			Expect(word).To(Equal(uint32(0x11111111)))
			Expect(restored.Lines()).To(Equal(lines))
		})

		It("should drop state on a short line slice", func() {
			memory.Write32(0x2000, 0x11111111)
			cache.Fetch(0x2000, memoryFill(memory))

			cache.SetLines(nil)

			memory.Write32(0x2000, 0x99999999)
			word, _ := cache.Fetch(0x2000, memoryFill(memory))
			Expect(word).To(Equal(uint32(0x99999999)))
		})
	})

	Describe("Statistics", func() {
		It("should reset", func() {
			memory.Write32(0x2000, 0x11111111)
			cache.Fetch(0x2000, memoryFill(memory))

			cache.ResetStats()

			Expect(cache.Stats()).To(Equal(icache.Statistics{}))
		})
	})

	Describe("Drop-in use", func() {
		It("should satisfy the core's cache interface", func() {
			var _ emu.InstructionCache = icache.New()
		})

		It("should run a core with hit counting", func() {
			// ADDIU r1, r1, 1 at 0x2000, looped over by resetting the PC.
			memory.Write32(0x2000, 0x24210001)

			cpu := emu.NewCPU(
				emu.WithBus(memory),
				emu.WithResetPC(0x2000),
				emu.WithInstructionCache(cache),
			)

			// Enable caching through the control register.
			s := cpu.Snapshot()
			s.CacheControl = 0x800
			cpu.Restore(s)

			cpu.Step()
			cpu.RegFile().PC = 0x2000
			cpu.RegFile().NextPC = 0x2004
			cpu.Step()

			Expect(cpu.RegFile().R[1]).To(Equal(uint32(2)))
			Expect(cache.Stats().Hits).To(Equal(uint64(1)))
			Expect(cache.Stats().Misses).To(Equal(uint64(1)))
		})
	})
})
