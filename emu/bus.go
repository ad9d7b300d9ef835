package emu

// AccessSize tags the width of a bus access in bytes.
type AccessSize uint8

// Bus access widths.
const (
	SizeByte AccessSize = 1
	SizeHalf AccessSize = 2
	SizeWord AccessSize = 4
)

// Bus is the memory capability the core drives. Addresses are physical;
// the core performs segment translation before issuing the access. A
// returned fault becomes an instruction or data bus-error exception, it
// never aborts emulation.
type Bus interface {
	// Load reads size bytes at addr, zero-extended into a word.
	Load(addr uint32, size AccessSize) (value uint32, fault bool)

	// Store writes the low size bytes of value at addr.
	Store(addr uint32, size AccessSize, value uint32) (fault bool)
}

// Segment translation masks indexed by the top three address bits.
// KUSEG and KSEG2 map through unchanged, KSEG0 and KSEG1 strip the
// segment prefix so both mirror the same physical memory.
var regionMask = [8]uint32{
	0xffffffff, 0xffffffff, 0xffffffff, 0xffffffff,
	0x7fffffff,
	0x1fffffff,
	0xffffffff, 0xffffffff,
}

// TranslateAddress maps a virtual address to its physical address.
func TranslateAddress(addr uint32) uint32 {
	return addr & regionMask[addr>>29]
}

const memPageSize = 0x10000

// Memory is a sparse page-backed RAM implementing Bus. Pages are
// allocated on first touch; reads of untouched memory return zero.
// Accesses never fault, which suits a flat test harness. Callers that
// need bus errors wrap it or provide their own Bus.
type Memory struct {
	pages map[uint32]*[memPageSize]byte
}

// NewMemory creates an empty sparse memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[memPageSize]byte)}
}

func (m *Memory) page(addr uint32, allocate bool) *[memPageSize]byte {
	base := addr / memPageSize
	p := m.pages[base]
	if p == nil && allocate {
		p = &[memPageSize]byte{}
		m.pages[base] = p
	}
	return p
}

func (m *Memory) readByte(addr uint32) uint8 {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr%memPageSize]
}

func (m *Memory) writeByte(addr uint32, v uint8) {
	m.page(addr, true)[addr%memPageSize] = v
}

// Load reads size bytes at addr, little-endian.
func (m *Memory) Load(addr uint32, size AccessSize) (uint32, bool) {
	var v uint32
	for i := uint32(0); i < uint32(size); i++ {
		v |= uint32(m.readByte(addr+i)) << (8 * i)
	}
	return v, false
}

// Store writes the low size bytes of value at addr, little-endian.
func (m *Memory) Store(addr uint32, size AccessSize, value uint32) bool {
	for i := uint32(0); i < uint32(size); i++ {
		m.writeByte(addr+i, uint8(value>>(8*i)))
	}
	return false
}

// Read32 reads a word at addr. Convenience for tests and tools.
func (m *Memory) Read32(addr uint32) uint32 {
	v, _ := m.Load(addr, SizeWord)
	return v
}

// Write32 writes a word at addr. Convenience for tests and tools.
func (m *Memory) Write32(addr uint32, value uint32) {
	m.Store(addr, SizeWord, value)
}

// LoadProgram copies a byte image into memory starting at base.
func (m *Memory) LoadProgram(base uint32, image []byte) {
	for i, b := range image {
		m.writeByte(base+uint32(i), b)
	}
}
