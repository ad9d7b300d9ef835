package emu

// Instruction cache geometry: 256 lines of four words, direct mapped.
const (
	CacheLineCount  = 256
	CacheLineWords  = 4
	cacheTagMask    = 0x7ffff000
	cacheLineShift  = 4
	cacheLineSelect = 0xff0
	cacheWordSelect = 0xc
)

// CacheLine is one instruction cache line. Words from ValidFrom through
// the end of the line hold fetched instructions; ValidFrom past the
// last index marks the whole line invalid.
type CacheLine struct {
	Tag       uint32                 `json:"tag"`
	ValidFrom int                    `json:"valid_from"`
	Data      [CacheLineWords]uint32 `json:"data"`
}

// InstructionCache is the fetch-side cache the core drives. Fills go
// through the supplied callback so the cache never touches the bus
// directly. Isolated accesses implement the cache maintenance mode
// where data loads and stores hit cache lines instead of memory.
type InstructionCache interface {
	// Fetch returns the instruction word at pc, filling the rest of the
	// line on a miss. A fill fault aborts the fetch.
	Fetch(pc uint32, fill func(physical uint32) (uint32, bool)) (value uint32, fault bool)

	// IsolatedLoad reads a line's tag (tagTest) or the addressed word.
	IsolatedLoad(addr uint32, tagTest bool) uint32

	// IsolatedStore writes a line's tag (tagTest) or the addressed word
	// and invalidates the line.
	IsolatedStore(addr uint32, value uint32, tagTest bool)

	// Lines and SetLines expose the full cache contents for snapshots.
	Lines() []CacheLine
	SetLines(lines []CacheLine)
}

// directCache is the built-in direct-mapped instruction cache.
type directCache struct {
	lines [CacheLineCount]CacheLine
}

// NewDirectCache creates an instruction cache with every line invalid.
func NewDirectCache() InstructionCache {
	c := &directCache{}
	for i := range c.lines {
		c.lines[i].ValidFrom = CacheLineWords
	}
	return c
}

func cacheLineIndex(addr uint32) (line, word int) {
	return int((addr & cacheLineSelect) >> cacheLineShift),
		int((addr & cacheWordSelect) >> 2)
}

func (c *directCache) Fetch(pc uint32, fill func(uint32) (uint32, bool)) (uint32, bool) {
	line, word := cacheLineIndex(pc)
	tag := pc & cacheTagMask

	l := &c.lines[line]
	if l.Tag != tag || l.ValidFrom > word {
		address := (TranslateAddress(pc) &^ 0xf) + 4*uint32(word)
		for i := word; i < CacheLineWords; i++ {
			v, fault := fill(address)
			if fault {
				return 0, true
			}
			l.Data[i] = v
			address += 4
		}
		l.Tag = tag
		l.ValidFrom = word
	}

	return l.Data[word], false
}

func (c *directCache) IsolatedLoad(addr uint32, tagTest bool) uint32 {
	line, word := cacheLineIndex(addr)
	if tagTest {
		return c.lines[line].Tag
	}
	return c.lines[line].Data[word]
}

func (c *directCache) IsolatedStore(addr uint32, value uint32, tagTest bool) {
	line, word := cacheLineIndex(addr)
	l := &c.lines[line]
	if tagTest {
		l.Tag = value
	} else {
		l.Data[word] = value
	}
	l.ValidFrom = CacheLineWords
}

func (c *directCache) Lines() []CacheLine {
	lines := make([]CacheLine, CacheLineCount)
	copy(lines, c.lines[:])
	return lines
}

func (c *directCache) SetLines(lines []CacheLine) {
	for i := range c.lines {
		if i < len(lines) {
			c.lines[i] = lines[i]
		} else {
			c.lines[i] = CacheLine{ValidFrom: CacheLineWords}
		}
	}
}
