// Package icache models the R3000A instruction cache on Akita cache
// components: 4KB, direct mapped, four-word lines with partial-line
// validity. It implements emu.InstructionCache, so a core can run with
// this cache in place of the built-in one to collect hit statistics.
package icache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/psxcore/emu"
)

// R3000A instruction cache geometry.
const (
	numSets   = emu.CacheLineCount
	numWays   = 1
	blockSize = 4 * emu.CacheLineWords
)

// Statistics holds instruction cache performance counters.
type Statistics struct {
	Fetches       uint64
	Hits          uint64
	Misses        uint64
	FillWords     uint64
	Invalidations uint64
}

// Cache is an instruction cache whose tag and replacement state lives
// in an Akita cache directory. Word-granular validity and the raw tags
// software sees through isolated accesses are tracked alongside, since
// both are architecturally visible on the R3000A.
type Cache struct {
	directory *akitacache.DirectoryImpl

	// One entry per directory block, indexed by setID*numWays+wayID.
	lines []emu.CacheLine

	stats Statistics
}

// New creates an instruction cache with every line invalid.
func New() *Cache {
	total := numSets * numWays

	c := &Cache{
		directory: akitacache.NewDirectory(
			numSets,
			numWays,
			blockSize,
			akitacache.NewLRUVictimFinder(),
		),
		lines: make([]emu.CacheLine, total),
	}

	for i := range c.lines {
		c.lines[i].ValidFrom = emu.CacheLineWords
	}

	return c
}

// Stats returns the cache performance counters.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears the cache performance counters.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*numWays + block.WayID
}

func blockAddr(addr uint32) uint64 {
	return uint64(addr &^ 0xf)
}

// Fetch returns the instruction word at pc, filling the tail of the
// line through the callback on a miss. A fill fault aborts the fetch
// and leaves the line's tag untouched.
func (c *Cache) Fetch(pc uint32, fill func(uint32) (uint32, bool)) (uint32, bool) {
	c.stats.Fetches++

	word := int((pc & 0xc) >> 2)
	tag := pc & 0x7ffff000

	if block := c.directory.Lookup(0, blockAddr(pc)); block != nil && block.IsValid {
		line := &c.lines[c.blockIndex(block)]
		if line.Tag == tag && line.ValidFrom <= word {
			c.stats.Hits++
			c.directory.Visit(block)
			return line.Data[word], false
		}
	}

	c.stats.Misses++

	victim := c.directory.FindVictim(blockAddr(pc))
	line := &c.lines[c.blockIndex(victim)]

	address := (emu.TranslateAddress(pc) &^ 0xf) + 4*uint32(word)
	for i := word; i < emu.CacheLineWords; i++ {
		v, fault := fill(address)
		if fault {
			return 0, true
		}
		line.Data[i] = v
		address += 4
		c.stats.FillWords++
	}

	line.Tag = tag
	line.ValidFrom = word

	victim.Tag = blockAddr(pc)
	victim.IsValid = true
	c.directory.Visit(victim)

	return line.Data[word], false
}

// lineBlock returns the directory block covering addr whether or not it
// currently holds a valid line.
func (c *Cache) lineBlock(addr uint32) *akitacache.Block {
	if block := c.directory.Lookup(0, blockAddr(addr)); block != nil {
		return block
	}
	return c.directory.FindVictim(blockAddr(addr))
}

// IsolatedLoad reads a line's tag (tagTest) or the addressed word.
func (c *Cache) IsolatedLoad(addr uint32, tagTest bool) uint32 {
	line := &c.lines[c.blockIndex(c.lineBlock(addr))]

	if tagTest {
		return line.Tag
	}
	return line.Data[(addr&0xc)>>2]
}

// IsolatedStore writes a line's tag (tagTest) or the addressed word and
// invalidates the line.
func (c *Cache) IsolatedStore(addr uint32, value uint32, tagTest bool) {
	block := c.lineBlock(addr)
	line := &c.lines[c.blockIndex(block)]

	if tagTest {
		line.Tag = value
	} else {
		line.Data[(addr&0xc)>>2] = value
	}
	line.ValidFrom = emu.CacheLineWords

	block.IsValid = false
	c.stats.Invalidations++
}

// Lines returns a copy of the full cache contents.
func (c *Cache) Lines() []emu.CacheLine {
	lines := make([]emu.CacheLine, len(c.lines))
	copy(lines, c.lines)
	return lines
}

// SetLines replaces the cache contents and rebuilds the directory state
// to match.
func (c *Cache) SetLines(lines []emu.CacheLine) {
	for i := range c.lines {
		if i < len(lines) {
			c.lines[i] = lines[i]
		} else {
			c.lines[i] = emu.CacheLine{ValidFrom: emu.CacheLineWords}
		}
	}

	sets := c.directory.GetSets()
	for setID := range sets {
		for wayID, block := range sets[setID].Blocks {
			index := setID*numWays + wayID
			line := &c.lines[index]

			block.IsValid = line.ValidFrom < emu.CacheLineWords
			block.Tag = uint64(line.Tag) | uint64(setID)<<4
		}
	}
}
