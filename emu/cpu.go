// Package emu implements functional emulation of an R3000A-class CPU
// with its system-control and geometry coprocessors.
package emu

import (
	"github.com/sarchlab/psxcore/insts"
)

// Reset vector of the R3000A.
const ResetPC = 0xbfc00000

// Cache control register bits and its memory-mapped address.
const (
	cacheControlAddr    = 0xfffe0130
	cacheControlEnable  = 1 << 11
	cacheControlTagTest = 1 << 2
)

// CycleCounter prices executed instructions. A nil counter charges one
// cycle per instruction. Steps that end in an exception before reaching
// execution always cost one cycle.
type CycleCounter interface {
	InstructionCost(inst *insts.Instruction) uint64
}

// StepResult describes the outcome of executing one instruction.
type StepResult struct {
	// Exception is true when the step ended in an exception, with Cause
	// holding its cause code.
	Exception bool
	Cause     Exception
}

// CPU is the interpreting core: register file with load delay slot,
// delayed branches, precise exceptions, the instruction cache and the
// two coprocessors.
type CPU struct {
	regFile *RegFile
	cop0    *Cop0
	gte     *GTE
	decoder *insts.Decoder

	bus     Bus
	icache  InstructionCache
	counter CycleCounter

	cacheControl uint32

	currentPC          uint32
	currentInstruction uint32

	branchDelay bool
	branchTaken bool

	// Branch bookkeeping sampled at the start of the step, used if the
	// step raises an exception.
	excBranchDelay bool
	excBranchTaken bool

	interruptLines uint8

	nop *insts.Instruction

	instructionCount uint64
	cycles           uint64
}

// CPUOption is a function that configures a CPU.
type CPUOption func(*CPU)

// WithBus sets the memory bus the core drives.
func WithBus(bus Bus) CPUOption {
	return func(c *CPU) {
		c.bus = bus
	}
}

// WithInstructionCache replaces the built-in instruction cache.
func WithInstructionCache(cache InstructionCache) CPUOption {
	return func(c *CPU) {
		c.icache = cache
	}
}

// WithCycleCounter sets the cycle cost model.
func WithCycleCounter(counter CycleCounter) CPUOption {
	return func(c *CPU) {
		c.counter = counter
	}
}

// WithResetPC overrides the initial program counter.
func WithResetPC(pc uint32) CPUOption {
	return func(c *CPU) {
		c.regFile = NewRegFile(pc)
	}
}

// NewCPU creates a CPU in its reset state. Without options it runs
// against a private sparse memory, starting at the reset vector.
func NewCPU(options ...CPUOption) *CPU {
	c := &CPU{
		regFile: NewRegFile(ResetPC),
		cop0:    NewCop0(),
		gte:     NewGTE(),
		decoder: insts.NewDecoder(),
		icache:  NewDirectCache(),
	}
	c.nop = c.decoder.Decode(0)

	for _, opt := range options {
		opt(c)
	}

	if c.bus == nil {
		c.bus = NewMemory()
	}

	return c
}

// RegFile returns the architectural register file.
func (c *CPU) RegFile() *RegFile {
	return c.regFile
}

// Cop0 returns the system-control coprocessor.
func (c *CPU) Cop0() *Cop0 {
	return c.cop0
}

// GTE returns the geometry coprocessor.
func (c *CPU) GTE() *GTE {
	return c.gte
}

// Bus returns the memory bus.
func (c *CPU) Bus() Bus {
	return c.bus
}

// InstructionCount returns the number of instructions retired.
func (c *CPU) InstructionCount() uint64 {
	return c.instructionCount
}

// Cycles returns the accumulated cycle count.
func (c *CPU) Cycles() uint64 {
	return c.cycles
}

// SetInterruptLines drives the six external interrupt request lines.
// The lines are level sensitive and sampled at the start of each step.
func (c *CPU) SetInterruptLines(lines uint8) {
	c.interruptLines = lines
}

// Step executes one instruction and returns its outcome. Exceptions,
// including external interrupts, redirect the program counter to the
// handler and report through the result, never through an error.
func (c *CPU) Step() StepResult {
	c.currentPC = c.regFile.PC
	c.excBranchDelay = c.branchDelay
	c.excBranchTaken = c.branchTaken

	if c.currentPC&0x3 != 0 {
		c.cop0.BadVaddr = c.currentPC
		c.enterException(ExcAddrLoad)
		c.regFile.CommitPendingLoad()
		c.cycles++
		return StepResult{Exception: true, Cause: ExcAddrLoad}
	}

	c.cop0.SetInterruptLines(c.interruptLines)

	word, fault := c.fetch(c.currentPC)
	c.currentInstruction = word

	if c.cop0.InterruptsEnabled() && c.cop0.InterruptPending() {
		c.enterException(ExcInterrupt)

		// A geometry command in the interrupted slot still executes.
		// The handler returns past it, so skipping it would lose the
		// command.
		if !fault && word>>25 == 0x25 {
			c.gte.Execute(word & 0x1ffffff)
		}

		c.regFile.CommitPendingLoad()
		c.cycles++
		return StepResult{Exception: true, Cause: ExcInterrupt}
	}

	c.branchDelay = false
	c.branchTaken = false

	if fault {
		c.enterException(ExcIBusError)
		c.regFile.CommitPendingLoad()
		c.cycles++
		return StepResult{Exception: true, Cause: ExcIBusError}
	}

	c.regFile.PC = c.regFile.NextPC
	c.regFile.NextPC += 4

	c.instructionCount++

	if word == 0 {
		c.regFile.CommitPendingLoad()
		c.cycles += c.instructionCost(c.nop)
		return StepResult{}
	}

	inst := c.decoder.Decode(word)
	c.cycles += c.instructionCost(inst)

	return c.execute(inst)
}

// RunFor steps the core until count instructions have retired or an
// exception occurs, returning the last step's result.
func (c *CPU) RunFor(count uint64) StepResult {
	target := c.instructionCount + count

	var result StepResult
	for c.instructionCount < target {
		result = c.Step()
		if result.Exception {
			break
		}
	}

	return result
}

func (c *CPU) instructionCost(inst *insts.Instruction) uint64 {
	if c.counter == nil {
		return 1
	}
	return c.counter.InstructionCost(inst)
}

// enterException records the exception in cop0 and redirects the
// program counter to the active exception vector.
func (c *CPU) enterException(exc Exception) {
	copNum := uint8((c.currentInstruction >> 26) & 0x3)
	switch exc {
	case ExcIBusError, ExcDBusError, ExcBreakpoint:
		copNum = 0
	}

	epc := c.currentPC
	if exc == ExcInterrupt {
		epc = c.regFile.PC
	}

	if c.excBranchDelay {
		epc -= 4
		c.cop0.TargetAddr = c.regFile.PC
	}

	vector := c.cop0.EnterException(
		exc, epc, c.excBranchDelay, c.excBranchTaken, copNum)

	c.regFile.PC = vector
	c.regFile.NextPC = vector + 4
}

func (c *CPU) raise(exc Exception) StepResult {
	c.enterException(exc)
	return StepResult{Exception: true, Cause: exc}
}

func (c *CPU) cacheEnabled() bool {
	return c.cacheControl&cacheControlEnable != 0
}

func (c *CPU) cacheTagTest() bool {
	return c.cacheControl&cacheControlTagTest != 0
}

// fetch reads the instruction word at pc, through the instruction
// cache for cacheable segments when caching is enabled.
func (c *CPU) fetch(pc uint32) (uint32, bool) {
	if c.cacheEnabled() && pc < 0xa0000000 {
		return c.icache.Fetch(pc, func(physical uint32) (uint32, bool) {
			return c.bus.Load(physical, SizeWord)
		})
	}

	return c.bus.Load(TranslateAddress(pc), SizeWord)
}

// branchTo redirects the instruction after the delay slot.
func (c *CPU) branchTo(offset uint32) {
	c.branchTaken = true
	c.regFile.NextPC = c.regFile.PC + offset
}
