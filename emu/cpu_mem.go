package emu

import (
	"github.com/sarchlab/psxcore/insts"
)

// dataLoad performs a data-side load. Isolated-cache mode redirects the
// access to the instruction cache, and the cache control register is
// intercepted before it reaches the bus.
func (c *CPU) dataLoad(addr uint32, size AccessSize) (uint32, bool) {
	if c.cop0.IsolateCache() {
		return c.icache.IsolatedLoad(addr, c.cacheTagTest()), false
	}

	physical := TranslateAddress(addr)
	if physical == cacheControlAddr {
		return c.cacheControl, false
	}

	return c.bus.Load(physical, size)
}

// dataStore performs a data-side store, with the same interceptions as
// dataLoad.
func (c *CPU) dataStore(addr uint32, size AccessSize, value uint32) bool {
	if c.cop0.IsolateCache() {
		c.icache.IsolatedStore(addr, value, c.cacheTagTest())
		return false
	}

	physical := TranslateAddress(addr)
	if physical == cacheControlAddr {
		c.cacheControl = value
		return false
	}

	return c.bus.Store(physical, size, value)
}

func (c *CPU) executeLoad(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm

	var size AccessSize
	var alignMask uint32
	switch inst.Op {
	case insts.OpLB, insts.OpLBU:
		size = SizeByte
	case insts.OpLH, insts.OpLHU:
		size, alignMask = SizeHalf, 0x1
	case insts.OpLW:
		size, alignMask = SizeWord, 0x3
	}

	if addr&alignMask != 0 {
		c.cop0.BadVaddr = addr
		return c.raise(ExcAddrLoad)
	}

	value, fault := c.dataLoad(addr, size)
	if fault {
		c.enterException(ExcDBusError)
		c.regFile.CommitPendingLoad()
		return StepResult{Exception: true, Cause: ExcDBusError}
	}

	switch inst.Op {
	case insts.OpLB:
		value = uint32(int32(int8(value)))
	case insts.OpLH:
		value = uint32(int32(int16(value)))
	}

	c.regFile.QueueLoad(inst.Rt, value)
	return StepResult{}
}

func (c *CPU) executeLoadUnaligned(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm
	current := c.regFile.ReadReg(inst.Rt)

	aligned, fault := c.dataLoad(addr&^0x3, SizeWord)
	if fault {
		c.enterException(ExcDBusError)
		c.regFile.CommitPendingLoad()
		return StepResult{Exception: true, Cause: ExcDBusError}
	}

	// An unaligned load pairs with another one in the delay slot: the
	// in-flight value is merged with, not the committed register.
	if pending, ok := c.regFile.PendingLoadValue(inst.Rt); ok {
		current = pending
	} else {
		c.regFile.CommitPendingLoad()
	}

	var value uint32
	if inst.Op == insts.OpLWL {
		switch addr & 0x3 {
		case 0:
			value = (current & 0x00ffffff) | (aligned << 24)
		case 1:
			value = (current & 0x0000ffff) | (aligned << 16)
		case 2:
			value = (current & 0x000000ff) | (aligned << 8)
		case 3:
			value = aligned
		}
	} else {
		switch addr & 0x3 {
		case 0:
			value = aligned
		case 1:
			value = (current & 0xff000000) | (aligned >> 8)
		case 2:
			value = (current & 0xffff0000) | (aligned >> 16)
		case 3:
			value = (current & 0xffffff00) | (aligned >> 24)
		}
	}

	c.regFile.QueueLoad(inst.Rt, value)
	return StepResult{}
}

func (c *CPU) executeStore(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm
	value := c.regFile.ReadReg(inst.Rt)

	c.regFile.CommitPendingLoad()

	var size AccessSize
	var alignMask uint32
	switch inst.Op {
	case insts.OpSB:
		size = SizeByte
	case insts.OpSH:
		size, alignMask = SizeHalf, 0x1
	case insts.OpSW:
		size, alignMask = SizeWord, 0x3
	}

	if addr&alignMask != 0 {
		c.cop0.BadVaddr = addr
		return c.raise(ExcAddrStore)
	}

	if c.dataStore(addr, size, value) {
		return c.raise(ExcDBusError)
	}

	return StepResult{}
}

func (c *CPU) executeStoreUnaligned(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm
	value := c.regFile.ReadReg(inst.Rt)

	current, fault := c.dataLoad(addr&^0x3, SizeWord)
	if fault {
		c.enterException(ExcDBusError)
		c.regFile.CommitPendingLoad()
		return StepResult{Exception: true, Cause: ExcDBusError}
	}

	var merged uint32
	if inst.Op == insts.OpSWL {
		switch addr & 0x3 {
		case 0:
			merged = (current & 0xffffff00) | (value >> 24)
		case 1:
			merged = (current & 0xffff0000) | (value >> 16)
		case 2:
			merged = (current & 0xff000000) | (value >> 8)
		case 3:
			merged = value
		}
	} else {
		switch addr & 0x3 {
		case 0:
			merged = value
		case 1:
			merged = (current & 0x000000ff) | (value << 8)
		case 2:
			merged = (current & 0x0000ffff) | (value << 16)
		case 3:
			merged = (current & 0x00ffffff) | (value << 24)
		}
	}

	fault = c.dataStore(addr&^0x3, SizeWord, merged)

	c.regFile.CommitPendingLoad()

	if fault {
		return c.raise(ExcDBusError)
	}

	return StepResult{}
}

func (c *CPU) executeLWC(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm

	c.regFile.CommitPendingLoad()

	if inst.CopNum == 2 && !c.cop0.CopUsable(2) {
		return c.raise(ExcCopUnusable)
	}

	if addr&0x3 != 0 {
		c.cop0.BadVaddr = addr
		return c.raise(ExcAddrLoad)
	}

	value, fault := c.dataLoad(addr, SizeWord)
	if fault {
		return c.raise(ExcDBusError)
	}

	// Only the geometry coprocessor is present; loads for the others
	// still perform the bus access and discard the word.
	if inst.CopNum == 2 {
		c.gte.WriteData(inst.Rt, value)
	}

	return StepResult{}
}

func (c *CPU) executeSWC(inst *insts.Instruction) StepResult {
	addr := c.regFile.ReadReg(inst.Rs) + inst.SImm

	var value uint32
	if inst.CopNum == 2 {
		if !c.cop0.CopUsable(2) {
			c.regFile.CommitPendingLoad()
			return c.raise(ExcCopUnusable)
		}
		value = c.gte.ReadData(inst.Rt)
	}

	c.regFile.CommitPendingLoad()

	if addr&0x3 != 0 {
		c.cop0.BadVaddr = addr
		return c.raise(ExcAddrStore)
	}

	if c.dataStore(addr, SizeWord, value) {
		return c.raise(ExcDBusError)
	}

	return StepResult{}
}
