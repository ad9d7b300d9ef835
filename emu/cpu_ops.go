package emu

import (
	"github.com/sarchlab/psxcore/insts"
)

// execute runs one decoded instruction. Every operation commits the
// pending load-delay slot between reading its operands and writing its
// destination, which is what makes the one-instruction load delay
// visible to programs.
func (c *CPU) execute(inst *insts.Instruction) StepResult {
	switch inst.Op {
	case insts.OpSLL, insts.OpSRL, insts.OpSRA:
		c.executeShiftImm(inst)
	case insts.OpSLLV, insts.OpSRLV, insts.OpSRAV:
		c.executeShiftReg(inst)
	case insts.OpJR:
		c.executeJR(inst)
	case insts.OpJALR:
		c.executeJALR(inst)
	case insts.OpSYSCALL:
		c.regFile.CommitPendingLoad()
		return c.raise(ExcSyscall)
	case insts.OpBREAK:
		c.regFile.CommitPendingLoad()
		return c.raise(ExcBreakpoint)
	case insts.OpMFHI, insts.OpMFLO:
		c.executeMoveFromHiLo(inst)
	case insts.OpMTHI, insts.OpMTLO:
		c.executeMoveToHiLo(inst)
	case insts.OpMULT, insts.OpMULTU:
		c.executeMultiply(inst)
	case insts.OpDIV:
		c.executeDivide(inst)
	case insts.OpDIVU:
		c.executeDivideUnsigned(inst)
	case insts.OpADD, insts.OpSUB:
		return c.executeArithmeticOverflow(inst)
	case insts.OpADDU, insts.OpSUBU,
		insts.OpAND, insts.OpOR, insts.OpXOR, insts.OpNOR,
		insts.OpSLT, insts.OpSLTU:
		c.executeArithmetic(inst)
	case insts.OpBcond:
		c.executeBcond(inst)
	case insts.OpJ, insts.OpJAL:
		c.executeJump(inst)
	case insts.OpBEQ, insts.OpBNE, insts.OpBLEZ, insts.OpBGTZ:
		c.executeBranch(inst)
	case insts.OpADDI:
		return c.executeADDI(inst)
	case insts.OpADDIU, insts.OpSLTI, insts.OpSLTIU,
		insts.OpANDI, insts.OpORI, insts.OpXORI, insts.OpLUI:
		c.executeImmediate(inst)
	case insts.OpMFC0:
		return c.executeMFC0(inst)
	case insts.OpMTC0:
		return c.executeMTC0(inst)
	case insts.OpRFE:
		c.regFile.CommitPendingLoad()
		c.cop0.LeaveException()
	case insts.OpMFC2, insts.OpCFC2, insts.OpMTC2, insts.OpCTC2,
		insts.OpGTE:
		return c.executeCop2(inst)
	case insts.OpCOP1, insts.OpCOP3:
		c.regFile.CommitPendingLoad()
		return c.raise(ExcCopUnusable)
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		return c.executeLoad(inst)
	case insts.OpLWL, insts.OpLWR:
		return c.executeLoadUnaligned(inst)
	case insts.OpSB, insts.OpSH, insts.OpSW:
		return c.executeStore(inst)
	case insts.OpSWL, insts.OpSWR:
		return c.executeStoreUnaligned(inst)
	case insts.OpLWC:
		return c.executeLWC(inst)
	case insts.OpSWC:
		return c.executeSWC(inst)
	default:
		c.regFile.CommitPendingLoad()
		return c.raise(ExcReserved)
	}

	return StepResult{}
}

func (c *CPU) executeShiftImm(inst *insts.Instruction) {
	value := c.regFile.ReadReg(inst.Rt)

	var result uint32
	switch inst.Op {
	case insts.OpSLL:
		result = value << inst.Shamt
	case insts.OpSRL:
		result = value >> inst.Shamt
	case insts.OpSRA:
		result = uint32(int32(value) >> inst.Shamt)
	}

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rd, result)
}

func (c *CPU) executeShiftReg(inst *insts.Instruction) {
	value := c.regFile.ReadReg(inst.Rt)
	amount := c.regFile.ReadReg(inst.Rs) & 0x1f

	var result uint32
	switch inst.Op {
	case insts.OpSLLV:
		result = value << amount
	case insts.OpSRLV:
		result = value >> amount
	case insts.OpSRAV:
		result = uint32(int32(value) >> amount)
	}

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rd, result)
}

func (c *CPU) executeJR(inst *insts.Instruction) {
	// Target alignment is checked when the target fetches, not here.
	c.regFile.NextPC = c.regFile.ReadReg(inst.Rs)
	c.branchDelay = true
	c.branchTaken = true

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeJALR(inst *insts.Instruction) {
	returnAddr := c.regFile.NextPC

	c.branchDelay = true
	c.branchTaken = true
	c.regFile.NextPC = c.regFile.ReadReg(inst.Rs)

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rd, returnAddr)
}

func (c *CPU) executeMoveFromHiLo(inst *insts.Instruction) {
	value := c.regFile.HI
	if inst.Op == insts.OpMFLO {
		value = c.regFile.LO
	}

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rd, value)
}

func (c *CPU) executeMoveToHiLo(inst *insts.Instruction) {
	value := c.regFile.ReadReg(inst.Rs)
	if inst.Op == insts.OpMTHI {
		c.regFile.HI = value
	} else {
		c.regFile.LO = value
	}

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeMultiply(inst *insts.Instruction) {
	a := c.regFile.ReadReg(inst.Rs)
	b := c.regFile.ReadReg(inst.Rt)

	var product uint64
	if inst.Op == insts.OpMULT {
		product = uint64(int64(int32(a)) * int64(int32(b)))
	} else {
		product = uint64(a) * uint64(b)
	}

	c.regFile.HI = uint32(product >> 32)
	c.regFile.LO = uint32(product)

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeDivide(inst *insts.Instruction) {
	n := int32(c.regFile.ReadReg(inst.Rs))
	d := int32(c.regFile.ReadReg(inst.Rt))

	switch {
	case d == 0:
		// Division by zero produces fixed garbage instead of a fault.
		c.regFile.HI = uint32(n)
		if n >= 0 {
			c.regFile.LO = 0xffffffff
		} else {
			c.regFile.LO = 0x00000001
		}
	case uint32(n) == 0x80000000 && d == -1:
		c.regFile.HI = 0
		c.regFile.LO = 0x80000000
	default:
		c.regFile.HI = uint32(n % d)
		c.regFile.LO = uint32(n / d)
	}

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeDivideUnsigned(inst *insts.Instruction) {
	n := c.regFile.ReadReg(inst.Rs)
	d := c.regFile.ReadReg(inst.Rt)

	if d == 0 {
		c.regFile.HI = n
		c.regFile.LO = 0xffffffff
	} else {
		c.regFile.HI = n % d
		c.regFile.LO = n / d
	}

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeArithmeticOverflow(inst *insts.Instruction) StepResult {
	a := int32(c.regFile.ReadReg(inst.Rs))
	b := int32(c.regFile.ReadReg(inst.Rt))

	c.regFile.CommitPendingLoad()

	var result int32
	var overflow bool
	if inst.Op == insts.OpADD {
		result = a + b
		overflow = (a^result)&(b^result) < 0
	} else {
		result = a - b
		overflow = (a^b)&(a^result) < 0
	}

	if overflow {
		return c.raise(ExcOverflow)
	}

	c.regFile.WriteReg(inst.Rd, uint32(result))
	return StepResult{}
}

func (c *CPU) executeArithmetic(inst *insts.Instruction) {
	a := c.regFile.ReadReg(inst.Rs)
	b := c.regFile.ReadReg(inst.Rt)

	var result uint32
	switch inst.Op {
	case insts.OpADDU:
		result = a + b
	case insts.OpSUBU:
		result = a - b
	case insts.OpAND:
		result = a & b
	case insts.OpOR:
		result = a | b
	case insts.OpXOR:
		result = a ^ b
	case insts.OpNOR:
		result = ^(a | b)
	case insts.OpSLT:
		if int32(a) < int32(b) {
			result = 1
		}
	case insts.OpSLTU:
		if a < b {
			result = 1
		}
	}

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rd, result)
}

func (c *CPU) executeBcond(inst *insts.Instruction) {
	value := int32(c.regFile.ReadReg(inst.Rs))

	taken := value < 0
	if inst.Bgez {
		taken = value >= 0
	}

	c.regFile.CommitPendingLoad()

	if inst.Link {
		// The link register is written whether or not the branch is
		// taken.
		c.regFile.WriteReg(31, c.regFile.NextPC)
	}

	c.branchDelay = true
	if taken {
		c.branchTo(inst.BranchOffset)
	}
}

func (c *CPU) executeJump(inst *insts.Instruction) {
	c.regFile.CommitPendingLoad()

	returnAddr := c.regFile.NextPC

	c.branchDelay = true
	c.branchTaken = true
	c.regFile.NextPC = (c.regFile.PC & 0xf0000000) | (inst.Target << 2)

	if inst.Op == insts.OpJAL {
		c.regFile.WriteReg(31, returnAddr)
	}
}

func (c *CPU) executeBranch(inst *insts.Instruction) {
	a := c.regFile.ReadReg(inst.Rs)
	b := c.regFile.ReadReg(inst.Rt)

	var taken bool
	switch inst.Op {
	case insts.OpBEQ:
		taken = a == b
	case insts.OpBNE:
		taken = a != b
	case insts.OpBLEZ:
		taken = int32(a) <= 0
	case insts.OpBGTZ:
		taken = int32(a) > 0
	}

	if taken {
		c.branchTo(inst.BranchOffset)
	}
	c.branchDelay = true

	c.regFile.CommitPendingLoad()
}

func (c *CPU) executeADDI(inst *insts.Instruction) StepResult {
	a := int32(c.regFile.ReadReg(inst.Rs))
	b := int32(inst.SImm)

	c.regFile.CommitPendingLoad()

	result := a + b
	if (a^result)&(b^result) < 0 {
		return c.raise(ExcOverflow)
	}

	c.regFile.WriteReg(inst.Rt, uint32(result))
	return StepResult{}
}

func (c *CPU) executeImmediate(inst *insts.Instruction) {
	a := c.regFile.ReadReg(inst.Rs)

	var result uint32
	switch inst.Op {
	case insts.OpADDIU:
		result = a + inst.SImm
	case insts.OpSLTI:
		if int32(a) < int32(inst.SImm) {
			result = 1
		}
	case insts.OpSLTIU:
		if a < inst.SImm {
			result = 1
		}
	case insts.OpANDI:
		result = a & inst.Imm
	case insts.OpORI:
		result = a | inst.Imm
	case insts.OpXORI:
		result = a ^ inst.Imm
	case insts.OpLUI:
		result = inst.Imm << 16
	}

	c.regFile.CommitPendingLoad()
	c.regFile.WriteReg(inst.Rt, result)
}

func (c *CPU) executeMFC0(inst *insts.Instruction) StepResult {
	value, ok := c.cop0.Read(inst.Rd)
	if !ok {
		c.regFile.CommitPendingLoad()
		return c.raise(ExcReserved)
	}

	// Coprocessor moves arrive through the load delay slot.
	c.regFile.QueueLoad(inst.Rt, value)
	return StepResult{}
}

func (c *CPU) executeMTC0(inst *insts.Instruction) StepResult {
	value := c.regFile.ReadReg(inst.Rt)

	wasEnabled := c.cop0.InterruptsEnabled()

	c.cop0.Write(inst.Rd, value)

	c.regFile.CommitPendingLoad()

	// Unmasking a pending interrupt takes it immediately, after the
	// following instruction's slot.
	if !wasEnabled && c.cop0.InterruptsEnabled() && c.cop0.InterruptPending() {
		c.regFile.PC = c.regFile.NextPC
		return c.raise(ExcInterrupt)
	}

	return StepResult{}
}

func (c *CPU) executeCop2(inst *insts.Instruction) StepResult {
	if !c.cop0.CopUsable(2) {
		c.regFile.CommitPendingLoad()
		return c.raise(ExcCopUnusable)
	}

	switch inst.Op {
	case insts.OpMFC2:
		c.regFile.QueueLoad(inst.Rt, c.gte.ReadData(inst.Rd))
	case insts.OpCFC2:
		c.regFile.QueueLoad(inst.Rt, c.gte.ReadControl(inst.Rd))
	case insts.OpMTC2:
		c.gte.WriteData(inst.Rd, c.regFile.ReadReg(inst.Rt))
		c.regFile.CommitPendingLoad()
	case insts.OpCTC2:
		c.gte.WriteControl(inst.Rd, c.regFile.ReadReg(inst.Rt))
		c.regFile.CommitPendingLoad()
	case insts.OpGTE:
		c.gte.Execute(inst.Command)
		c.regFile.CommitPendingLoad()
	}

	return StepResult{}
}
