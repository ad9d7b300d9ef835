package emu

// Exception identifies an R3000A exception cause code.
type Exception uint8

// Exception cause codes.
const (
	ExcInterrupt   Exception = 0x0
	ExcAddrLoad    Exception = 0x4
	ExcAddrStore   Exception = 0x5
	ExcIBusError   Exception = 0x6
	ExcDBusError   Exception = 0x7
	ExcSyscall     Exception = 0x8
	ExcBreakpoint  Exception = 0x9
	ExcReserved    Exception = 0xa
	ExcCopUnusable Exception = 0xb
	ExcOverflow    Exception = 0xc
)

// Status register bits.
const (
	srInterruptEnable uint32 = 1 << 0
	srIsolateCache    uint32 = 1 << 16
	srBootVectors     uint32 = 1 << 22
	srTLBShutdown     uint32 = 1 << 21

	// Writable status bits: coprocessor usability, reverse endianness,
	// BEV, diagnostic bits, interrupt mask and the mode stack.
	srWritableMask uint32 = 0xf27fff3f
)

// Cause register bits.
const (
	causeCodeMask     uint32 = 0x7c
	causeSoftIntMask  uint32 = 0x300
	causeHardIntShift        = 10
	causeIPMask       uint32 = 0xff00
	causeCEShift             = 28
	causeBranchTaken  uint32 = 1 << 30
	causeBranchDelay  uint32 = 1 << 31
)

// Exception vectors, selected by the status BEV bit.
const (
	vectorGeneral     uint32 = 0x80000080
	vectorGeneralBoot uint32 = 0xbfc00180
)

// Cop0 is the system-control coprocessor: status, cause, EPC and the
// breakpoint registers. It decides exception vectors and keeps the
// three-deep interrupt-enable/mode stack.
type Cop0 struct {
	SR       uint32
	Cause    uint32
	EPC      uint32
	BadVaddr uint32

	// TargetAddr latches the branch target when an exception hits a
	// delay slot (the JUMPDEST register).
	TargetAddr uint32

	// Hardware breakpoint registers, storage only.
	BPC  uint32
	BDA  uint32
	DCIC uint32
	BDAM uint32
	BPCM uint32
}

// NewCop0 creates a system-control coprocessor in its reset state.
func NewCop0() *Cop0 {
	c := &Cop0{}
	c.Reset()
	return c
}

// Reset puts the coprocessor in its power-on state: boot exception
// vectors selected, interrupts disabled, kernel mode.
func (c *Cop0) Reset() {
	c.SR = srBootVectors | srTLBShutdown
	c.Cause = 0
}

// Read returns the value of a coprocessor register. Reading one of the
// reserved registers (0, 2, 4, 10 or anything past 15) is a
// reserved-instruction exception, reported via ok=false.
func (c *Cop0) Read(reg uint8) (value uint32, ok bool) {
	switch reg {
	case 3:
		return c.BPC, true
	case 5:
		return c.BDA, true
	case 6:
		return c.TargetAddr, true
	case 7:
		return c.DCIC, true
	case 8:
		return c.BadVaddr, true
	case 9:
		return c.BDAM, true
	case 11:
		return c.BPCM, true
	case 12:
		return c.SR, true
	case 13:
		return c.Cause, true
	case 14:
		return c.EPC, true
	case 15:
		// Processor revision identifier.
		return 0x00000002, true
	default:
		return 0, false
	}
}

// Write stores a value into a coprocessor register. Read-only and
// reserved registers ignore the write.
func (c *Cop0) Write(reg uint8, value uint32) {
	switch reg {
	case 3:
		c.BPC = value
	case 5:
		c.BDA = value
	case 7:
		c.DCIC = value
	case 9:
		c.BDAM = value
	case 11:
		c.BPCM = value
	case 12:
		c.SR = value & srWritableMask
	case 13:
		// Only the software interrupt bits are writable.
		c.Cause = (c.Cause &^ causeSoftIntMask) | (value & causeSoftIntMask)
	}
}

// EnterException records an exception and returns the handler address.
// epc is the address to resume at (already adjusted to the branch when
// the fault hit a delay slot is the caller's job via inDelaySlot). The
// mode stack shifts current into previous and previous into old.
func (c *Cop0) EnterException(exc Exception, epc uint32, inDelaySlot, branchTaken bool, copNum uint8) uint32 {
	mode := c.SR & 0x3f
	c.SR = (c.SR &^ 0x3f) | ((mode << 2) & 0x3f)

	c.Cause &= causeIPMask
	c.Cause |= uint32(exc) << 2
	c.Cause |= uint32(copNum&0x3) << causeCEShift
	if inDelaySlot {
		c.Cause |= causeBranchDelay
		if branchTaken {
			c.Cause |= causeBranchTaken
		}
	}

	c.EPC = epc

	if c.SR&srBootVectors != 0 {
		return vectorGeneralBoot
	}
	return vectorGeneral
}

// LeaveException pops the interrupt-enable/mode stack (RFE). The old
// entry stays in place, as on hardware.
func (c *Cop0) LeaveException() {
	mode := c.SR & 0x3f
	c.SR = (c.SR &^ 0x0f) | ((mode >> 2) & 0x0f)
}

// SetInterruptLines latches the six external interrupt request lines
// into the cause IP field.
func (c *Cop0) SetInterruptLines(lines uint8) {
	c.Cause = (c.Cause &^ (uint32(0x3f) << causeHardIntShift)) |
		(uint32(lines&0x3f) << causeHardIntShift)
}

// InterruptsEnabled reports whether the current interrupt-enable bit is
// set.
func (c *Cop0) InterruptsEnabled() bool {
	return c.SR&srInterruptEnable != 0
}

// InterruptPending reports whether any unmasked interrupt is asserted.
func (c *Cop0) InterruptPending() bool {
	return c.SR&c.Cause&causeIPMask != 0
}

// PendingInterruptLine returns the lowest asserted unmasked interrupt
// bit, counting from IP0. Valid only when InterruptPending is true.
func (c *Cop0) PendingInterruptLine() uint8 {
	pending := (c.SR & c.Cause & causeIPMask) >> 8
	for i := uint8(0); i < 8; i++ {
		if pending&(1<<i) != 0 {
			return i
		}
	}
	return 0
}

// IsolateCache reports whether data accesses are redirected to the
// instruction cache.
func (c *Cop0) IsolateCache() bool {
	return c.SR&srIsolateCache != 0
}

// BootVectors reports whether the ROM exception vectors are selected.
func (c *Cop0) BootVectors() bool {
	return c.SR&srBootVectors != 0
}

// CopUsable reports whether coprocessor n may be used. Coprocessor 0 is
// always usable in kernel mode.
func (c *Cop0) CopUsable(n uint8) bool {
	if n == 0 && c.SR&0x2 == 0 {
		return true
	}
	return c.SR&(1<<(28+uint32(n))) != 0
}
