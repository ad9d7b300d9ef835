package emu

// GTE flag register bits. Lane-indexed flags are defined for lane 1;
// lanes 2 and 3 sit one and two bits below (use the *Flag helpers).
const (
	// FlagError is the master error bit, the OR of every bit in
	// FlagErrorMask.
	FlagError uint32 = 1 << 31

	FlagMAC1Overflow  uint32 = 1 << 30
	FlagMAC1Underflow uint32 = 1 << 27
	FlagIR1Saturated  uint32 = 1 << 24
	FlagColorRClamped uint32 = 1 << 21
	FlagSZ3Saturated  uint32 = 1 << 18
	FlagDivideOverrun uint32 = 1 << 17
	FlagMAC0Overflow  uint32 = 1 << 16
	FlagMAC0Underflow uint32 = 1 << 15
	FlagSX2Saturated  uint32 = 1 << 14
	FlagSY2Saturated  uint32 = 1 << 13
	FlagIR0Saturated  uint32 = 1 << 12

	// FlagErrorMask selects the bits that raise FlagError.
	FlagErrorMask uint32 = 0x7f87e000

	// flagWritableMask selects the bits a CTC2 to the flag register
	// may set directly.
	flagWritableMask uint32 = 0x7ffff000
)

// macOverflowFlag returns the positive-overflow bit for MAC lane i.
func macOverflowFlag(i int) uint32 {
	return FlagMAC1Overflow >> uint(i-1)
}

// macUnderflowFlag returns the negative-overflow bit for MAC lane i.
func macUnderflowFlag(i int) uint32 {
	return FlagMAC1Underflow >> uint(i-1)
}

// irSaturatedFlag returns the saturation bit for IR lane i.
func irSaturatedFlag(i int) uint32 {
	return FlagIR1Saturated >> uint(i-1)
}

// colorClampedFlag returns the clamp bit for color lane i.
func colorClampedFlag(i int) uint32 {
	return FlagColorRClamped >> uint(i-1)
}

// screenSaturatedFlag returns the screen-coordinate saturation bit for
// axis i (1 for X, 2 for Y).
func screenSaturatedFlag(i int) uint32 {
	return FlagSX2Saturated >> uint(i-1)
}
