package emu

// RegFile represents the R3000A register file.
// It contains 32 general-purpose registers (R0 is hard-wired to zero),
// the HI/LO multiply-divide pair, and the two program counters that give
// the pipeline its one-instruction branch delay.
type RegFile struct {
	// R holds general-purpose registers R0-R31.
	// R[0] always reads as 0; writes to it are discarded.
	R [32]uint32

	// HI and LO hold multiply and divide results.
	HI uint32
	LO uint32

	// PC is the address of the instruction about to execute.
	PC uint32

	// NextPC is the address after PC. It diverges from PC+4 once a
	// branch is taken, which is what makes the delay slot execute.
	NextPC uint32

	// Pending load delay slot. A load queued here becomes visible one
	// instruction later; until then the target register reads its old
	// value.
	PendingReg uint8
	PendingVal uint32
	HasPending bool
}

// NewRegFile creates a register file with PC at the given reset address.
func NewRegFile(resetPC uint32) *RegFile {
	return &RegFile{
		PC:     resetPC,
		NextPC: resetPC + 4,
	}
}

// ReadReg reads a register value. Register 0 always reads as 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg >= 32 {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are
// discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.R[reg] = value
}

// QueueLoad schedules a delayed load of value into reg. If a different
// register already has a load in flight, that load commits first. A
// second load to the same register replaces the in-flight value without
// committing it, matching the hardware's delay-slot behavior.
func (r *RegFile) QueueLoad(reg uint8, value uint32) {
	if r.HasPending && r.PendingReg != reg {
		r.WriteReg(r.PendingReg, r.PendingVal)
	}
	r.PendingReg = reg
	r.PendingVal = value
	r.HasPending = true
}

// CommitPendingLoad makes an in-flight load visible. Callers invoke it
// after reading an instruction's operands so that the instruction in the
// load delay slot still sees the old register value.
func (r *RegFile) CommitPendingLoad() {
	if !r.HasPending {
		return
	}
	r.WriteReg(r.PendingReg, r.PendingVal)
	r.HasPending = false
}

// PendingLoadValue returns the in-flight load value for reg, if any.
// LWL and LWR use this to merge with a load still in its delay slot
// instead of the stale register value.
func (r *RegFile) PendingLoadValue(reg uint8) (uint32, bool) {
	if r.HasPending && r.PendingReg == reg {
		return r.PendingVal, true
	}
	return 0, false
}
