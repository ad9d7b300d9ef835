package emu

import (
	"encoding/json"
	"fmt"
	"os"
)

// Snapshot captures the complete architectural state of a CPU. The bus
// is external and not included; the instruction cache is, so isolated
// cache contents survive a round trip.
type Snapshot struct {
	Regs   [32]uint32 `json:"regs"`
	HI     uint32     `json:"hi"`
	LO     uint32     `json:"lo"`
	PC     uint32     `json:"pc"`
	NextPC uint32     `json:"next_pc"`

	PendingReg uint8  `json:"pending_reg"`
	PendingVal uint32 `json:"pending_val"`
	HasPending bool   `json:"has_pending"`

	BranchDelay    bool `json:"branch_delay"`
	BranchTaken    bool `json:"branch_taken"`
	ExcBranchDelay bool `json:"exc_branch_delay"`
	ExcBranchTaken bool `json:"exc_branch_taken"`

	CurrentPC          uint32 `json:"current_pc"`
	CurrentInstruction uint32 `json:"current_instruction"`

	Cop0 Cop0 `json:"cop0"`
	GTE  GTE  `json:"gte"`

	CacheControl uint32      `json:"cache_control"`
	CacheLines   []CacheLine `json:"cache_lines"`

	InterruptLines uint8 `json:"interrupt_lines"`

	InstructionCount uint64 `json:"instruction_count"`
	Cycles           uint64 `json:"cycles"`
}

// Snapshot captures the CPU's current state. The geometry coprocessor's
// command-word scratch is reassigned on every Execute and is not
// architectural state, so it is zeroed here; a snapshot of a live CPU
// and of its restored twin compare equal.
func (c *CPU) Snapshot() *Snapshot {
	gte := *c.gte
	gte.sf = 0
	gte.mx = 0
	gte.sv = 0
	gte.cv = 0
	gte.lm = false

	return &Snapshot{
		Regs:   c.regFile.R,
		HI:     c.regFile.HI,
		LO:     c.regFile.LO,
		PC:     c.regFile.PC,
		NextPC: c.regFile.NextPC,

		PendingReg: c.regFile.PendingReg,
		PendingVal: c.regFile.PendingVal,
		HasPending: c.regFile.HasPending,

		BranchDelay:    c.branchDelay,
		BranchTaken:    c.branchTaken,
		ExcBranchDelay: c.excBranchDelay,
		ExcBranchTaken: c.excBranchTaken,

		CurrentPC:          c.currentPC,
		CurrentInstruction: c.currentInstruction,

		Cop0: *c.cop0,
		GTE:  gte,

		CacheControl: c.cacheControl,
		CacheLines:   c.icache.Lines(),

		InterruptLines: c.interruptLines,

		InstructionCount: c.instructionCount,
		Cycles:           c.cycles,
	}
}

// Restore replaces the CPU's state with a snapshot.
func (c *CPU) Restore(s *Snapshot) {
	c.regFile.R = s.Regs
	c.regFile.R[0] = 0
	c.regFile.HI = s.HI
	c.regFile.LO = s.LO
	c.regFile.PC = s.PC
	c.regFile.NextPC = s.NextPC

	c.regFile.PendingReg = s.PendingReg
	c.regFile.PendingVal = s.PendingVal
	c.regFile.HasPending = s.HasPending

	c.branchDelay = s.BranchDelay
	c.branchTaken = s.BranchTaken
	c.excBranchDelay = s.ExcBranchDelay
	c.excBranchTaken = s.ExcBranchTaken

	c.currentPC = s.CurrentPC
	c.currentInstruction = s.CurrentInstruction

	*c.cop0 = s.Cop0
	*c.gte = s.GTE

	c.cacheControl = s.CacheControl
	c.icache.SetLines(s.CacheLines)

	c.interruptLines = s.InterruptLines

	c.instructionCount = s.InstructionCount
	c.cycles = s.Cycles
}

// SaveSnapshot writes a snapshot to a JSON file.
func SaveSnapshot(s *Snapshot, filename string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}

	return nil
}

// LoadSnapshot reads a snapshot from a JSON file.
func LoadSnapshot(filename string) (*Snapshot, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	s := &Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot file: %w", err)
	}

	return s, nil
}
