// Package latency provides instruction timing models for the R3000A
// pipeline and the geometry coprocessor, configurable via TimingConfig.
package latency

import (
	"github.com/sarchlab/psxcore/insts"
)

// gteCommandNames maps each geometry command opcode to its mnemonic.
var gteCommandNames = map[uint32]string{
	0x01: "RTPS",
	0x06: "NCLIP",
	0x0c: "OP",
	0x10: "DPCS",
	0x11: "INTPL",
	0x12: "MVMVA",
	0x13: "NCDS",
	0x14: "CDP",
	0x16: "NCDT",
	0x1b: "NCCS",
	0x1c: "CC",
	0x1e: "NCS",
	0x20: "NCT",
	0x28: "SQR",
	0x29: "DCPL",
	0x2a: "DPCT",
	0x2d: "AVSZ3",
	0x2e: "AVSZ4",
	0x30: "RTPT",
	0x3d: "GPF",
	0x3e: "GPL",
	0x3f: "NCCT",
}

// Table provides instruction cycle cost lookups. It implements
// emu.CycleCounter.
type Table struct {
	config *TimingConfig
}

// NewTable creates a latency table with default R3000A timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a latency table with a custom timing
// configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// InstructionCost returns the execution cost in cycles for the given
// instruction.
func (t *Table) InstructionCost(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpMULT, insts.OpMULTU:
		return t.config.MultiplyLatency

	case insts.OpDIV, insts.OpDIVU:
		return t.config.DivideLatency

	case insts.OpGTE:
		if name, ok := gteCommandNames[inst.Command&0x3f]; ok {
			if cost, priced := t.config.GTECommandLatency[name]; priced {
				return cost
			}
		}
		return 1

	case insts.OpMFC0, insts.OpMTC0, insts.OpRFE,
		insts.OpMFC2, insts.OpCFC2, insts.OpMTC2, insts.OpCTC2:
		return t.config.CopTransferLatency

	default:
		switch {
		case t.IsLoadOp(inst):
			return t.config.LoadLatency
		case t.IsStoreOp(inst):
			return t.config.StoreLatency
		case t.IsBranchOp(inst):
			return t.config.BranchLatency
		default:
			return t.config.ALULatency
		}
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLB, insts.OpLH, insts.OpLWL, insts.OpLW,
		insts.OpLBU, insts.OpLHU, insts.OpLWR, insts.OpLWC:
		return true
	default:
		return false
	}
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSWL, insts.OpSW,
		insts.OpSWR, insts.OpSWC:
		return true
	default:
		return false
	}
}

// IsBranchOp returns true if the instruction redirects control flow.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpJ, insts.OpJAL, insts.OpJR, insts.OpJALR,
		insts.OpBEQ, insts.OpBNE, insts.OpBLEZ, insts.OpBGTZ,
		insts.OpBcond:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
