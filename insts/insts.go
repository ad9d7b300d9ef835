// Package insts provides MIPS R3000A instruction definitions and decoding.
//
// This package implements decoding of MIPS-I machine code into structured
// instruction representations. It supports:
//   - SPECIAL operations: shifts, jumps-through-register, HI/LO moves,
//     multiply/divide, three-register ALU operations, SYSCALL and BREAK
//   - Immediate operations: ALU immediates, LUI, branches, loads and stores
//     (including the unaligned LWL/LWR/SWL/SWR family)
//   - Coprocessor operations: COP0 moves and RFE, COP2 moves and geometry
//     commands, LWC/SWC
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x24010005) // ADDIU R1, R0, 5
//	fmt.Printf("Op: %v, Rt: %d, Rs: %d, SImm: %d\n", inst.Op, inst.Rt, inst.Rs, inst.SImm)
//
// Decoding is total: every 32-bit word produces an instruction. Words that
// match no architectural encoding decode to OpIllegal, which the executor
// turns into a reserved-instruction exception.
package insts
