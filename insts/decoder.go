package insts

// Op represents a MIPS-I opcode.
type Op uint16

// MIPS-I opcodes.
const (
	OpIllegal Op = iota

	// SPECIAL class (primary opcode 0b000000)
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpSYSCALL
	OpBREAK
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU

	// REGIMM class (primary opcode 0b000001)
	OpBcond

	// Jumps and branches
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ

	// ALU immediates
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI

	// Coprocessor 0
	OpMFC0
	OpMTC0
	OpRFE

	// Coprocessor 2 (geometry)
	OpMFC2
	OpCFC2
	OpMTC2
	OpCTC2
	OpGTE

	// Absent coprocessors
	OpCOP1
	OpCOP3

	// Loads
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR

	// Stores
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSWR

	// Coprocessor loads/stores
	OpLWC
	OpSWC
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatIllegal Format = iota
	FormatReg            // SPECIAL three-register / shift / HI-LO / trap
	FormatImm            // ALU immediate
	FormatBranch         // PC-relative branch
	FormatJump           // 26-bit absolute-region jump
	FormatMem            // load or store
	FormatCop            // coprocessor move, control or command
)

// Instruction represents a decoded MIPS-I instruction.
type Instruction struct {
	Op     Op     // Operation code
	Format Format // Encoding format

	// Register fields
	Rs uint8 // First source register (bits [25:21])
	Rt uint8 // Second source / destination register (bits [20:16])
	Rd uint8 // Destination register (bits [15:11])

	// Immediate fields
	Shamt  uint8  // Shift amount (bits [10:6])
	Imm    uint32 // Zero-extended 16-bit immediate
	SImm   uint32 // Sign-extended 16-bit immediate
	Target uint32 // 26-bit jump target (bits [25:0])

	// BranchOffset is the sign-extended immediate shifted left two bits,
	// ready to add to the delay-slot PC.
	BranchOffset uint32

	// REGIMM branch variants
	Bgez bool // compare >= 0 instead of < 0
	Link bool // write the return address to R31

	// Coprocessor fields
	CopNum  uint8  // Coprocessor number for LWC/SWC (bits [27:26])
	Command uint32 // Geometry command word (bits [24:0])

	// Word is the raw instruction word.
	Word uint32
}

// Decoder decodes MIPS-I machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new MIPS-I instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit MIPS-I instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	inst := &Instruction{
		Op:     OpIllegal,
		Format: FormatIllegal,
		Word:   word,

		Rs: uint8((word >> 21) & 0x1F),
		Rt: uint8((word >> 16) & 0x1F),
		Rd: uint8((word >> 11) & 0x1F),

		Shamt:  uint8((word >> 6) & 0x1F),
		Imm:    word & 0xFFFF,
		SImm:   uint32(int32(int16(word & 0xFFFF))),
		Target: word & 0x3FFFFFF,
	}
	inst.BranchOffset = inst.SImm << 2

	switch word >> 26 {
	case 0b000000:
		d.decodeSpecial(word, inst)
	case 0b000001:
		d.decodeBcond(word, inst)
	case 0b000010:
		inst.Op, inst.Format = OpJ, FormatJump
	case 0b000011:
		inst.Op, inst.Format = OpJAL, FormatJump
	case 0b000100:
		inst.Op, inst.Format = OpBEQ, FormatBranch
	case 0b000101:
		inst.Op, inst.Format = OpBNE, FormatBranch
	case 0b000110:
		inst.Op, inst.Format = OpBLEZ, FormatBranch
	case 0b000111:
		inst.Op, inst.Format = OpBGTZ, FormatBranch
	case 0b001000:
		inst.Op, inst.Format = OpADDI, FormatImm
	case 0b001001:
		inst.Op, inst.Format = OpADDIU, FormatImm
	case 0b001010:
		inst.Op, inst.Format = OpSLTI, FormatImm
	case 0b001011:
		inst.Op, inst.Format = OpSLTIU, FormatImm
	case 0b001100:
		inst.Op, inst.Format = OpANDI, FormatImm
	case 0b001101:
		inst.Op, inst.Format = OpORI, FormatImm
	case 0b001110:
		inst.Op, inst.Format = OpXORI, FormatImm
	case 0b001111:
		inst.Op, inst.Format = OpLUI, FormatImm
	case 0b010000:
		d.decodeCop0(word, inst)
	case 0b010001:
		inst.Op, inst.Format = OpCOP1, FormatCop
	case 0b010010:
		d.decodeCop2(word, inst)
	case 0b010011:
		inst.Op, inst.Format = OpCOP3, FormatCop
	case 0b100000:
		inst.Op, inst.Format = OpLB, FormatMem
	case 0b100001:
		inst.Op, inst.Format = OpLH, FormatMem
	case 0b100010:
		inst.Op, inst.Format = OpLWL, FormatMem
	case 0b100011:
		inst.Op, inst.Format = OpLW, FormatMem
	case 0b100100:
		inst.Op, inst.Format = OpLBU, FormatMem
	case 0b100101:
		inst.Op, inst.Format = OpLHU, FormatMem
	case 0b100110:
		inst.Op, inst.Format = OpLWR, FormatMem
	case 0b101000:
		inst.Op, inst.Format = OpSB, FormatMem
	case 0b101001:
		inst.Op, inst.Format = OpSH, FormatMem
	case 0b101010:
		inst.Op, inst.Format = OpSWL, FormatMem
	case 0b101011:
		inst.Op, inst.Format = OpSW, FormatMem
	case 0b101110:
		inst.Op, inst.Format = OpSWR, FormatMem
	case 0b110000, 0b110001, 0b110010, 0b110011:
		inst.Op, inst.Format = OpLWC, FormatMem
		inst.CopNum = uint8((word >> 26) & 0x3)
	case 0b111000, 0b111001, 0b111010, 0b111011:
		inst.Op, inst.Format = OpSWC, FormatMem
		inst.CopNum = uint8((word >> 26) & 0x3)
	}

	return inst
}

var specialOps = map[uint32]Op{
	0b000000: OpSLL,
	0b000010: OpSRL,
	0b000011: OpSRA,
	0b000100: OpSLLV,
	0b000110: OpSRLV,
	0b000111: OpSRAV,
	0b001000: OpJR,
	0b001001: OpJALR,
	0b001100: OpSYSCALL,
	0b001101: OpBREAK,
	0b010000: OpMFHI,
	0b010001: OpMTHI,
	0b010010: OpMFLO,
	0b010011: OpMTLO,
	0b011000: OpMULT,
	0b011001: OpMULTU,
	0b011010: OpDIV,
	0b011011: OpDIVU,
	0b100000: OpADD,
	0b100001: OpADDU,
	0b100010: OpSUB,
	0b100011: OpSUBU,
	0b100100: OpAND,
	0b100101: OpOR,
	0b100110: OpXOR,
	0b100111: OpNOR,
	0b101010: OpSLT,
	0b101011: OpSLTU,
}

// decodeSpecial decodes the SPECIAL class using the function field.
// Format: 000000 | rs | rt | rd | shamt | funct
func (d *Decoder) decodeSpecial(word uint32, inst *Instruction) {
	if op, ok := specialOps[word&0x3F]; ok {
		inst.Op = op
		inst.Format = FormatReg
	}
}

// decodeBcond decodes the REGIMM branch class. The rt field selects the
// variant: bit 16 flips the comparison to >= 0, and the variant links
// when bits [20:17] equal 0b1000. All 32 rt values are architecturally
// valid branches.
// Format: 000001 | rs | variant | offset
func (d *Decoder) decodeBcond(word uint32, inst *Instruction) {
	inst.Op = OpBcond
	inst.Format = FormatBranch
	inst.Bgez = (word>>16)&1 == 1
	inst.Link = (word>>17)&0xF == 0x8
}

// decodeCop0 decodes coprocessor-0 moves and RFE. The rs field selects
// the operation; RFE is the only valid COP0 command.
// Format: 010000 | sub | rt | rd | 0...0 | funct
func (d *Decoder) decodeCop0(word uint32, inst *Instruction) {
	inst.Format = FormatCop

	switch (word >> 21) & 0x1F {
	case 0b00000:
		inst.Op = OpMFC0
	case 0b00100:
		inst.Op = OpMTC0
	case 0b10000:
		if word&0x3F == 0b010000 {
			inst.Op = OpRFE
		}
	}
}

// decodeCop2 decodes geometry coprocessor moves and commands. Bit 25
// set means a command word; otherwise the rs field selects the move.
// Format: 010010 | sub | rt | rd | ... or 010010 | 1 | command
func (d *Decoder) decodeCop2(word uint32, inst *Instruction) {
	inst.Format = FormatCop

	if (word>>25)&1 == 1 {
		inst.Op = OpGTE
		inst.Command = word & 0x1FFFFFF
		return
	}

	switch (word >> 21) & 0x1F {
	case 0b00000:
		inst.Op = OpMFC2
	case 0b00010:
		inst.Op = OpCFC2
	case 0b00100:
		inst.Op = OpMTC2
	case 0b00110:
		inst.Op = OpCTC2
	}
}
