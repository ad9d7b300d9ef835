package emu

// Matrix3 is a 3x3 matrix of signed 1.3.12 fixed-point components.
type Matrix3 struct {
	M11, M12, M13 int16
	M21, M22, M23 int16
	M31, M32, M33 int16
}

// Vec2x16 is a pair of signed 16-bit components.
type Vec2x16 struct {
	X, Y int16
}

// Vec3x16 is a triple of signed 16-bit components.
type Vec3x16 struct {
	X, Y, Z int16
}

// Vec3x32 is a triple of signed 32-bit components.
type Vec3x32 struct {
	X, Y, Z int32
}

// Color is an 8-bit RGB triple plus the GPU code byte that rides along
// in the color FIFO.
type Color struct {
	R, G, B, C uint8
}

// unrTable drives the Newton-Raphson reciprocal used by the perspective
// divide.
var unrTable = [0x101]uint8{
	0xFF, 0xFD, 0xFB, 0xF9, 0xF7, 0xF5, 0xF3, 0xF1, 0xEF, 0xEE, 0xEC, 0xEA, 0xE8, 0xE6, 0xE4, 0xE3,
	0xE1, 0xDF, 0xDD, 0xDC, 0xDA, 0xD8, 0xD6, 0xD5, 0xD3, 0xD1, 0xD0, 0xCE, 0xCD, 0xCB, 0xC9, 0xC8,
	0xC6, 0xC5, 0xC3, 0xC1, 0xC0, 0xBE, 0xBD, 0xBB, 0xBA, 0xB8, 0xB7, 0xB5, 0xB4, 0xB2, 0xB1, 0xB0,
	0xAE, 0xAD, 0xAB, 0xAA, 0xA9, 0xA7, 0xA6, 0xA4, 0xA3, 0xA2, 0xA0, 0x9F, 0x9E, 0x9C, 0x9B, 0x9A,
	0x99, 0x97, 0x96, 0x95, 0x94, 0x92, 0x91, 0x90, 0x8F, 0x8D, 0x8C, 0x8B, 0x8A, 0x89, 0x87, 0x86,
	0x85, 0x84, 0x83, 0x82, 0x81, 0x7F, 0x7E, 0x7D, 0x7C, 0x7B, 0x7A, 0x79, 0x78, 0x77, 0x75, 0x74,
	0x73, 0x72, 0x71, 0x70, 0x6F, 0x6E, 0x6D, 0x6C, 0x6B, 0x6A, 0x69, 0x68, 0x67, 0x66, 0x65, 0x64,
	0x63, 0x62, 0x61, 0x60, 0x5F, 0x5E, 0x5D, 0x5D, 0x5C, 0x5B, 0x5A, 0x59, 0x58, 0x57, 0x56, 0x55,
	0x54, 0x53, 0x53, 0x52, 0x51, 0x50, 0x4F, 0x4E, 0x4D, 0x4D, 0x4C, 0x4B, 0x4A, 0x49, 0x48, 0x48,
	0x47, 0x46, 0x45, 0x44, 0x43, 0x43, 0x42, 0x41, 0x40, 0x3F, 0x3F, 0x3E, 0x3D, 0x3C, 0x3C, 0x3B,
	0x3A, 0x39, 0x39, 0x38, 0x37, 0x36, 0x36, 0x35, 0x34, 0x33, 0x33, 0x32, 0x31, 0x31, 0x30, 0x2F,
	0x2E, 0x2E, 0x2D, 0x2C, 0x2C, 0x2B, 0x2A, 0x2A, 0x29, 0x28, 0x28, 0x27, 0x26, 0x26, 0x25, 0x24,
	0x24, 0x23, 0x22, 0x22, 0x21, 0x20, 0x20, 0x1F, 0x1E, 0x1E, 0x1D, 0x1D, 0x1C, 0x1B, 0x1B, 0x1A,
	0x19, 0x19, 0x18, 0x18, 0x17, 0x16, 0x16, 0x15, 0x15, 0x14, 0x14, 0x13, 0x12, 0x12, 0x11, 0x11,
	0x10, 0x0F, 0x0F, 0x0E, 0x0E, 0x0D, 0x0D, 0x0C, 0x0C, 0x0B, 0x0A, 0x0A, 0x09, 0x09, 0x08, 0x08,
	0x07, 0x07, 0x06, 0x06, 0x05, 0x05, 0x04, 0x04, 0x03, 0x03, 0x02, 0x02, 0x01, 0x01, 0x00, 0x00,
	0x00,
}

// GTE is the fixed-point geometry coprocessor: rotation/light/color
// matrix pipelines, perspective transform with Z FIFO, and the flag
// register that records every saturation.
type GTE struct {
	// Control registers.
	Rotation Matrix3
	TR       Vec3x32
	Light    Matrix3
	BK       Vec3x32
	Colour   Matrix3
	FC       Vec3x32

	OFX, OFY   int32
	H          uint16
	DQA        int16
	DQB        int32
	ZSF3, ZSF4 int16

	Flags uint32

	// Data registers.
	V   [3]Vec3x16
	RGB Color
	OTZ uint16
	IR  [4]int16

	SXY     [3]Vec2x16
	SZ      [4]uint16
	RGBFifo [3]Color

	Res1 uint32
	MAC  [4]int32

	LZCS int32
	LZCR int32

	// Fields of the command word being executed.
	sf uint
	mx uint32
	sv uint32
	cv uint32
	lm bool
}

// NewGTE creates a geometry coprocessor with all registers cleared.
func NewGTE() *GTE {
	return &GTE{}
}

// Execute runs one geometry command. The flag register is rebuilt from
// scratch; saturations set flag bits, they never fault. Command words
// whose opcode matches no operation leave all registers untouched,
// the flag register included.
func (g *GTE) Execute(command uint32) {
	var run func()

	switch command & 0x3f {
	case 0x01:
		run = g.commandRTPS
	case 0x06:
		run = g.commandNCLIP
	case 0x0c:
		run = g.commandOP
	case 0x10:
		run = g.commandDPCS
	case 0x11:
		run = g.commandINTPL
	case 0x12:
		run = g.commandMVMVA
	case 0x13:
		run = g.commandNCDS
	case 0x14:
		run = g.commandCDP
	case 0x16:
		run = g.commandNCDT
	case 0x1b:
		run = g.commandNCCS
	case 0x1c:
		run = g.commandCC
	case 0x1e:
		run = g.commandNCS
	case 0x20:
		run = g.commandNCT
	case 0x28:
		run = g.commandSQR
	case 0x29:
		run = g.commandDCPL
	case 0x2a:
		run = g.commandDPCT
	case 0x2d:
		run = g.commandAVSZ3
	case 0x2e:
		run = g.commandAVSZ4
	case 0x30:
		run = g.commandRTPT
	case 0x3d:
		run = g.commandGPF
	case 0x3e:
		run = g.commandGPL
	case 0x3f:
		run = g.commandNCCT
	default:
		return
	}

	g.sf = 0
	if command&0x80000 != 0 {
		g.sf = 12
	}
	g.mx = (command >> 17) & 0x3
	g.sv = (command >> 15) & 0x3
	g.cv = (command >> 13) & 0x3
	g.lm = command&0x400 != 0

	g.Flags = 0
	run()

	if g.Flags&FlagErrorMask != 0 {
		g.Flags |= FlagError
	}
}

// mac accumulates into a 44-bit lane: flag overflow in either
// direction, then wrap to 44 bits.
func (g *GTE) mac(lane int, value int64) int64 {
	if value < -0x80000000000 {
		g.Flags |= macUnderflowFlag(lane)
	}
	if value > 0x7ffffffffff {
		g.Flags |= macOverflowFlag(lane)
	}
	return (value << 20) >> 20
}

// macZero checks a value against the 32-bit MAC0 range. The value is
// returned unclamped; only the flags saturate.
func (g *GTE) macZero(value int64) int64 {
	if value < -0x80000000 {
		g.Flags |= FlagMAC0Underflow
	} else if value > 0x7fffffff {
		g.Flags |= FlagMAC0Overflow
	}
	return value
}

// limIR clamps a MAC lane into an IR register: 0..0x7fff when lm is
// set, otherwise -0x8000..0x7fff.
func (g *GTE) limIR(lane int, value int32, lm bool) int16 {
	if lm && value < 0 {
		g.Flags |= irSaturatedFlag(lane)
		return 0
	}
	if !lm && value < -0x8000 {
		g.Flags |= irSaturatedFlag(lane)
		return -0x8000
	}
	if value > 0x7fff {
		g.Flags |= irSaturatedFlag(lane)
		return 0x7fff
	}
	return int16(value)
}

// limIR3z clamps MAC3 into IR3 during a perspective transform. The
// saturation flag tracks the unshifted Z term, not the clamped value.
func (g *GTE) limIR3z(value int32, z int64, lm bool) int16 {
	if z < -0x8000 || z > 0x7fff {
		g.Flags |= irSaturatedFlag(3)
	}
	if lm && value < 0 {
		return 0
	}
	if !lm && value < -0x8000 {
		return -0x8000
	}
	if value > 0x7fff {
		return 0x7fff
	}
	return int16(value)
}

// limColor clamps a color component into 0..0xff.
func (g *GTE) limColor(lane int, value int32) uint8 {
	if value < 0 {
		g.Flags |= colorClampedFlag(lane)
		return 0
	}
	if value > 0xff {
		g.Flags |= colorClampedFlag(lane)
		return 0xff
	}
	return uint8(value)
}

// limOTZ clamps an ordering-table Z value into 0..0xffff.
func (g *GTE) limOTZ(value int64) uint16 {
	if value < 0 {
		g.Flags |= FlagSZ3Saturated
		return 0
	}
	if value > 0xffff {
		g.Flags |= FlagSZ3Saturated
		return 0xffff
	}
	return uint16(value)
}

// limScreen clamps a screen coordinate into -0x400..0x3ff. Axis 1 is X,
// axis 2 is Y.
func (g *GTE) limScreen(axis int, value int32) int16 {
	if value < -0x400 {
		g.Flags |= screenSaturatedFlag(axis)
		return -0x400
	}
	if value > 0x3ff {
		g.Flags |= screenSaturatedFlag(axis)
		return 0x3ff
	}
	return int16(value)
}

// limIR0 clamps an interpolation factor into 0..0x1000.
func (g *GTE) limIR0(value int64) int16 {
	if value < 0 {
		g.Flags |= FlagIR0Saturated
		return 0
	}
	if value > 0x1000 {
		g.Flags |= FlagIR0Saturated
		return 0x1000
	}
	return int16(value)
}

// Divide computes the perspective quotient h/sz in 1.15.16 format using
// the hardware's table-driven Newton-Raphson reciprocal, clamped to
// 0x1ffff.
func Divide(numerator, divisor uint16) uint32 {
	z := leadingZeros16(divisor)
	n := uint64(numerator) << z
	d := uint64(divisor) << z
	u := uint64(unrTable[(d-0x7fc0)>>7]) + 0x101
	d2 := (0x2000080 - d*u) >> 8
	d3 := (0x80 + d2*u) >> 8
	q := (n*d3 + 0x8000) >> 16
	if q > 0x1ffff {
		return 0x1ffff
	}
	return uint32(q)
}

func leadingZeros16(v uint16) uint {
	n := uint(0)
	for i := 15; i >= 0; i-- {
		if v&(1<<uint(i)) != 0 {
			break
		}
		n++
	}
	return n
}

// leadingCount counts the leading bits of value that match its sign
// bit.
func leadingCount(value int32) int32 {
	leading := uint32(value) >> 31
	count := int32(1)
	for i := uint(1); i < 32; i++ {
		if (uint32(value)>>(31-i))&0x1 == leading {
			count++
		} else {
			break
		}
	}
	return count
}

func saturateRGB5(v int16) uint8 {
	if v > 0x1f {
		return 0x1f
	}
	if v < 0 {
		return 0
	}
	return uint8(v)
}

func (g *GTE) pushSX(sx int16) {
	g.SXY[0].X = g.SXY[1].X
	g.SXY[1].X = g.SXY[2].X
	g.SXY[2].X = sx
}

func (g *GTE) pushSY(sy int16) {
	g.SXY[0].Y = g.SXY[1].Y
	g.SXY[1].Y = g.SXY[2].Y
	g.SXY[2].Y = sy
}

func (g *GTE) pushSZ(sz uint16) {
	g.SZ[0] = g.SZ[1]
	g.SZ[1] = g.SZ[2]
	g.SZ[2] = g.SZ[3]
	g.SZ[3] = sz
}

func (g *GTE) pushRGB(r, g2, b, c uint8) {
	g.RGBFifo[0] = g.RGBFifo[1]
	g.RGBFifo[1] = g.RGBFifo[2]
	g.RGBFifo[2] = Color{R: r, G: g2, B: b, C: c}
}

func packPair(lo, hi int16) uint32 {
	return uint32(uint16(lo)) | uint32(uint16(hi))<<16
}

// ReadControl returns control register index (CFC2).
func (g *GTE) ReadControl(index uint8) uint32 {
	switch index {
	case 0:
		return packPair(g.Rotation.M11, g.Rotation.M12)
	case 1:
		return packPair(g.Rotation.M13, g.Rotation.M21)
	case 2:
		return packPair(g.Rotation.M22, g.Rotation.M23)
	case 3:
		return packPair(g.Rotation.M31, g.Rotation.M32)
	case 4:
		return uint32(g.Rotation.M33)
	case 5:
		return uint32(g.TR.X)
	case 6:
		return uint32(g.TR.Y)
	case 7:
		return uint32(g.TR.Z)
	case 8:
		return packPair(g.Light.M11, g.Light.M12)
	case 9:
		return packPair(g.Light.M13, g.Light.M21)
	case 10:
		return packPair(g.Light.M22, g.Light.M23)
	case 11:
		return packPair(g.Light.M31, g.Light.M32)
	case 12:
		return uint32(g.Light.M33)
	case 13:
		return uint32(g.BK.X)
	case 14:
		return uint32(g.BK.Y)
	case 15:
		return uint32(g.BK.Z)
	case 16:
		return packPair(g.Colour.M11, g.Colour.M12)
	case 17:
		return packPair(g.Colour.M13, g.Colour.M21)
	case 18:
		return packPair(g.Colour.M22, g.Colour.M23)
	case 19:
		return packPair(g.Colour.M31, g.Colour.M32)
	case 20:
		return uint32(g.Colour.M33)
	case 21:
		return uint32(g.FC.X)
	case 22:
		return uint32(g.FC.Y)
	case 23:
		return uint32(g.FC.Z)
	case 24:
		return uint32(g.OFX)
	case 25:
		return uint32(g.OFY)
	case 26:
		// H reads back sign-extended even though it is unsigned.
		return uint32(int32(int16(g.H)))
	case 27:
		return uint32(int32(g.DQA))
	case 28:
		return uint32(g.DQB)
	case 29:
		return uint32(int32(g.ZSF3))
	case 30:
		return uint32(int32(g.ZSF4))
	default:
		return g.Flags
	}
}

// WriteControl stores into control register index (CTC2).
func (g *GTE) WriteControl(index uint8, value uint32) {
	lo := int16(value)
	hi := int16(value >> 16)

	switch index {
	case 0:
		g.Rotation.M11, g.Rotation.M12 = lo, hi
	case 1:
		g.Rotation.M13, g.Rotation.M21 = lo, hi
	case 2:
		g.Rotation.M22, g.Rotation.M23 = lo, hi
	case 3:
		g.Rotation.M31, g.Rotation.M32 = lo, hi
	case 4:
		g.Rotation.M33 = lo
	case 5:
		g.TR.X = int32(value)
	case 6:
		g.TR.Y = int32(value)
	case 7:
		g.TR.Z = int32(value)
	case 8:
		g.Light.M11, g.Light.M12 = lo, hi
	case 9:
		g.Light.M13, g.Light.M21 = lo, hi
	case 10:
		g.Light.M22, g.Light.M23 = lo, hi
	case 11:
		g.Light.M31, g.Light.M32 = lo, hi
	case 12:
		g.Light.M33 = lo
	case 13:
		g.BK.X = int32(value)
	case 14:
		g.BK.Y = int32(value)
	case 15:
		g.BK.Z = int32(value)
	case 16:
		g.Colour.M11, g.Colour.M12 = lo, hi
	case 17:
		g.Colour.M13, g.Colour.M21 = lo, hi
	case 18:
		g.Colour.M22, g.Colour.M23 = lo, hi
	case 19:
		g.Colour.M31, g.Colour.M32 = lo, hi
	case 20:
		g.Colour.M33 = lo
	case 21:
		g.FC.X = int32(value)
	case 22:
		g.FC.Y = int32(value)
	case 23:
		g.FC.Z = int32(value)
	case 24:
		g.OFX = int32(value)
	case 25:
		g.OFY = int32(value)
	case 26:
		g.H = uint16(value)
	case 27:
		g.DQA = lo
	case 28:
		g.DQB = int32(value)
	case 29:
		g.ZSF3 = lo
	case 30:
		g.ZSF4 = lo
	case 31:
		g.Flags = value & flagWritableMask
		if value&FlagErrorMask != 0 {
			g.Flags |= FlagError
		}
	}
}

// ReadData returns data register index (MFC2, SWC2).
func (g *GTE) ReadData(index uint8) uint32 {
	switch index {
	case 0:
		return packPair(g.V[0].X, g.V[0].Y)
	case 1:
		return uint32(int32(g.V[0].Z))
	case 2:
		return packPair(g.V[1].X, g.V[1].Y)
	case 3:
		return uint32(int32(g.V[1].Z))
	case 4:
		return packPair(g.V[2].X, g.V[2].Y)
	case 5:
		return uint32(int32(g.V[2].Z))
	case 6:
		return uint32(g.RGB.R) | uint32(g.RGB.G)<<8 | uint32(g.RGB.B)<<16 | uint32(g.RGB.C)<<24
	case 7:
		return uint32(g.OTZ)
	case 8:
		return uint32(int32(g.IR[0]))
	case 9:
		return uint32(int32(g.IR[1]))
	case 10:
		return uint32(int32(g.IR[2]))
	case 11:
		return uint32(int32(g.IR[3]))
	case 12:
		return packPair(g.SXY[0].X, g.SXY[0].Y)
	case 13:
		return packPair(g.SXY[1].X, g.SXY[1].Y)
	case 14, 15:
		return packPair(g.SXY[2].X, g.SXY[2].Y)
	case 16:
		return uint32(g.SZ[0])
	case 17:
		return uint32(g.SZ[1])
	case 18:
		return uint32(g.SZ[2])
	case 19:
		return uint32(g.SZ[3])
	case 20, 21, 22:
		c := g.RGBFifo[index-20]
		return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.C)<<24
	case 23:
		return g.Res1
	case 24:
		return uint32(g.MAC[0])
	case 25:
		return uint32(g.MAC[1])
	case 26:
		return uint32(g.MAC[2])
	case 27:
		return uint32(g.MAC[3])
	case 28, 29:
		r := uint32(saturateRGB5(g.IR[1] >> 7))
		gg := uint32(saturateRGB5(g.IR[2] >> 7))
		b := uint32(saturateRGB5(g.IR[3] >> 7))
		return r | gg<<5 | b<<10
	case 30:
		return uint32(g.LZCS)
	default:
		return uint32(g.LZCR)
	}
}

// WriteData stores into data register index (MTC2, LWC2).
func (g *GTE) WriteData(index uint8, value uint32) {
	lo := int16(value)
	hi := int16(value >> 16)

	switch index {
	case 0:
		g.V[0].X, g.V[0].Y = lo, hi
	case 1:
		g.V[0].Z = lo
	case 2:
		g.V[1].X, g.V[1].Y = lo, hi
	case 3:
		g.V[1].Z = lo
	case 4:
		g.V[2].X, g.V[2].Y = lo, hi
	case 5:
		g.V[2].Z = lo
	case 6:
		g.RGB = Color{R: uint8(value), G: uint8(value >> 8), B: uint8(value >> 16), C: uint8(value >> 24)}
	case 7:
		g.OTZ = uint16(value)
	case 8:
		g.IR[0] = lo
	case 9:
		g.IR[1] = lo
	case 10:
		g.IR[2] = lo
	case 11:
		g.IR[3] = lo
	case 12:
		g.SXY[0].X, g.SXY[0].Y = lo, hi
	case 13:
		g.SXY[1].X, g.SXY[1].Y = lo, hi
	case 14:
		g.SXY[2].X, g.SXY[2].Y = lo, hi
	case 15:
		// Writing the SXYP mirror pushes the FIFO.
		g.pushSX(lo)
		g.pushSY(hi)
	case 16:
		g.SZ[0] = uint16(value)
	case 17:
		g.SZ[1] = uint16(value)
	case 18:
		g.SZ[2] = uint16(value)
	case 19:
		g.SZ[3] = uint16(value)
	case 20, 21, 22:
		g.RGBFifo[index-20] = Color{R: uint8(value), G: uint8(value >> 8), B: uint8(value >> 16), C: uint8(value >> 24)}
	case 23:
		g.Res1 = value
	case 24:
		g.MAC[0] = int32(value)
	case 25:
		g.MAC[1] = int32(value)
	case 26:
		g.MAC[2] = int32(value)
	case 27:
		g.MAC[3] = int32(value)
	case 28:
		// IRGB expands a 5:5:5 color into the IR registers.
		g.IR[1] = int16((value & 0x1f) << 7)
		g.IR[2] = int16(((value >> 5) & 0x1f) << 7)
		g.IR[3] = int16(((value >> 10) & 0x1f) << 7)
	case 29:
		// ORGB is read-only.
	case 30:
		g.LZCS = int32(value)
		g.LZCR = leadingCount(g.LZCS)
	case 31:
		// LZCR is read-only.
	}
}
