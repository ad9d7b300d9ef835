package emu

// matrixVector runs the three-stage multiply-accumulate every matrix
// command shares: t + M*v, flagging each intermediate against the
// 44-bit MAC range.
func (g *GTE) matrixVector(m *Matrix3, vx, vy, vz, tx, ty, tz int64) [3]int64 {
	var t [3]int64

	t[0] = g.mac(1, tx+int64(m.M11)*vx)
	t[1] = g.mac(2, ty+int64(m.M21)*vx)
	t[2] = g.mac(3, tz+int64(m.M31)*vx)

	t[0] = g.mac(1, t[0]+int64(m.M12)*vy)
	t[1] = g.mac(2, t[1]+int64(m.M22)*vy)
	t[2] = g.mac(3, t[2]+int64(m.M32)*vy)

	t[0] = g.mac(1, t[0]+int64(m.M13)*vz)
	t[1] = g.mac(2, t[1]+int64(m.M23)*vz)
	t[2] = g.mac(3, t[2]+int64(m.M33)*vz)

	return t
}

// setMACIR shifts the accumulators into MAC1..MAC3 and clamps them into
// IR1..IR3.
func (g *GTE) setMACIR(t [3]int64, lm bool) {
	g.MAC[1] = int32(t[0] >> g.sf)
	g.MAC[2] = int32(t[1] >> g.sf)
	g.MAC[3] = int32(t[2] >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)
}

// pushColorFromMAC converts MAC1..MAC3 to a color and pushes it on the
// color FIFO with the current code byte.
func (g *GTE) pushColorFromMAC() {
	r := g.limColor(1, g.MAC[1]>>4)
	gg := g.limColor(2, g.MAC[2]>>4)
	b := g.limColor(3, g.MAC[3]>>4)
	g.pushRGB(r, gg, b, g.RGB.C)
}

func (g *GTE) commandRTPS() {
	g.rtp(0, true)
}

func (g *GTE) commandRTPT() {
	g.rtp(0, false)
	g.rtp(1, false)
	g.rtp(2, true)
}

// rtp transforms vertex index through the rotation matrix, projects it
// and pushes the screen FIFOs. dq computes the depth-cue interpolation
// factor on the final vertex of a command.
func (g *GTE) rtp(index int, dq bool) {
	lm := g.lm

	v := g.V[index]
	t := g.matrixVector(&g.Rotation,
		int64(v.X), int64(v.Y), int64(v.Z),
		int64(g.TR.X)<<12, int64(g.TR.Y)<<12, int64(g.TR.Z)<<12)

	g.MAC[1] = int32(t[0] >> g.sf)
	g.MAC[2] = int32(t[1] >> g.sf)
	g.MAC[3] = int32(t[2] >> g.sf)

	zs := t[2] >> 12

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR3z(g.MAC[3], zs, lm)

	sz3 := g.limOTZ(zs)
	g.pushSZ(sz3)

	var hDivSZ uint32
	if sz3 > g.H/2 {
		hDivSZ = Divide(g.H, sz3)
	} else {
		g.Flags |= FlagDivideOverrun
		hDivSZ = 0x1ffff
	}

	sx := int64(g.OFX) + int64(g.IR[1])*int64(hDivSZ)
	g.pushSX(g.limScreen(1, int32(g.macZero(sx)>>16)))

	sy := int64(g.OFY) + int64(g.IR[2])*int64(hDivSZ)
	g.pushSY(g.limScreen(2, int32(g.macZero(sy)>>16)))

	if dq {
		depth := int64(g.DQB) + int64(g.DQA)*int64(hDivSZ)
		g.MAC[0] = int32(g.macZero(depth))
		g.IR[0] = g.limIR0(depth >> 12)
	}
}

func (g *GTE) commandNCLIP() {
	p := int64(g.SXY[0].X)*int64(g.SXY[1].Y) +
		int64(g.SXY[1].X)*int64(g.SXY[2].Y) +
		int64(g.SXY[2].X)*int64(g.SXY[0].Y) -
		int64(g.SXY[0].X)*int64(g.SXY[2].Y) -
		int64(g.SXY[1].X)*int64(g.SXY[0].Y) -
		int64(g.SXY[2].X)*int64(g.SXY[1].Y)

	g.MAC[0] = int32(g.macZero(p))
}

func (g *GTE) commandOP() {
	lm := g.lm

	ir1 := int64(g.IR[1])
	ir2 := int64(g.IR[2])
	ir3 := int64(g.IR[3])

	d1 := int64(g.Rotation.M11)
	d2 := int64(g.Rotation.M22)
	d3 := int64(g.Rotation.M33)

	var t [3]int64
	t[0] = g.mac(1, ir3*d2-ir2*d3)
	t[1] = g.mac(2, ir1*d3-ir3*d1)
	t[2] = g.mac(3, ir2*d1-ir1*d2)

	g.setMACIR(t, lm)
}

func (g *GTE) commandDPCS() {
	g.dpc(false)
}

func (g *GTE) commandDPCT() {
	g.dpc(true)
	g.dpc(true)
	g.dpc(true)
}

// dpc interpolates a color toward the far color. The triple form pulls
// its source from the FIFO tail so three passes fade three colors.
func (g *GTE) dpc(useFifo bool) {
	lm := g.lm

	src := g.RGB
	if useFifo {
		src = g.RGBFifo[0]
	}

	r := int64(src.R) << 16
	cg := int64(src.G) << 16
	b := int64(src.B) << 16

	rfc := int64(g.FC.X) << 12
	gfc := int64(g.FC.Y) << 12
	bfc := int64(g.FC.Z) << 12

	g.MAC[1] = int32(g.mac(1, rfc-r) >> g.sf)
	g.MAC[2] = int32(g.mac(2, gfc-cg) >> g.sf)
	g.MAC[3] = int32(g.mac(3, bfc-b) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], false)
	g.IR[2] = g.limIR(2, g.MAC[2], false)
	g.IR[3] = g.limIR(3, g.MAC[3], false)

	ir0 := int64(g.IR[0])

	g.MAC[1] = int32(g.mac(1, r+int64(g.IR[1])*ir0) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg+int64(g.IR[2])*ir0) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b+int64(g.IR[3])*ir0) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandINTPL() {
	lm := g.lm

	prevIR1 := int64(g.IR[1]) << 12
	prevIR2 := int64(g.IR[2]) << 12
	prevIR3 := int64(g.IR[3]) << 12

	rfc := int64(g.FC.X) << 12
	gfc := int64(g.FC.Y) << 12
	bfc := int64(g.FC.Z) << 12

	g.MAC[1] = int32(g.mac(1, rfc-prevIR1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, gfc-prevIR2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, bfc-prevIR3) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], false)
	g.IR[2] = g.limIR(2, g.MAC[2], false)
	g.IR[3] = g.limIR(3, g.MAC[3], false)

	ir0 := int64(g.IR[0])

	g.MAC[1] = int32(g.mac(1, prevIR1+int64(g.IR[1])*ir0) >> g.sf)
	g.MAC[2] = int32(g.mac(2, prevIR2+int64(g.IR[2])*ir0) >> g.sf)
	g.MAC[3] = int32(g.mac(3, prevIR3+int64(g.IR[3])*ir0) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandMVMVA() {
	sf := g.sf
	lm := g.lm

	var m Matrix3
	switch g.mx {
	case 0:
		m = g.Rotation
	case 1:
		m = g.Light
	case 2:
		m = g.Colour
	case 3:
		// The reserved matrix selector assembles this garbage matrix
		// on hardware; games use it.
		m = Matrix3{
			M11: -(int16(g.RGB.R) << 4),
			M12: int16(g.RGB.R) << 4,
			M13: g.IR[0],
			M21: g.Rotation.M13,
			M22: g.Rotation.M13,
			M23: g.Rotation.M13,
			M31: g.Rotation.M22,
			M32: g.Rotation.M22,
			M33: g.Rotation.M22,
		}
	}

	var vx, vy, vz int64
	switch g.sv {
	case 0:
		vx, vy, vz = int64(g.V[0].X), int64(g.V[0].Y), int64(g.V[0].Z)
	case 1:
		vx, vy, vz = int64(g.V[1].X), int64(g.V[1].Y), int64(g.V[1].Z)
	case 2:
		vx, vy, vz = int64(g.V[2].X), int64(g.V[2].Y), int64(g.V[2].Z)
	case 3:
		vx, vy, vz = int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3])
	}

	var tx, ty, tz int64
	switch g.cv {
	case 0:
		tx, ty, tz = int64(g.TR.X), int64(g.TR.Y), int64(g.TR.Z)
	case 1:
		tx, ty, tz = int64(g.BK.X), int64(g.BK.Y), int64(g.BK.Z)
	case 2:
		tx, ty, tz = int64(g.FC.X), int64(g.FC.Y), int64(g.FC.Z)
	}

	var t [3]int64
	t[0] = g.mac(1, (tx<<12)+int64(m.M11)*vx)
	t[1] = g.mac(2, (ty<<12)+int64(m.M21)*vx)
	t[2] = g.mac(3, (tz<<12)+int64(m.M31)*vx)

	if g.cv == 2 {
		// Selecting the far color only flags the first stage, then the
		// accumulators restart from zero. Another hardware bug games
		// depend on.
		g.limIR(1, int32(t[0]>>sf), false)
		g.limIR(2, int32(t[1]>>sf), false)
		g.limIR(3, int32(t[2]>>sf), false)

		t[0], t[1], t[2] = 0, 0, 0
	}

	t[0] = g.mac(1, t[0]+int64(m.M12)*vy)
	t[1] = g.mac(2, t[1]+int64(m.M22)*vy)
	t[2] = g.mac(3, t[2]+int64(m.M32)*vy)

	t[0] = g.mac(1, t[0]+int64(m.M13)*vz)
	t[1] = g.mac(2, t[1]+int64(m.M23)*vz)
	t[2] = g.mac(3, t[2]+int64(m.M33)*vz)

	g.setMACIR(t, lm)
}

func (g *GTE) commandNCDS() {
	g.ncd(0)
}

func (g *GTE) commandNCDT() {
	g.ncd(0)
	g.ncd(1)
	g.ncd(2)
}

func (g *GTE) commandNCCS() {
	g.ncc(0)
}

func (g *GTE) commandNCCT() {
	g.ncc(0)
	g.ncc(1)
	g.ncc(2)
}

func (g *GTE) commandNCS() {
	g.nc(0)
}

func (g *GTE) commandNCT() {
	g.nc(0)
	g.nc(1)
	g.nc(2)
}

// nc runs the base normal-color pipeline: light matrix, then the color
// matrix with background offset, then a FIFO push.
func (g *GTE) nc(index int) {
	lm := g.lm

	v := g.V[index]
	t := g.matrixVector(&g.Light, int64(v.X), int64(v.Y), int64(v.Z), 0, 0, 0)
	g.setMACIR(t, lm)

	t = g.matrixVector(&g.Colour,
		int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3]),
		int64(g.BK.X)<<12, int64(g.BK.Y)<<12, int64(g.BK.Z)<<12)
	g.setMACIR(t, lm)

	g.pushColorFromMAC()
}

// ncc is nc with the primary color modulated in before the push.
func (g *GTE) ncc(index int) {
	lm := g.lm

	v := g.V[index]
	t := g.matrixVector(&g.Light, int64(v.X), int64(v.Y), int64(v.Z), 0, 0, 0)
	g.setMACIR(t, lm)

	t = g.matrixVector(&g.Colour,
		int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3]),
		int64(g.BK.X)<<12, int64(g.BK.Y)<<12, int64(g.BK.Z)<<12)
	g.setMACIR(t, lm)

	r := int64(g.RGB.R) << 4
	cg := int64(g.RGB.G) << 4
	b := int64(g.RGB.B) << 4

	g.MAC[1] = int32(g.mac(1, r*int64(g.IR[1])) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg*int64(g.IR[2])) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b*int64(g.IR[3])) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

// ncd is nc with depth cueing toward the far color.
func (g *GTE) ncd(index int) {
	lm := g.lm

	v := g.V[index]
	t := g.matrixVector(&g.Light, int64(v.X), int64(v.Y), int64(v.Z), 0, 0, 0)
	g.setMACIR(t, lm)

	t = g.matrixVector(&g.Colour,
		int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3]),
		int64(g.BK.X)<<12, int64(g.BK.Y)<<12, int64(g.BK.Z)<<12)
	g.setMACIR(t, lm)

	prevIR1 := int64(g.IR[1])
	prevIR2 := int64(g.IR[2])
	prevIR3 := int64(g.IR[3])

	r := int64(g.RGB.R) << 4
	cg := int64(g.RGB.G) << 4
	b := int64(g.RGB.B) << 4

	rfc := int64(g.FC.X) << 12
	gfc := int64(g.FC.Y) << 12
	bfc := int64(g.FC.Z) << 12

	g.MAC[1] = int32(g.mac(1, rfc-r*prevIR1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, gfc-cg*prevIR2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, bfc-b*prevIR3) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], false)
	g.IR[2] = g.limIR(2, g.MAC[2], false)
	g.IR[3] = g.limIR(3, g.MAC[3], false)

	ir0 := int64(g.IR[0])

	g.MAC[1] = int32(g.mac(1, r*prevIR1+ir0*int64(g.IR[1])) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg*prevIR2+ir0*int64(g.IR[2])) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b*prevIR3+ir0*int64(g.IR[3])) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandCC() {
	lm := g.lm

	t := g.matrixVector(&g.Colour,
		int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3]),
		int64(g.BK.X)<<12, int64(g.BK.Y)<<12, int64(g.BK.Z)<<12)
	g.setMACIR(t, lm)

	r := int64(g.RGB.R) << 4
	cg := int64(g.RGB.G) << 4
	b := int64(g.RGB.B) << 4

	g.MAC[1] = int32(g.mac(1, r*int64(g.IR[1])) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg*int64(g.IR[2])) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b*int64(g.IR[3])) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandCDP() {
	lm := g.lm

	t := g.matrixVector(&g.Colour,
		int64(g.IR[1]), int64(g.IR[2]), int64(g.IR[3]),
		int64(g.BK.X)<<12, int64(g.BK.Y)<<12, int64(g.BK.Z)<<12)
	g.setMACIR(t, lm)

	ir0 := int64(g.IR[0])
	ir1 := int64(g.IR[1])
	ir2 := int64(g.IR[2])
	ir3 := int64(g.IR[3])

	rfc := int64(g.FC.X) << 12
	gfc := int64(g.FC.Y) << 12
	bfc := int64(g.FC.Z) << 12

	r := int64(g.RGB.R) << 4
	cg := int64(g.RGB.G) << 4
	b := int64(g.RGB.B) << 4

	g.MAC[1] = int32(g.mac(1, rfc-r*ir1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, gfc-cg*ir2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, bfc-b*ir3) >> g.sf)

	lm1 := int64(g.limIR(1, g.MAC[1], false))
	lm2 := int64(g.limIR(2, g.MAC[2], false))
	lm3 := int64(g.limIR(3, g.MAC[3], false))

	g.MAC[1] = int32(g.mac(1, r*ir1+ir0*lm1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg*ir2+ir0*lm2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b*ir3+ir0*lm3) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandDCPL() {
	lm := g.lm

	ir0 := int64(g.IR[0])
	ir1 := int64(g.IR[1])
	ir2 := int64(g.IR[2])
	ir3 := int64(g.IR[3])

	rfc := int64(g.FC.X) << 12
	gfc := int64(g.FC.Y) << 12
	bfc := int64(g.FC.Z) << 12

	r := int64(g.RGB.R) << 4
	cg := int64(g.RGB.G) << 4
	b := int64(g.RGB.B) << 4

	g.MAC[1] = int32(g.mac(1, rfc-r*ir1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, gfc-cg*ir2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, bfc-b*ir3) >> g.sf)

	lm1 := int64(g.limIR(1, g.MAC[1], false))
	lm2 := int64(g.limIR(2, g.MAC[2], false))
	lm3 := int64(g.limIR(3, g.MAC[3], false))

	g.MAC[1] = int32(g.mac(1, r*ir1+ir0*lm1) >> g.sf)
	g.MAC[2] = int32(g.mac(2, cg*ir2+ir0*lm2) >> g.sf)
	g.MAC[3] = int32(g.mac(3, b*ir3+ir0*lm3) >> g.sf)

	g.IR[1] = g.limIR(1, g.MAC[1], lm)
	g.IR[2] = g.limIR(2, g.MAC[2], lm)
	g.IR[3] = g.limIR(3, g.MAC[3], lm)

	g.pushColorFromMAC()
}

func (g *GTE) commandSQR() {
	lm := g.lm

	ir1 := int64(g.IR[1])
	ir2 := int64(g.IR[2])
	ir3 := int64(g.IR[3])

	var t [3]int64
	t[0] = g.mac(1, ir1*ir1)
	t[1] = g.mac(2, ir2*ir2)
	t[2] = g.mac(3, ir3*ir3)

	g.setMACIR(t, lm)
}

func (g *GTE) commandAVSZ3() {
	sum := int64(g.SZ[1]) + int64(g.SZ[2]) + int64(g.SZ[3])
	average := int64(g.ZSF3) * sum

	g.MAC[0] = int32(g.macZero(average))
	g.OTZ = g.limOTZ(average >> 12)
}

func (g *GTE) commandAVSZ4() {
	sum := int64(g.SZ[0]) + int64(g.SZ[1]) + int64(g.SZ[2]) + int64(g.SZ[3])
	average := int64(g.ZSF4) * sum

	g.MAC[0] = int32(g.macZero(average))
	g.OTZ = g.limOTZ(average >> 12)
}

func (g *GTE) commandGPF() {
	lm := g.lm

	ir0 := int64(g.IR[0])

	var t [3]int64
	t[0] = g.mac(1, ir0*int64(g.IR[1]))
	t[1] = g.mac(2, ir0*int64(g.IR[2]))
	t[2] = g.mac(3, ir0*int64(g.IR[3]))

	g.setMACIR(t, lm)
	g.pushColorFromMAC()
}

func (g *GTE) commandGPL() {
	lm := g.lm

	ir0 := int64(g.IR[0])

	var t [3]int64
	t[0] = g.mac(1, ir0*int64(g.IR[1])+(int64(g.MAC[1])<<g.sf))
	t[1] = g.mac(2, ir0*int64(g.IR[2])+(int64(g.MAC[2])<<g.sf))
	t[2] = g.mac(3, ir0*int64(g.IR[3])+(int64(g.MAC[3])<<g.sf))

	g.setMACIR(t, lm)
	g.pushColorFromMAC()
}
