package apu

// DSP register addresses (per-voice registers repeat every 0x10).
const (
	regVolL  = 0x0
	regVolR  = 0x1
	regPitchL = 0x2
	regPitchH = 0x3
	regSrcN  = 0x4
	regADSR1 = 0x5
	regADSR2 = 0x6
	regGain  = 0x7
	regEnvX  = 0x8
	regOutX  = 0x9

	regMVolL = 0x0C
	regMVolR = 0x1C
	regEVolL = 0x2C
	regEVolR = 0x3C
	regKeyOn = 0x4C
	regKeyOff = 0x5C
	regFlags = 0x6C
	regEndX  = 0x7C
	regEFB   = 0x0D
	regPMOn  = 0x2D
	regNOn   = 0x3D
	regEOn   = 0x4D
	regDir   = 0x5D
	regESA   = 0x6D
	regEDL   = 0x7D
)

const (
	flagSoftReset       = 0x80
	flagMute            = 0x40
	flagEchoWriteOff    = 0x20
	flagNoiseClockMask  = 0x1F
)

const aramSize = 64 << 10

// DSP is the eight-voice sample synthesizer. It owns the 64 KiB of shared
// audio memory holding BRR sample data, the instrument directory and the
// echo ring buffer. Output is bit-exact deterministic for a given register
// write trace.
type DSP struct {
	ARAM [aramSize]uint8

	Voices [8]Voice

	mvolL, mvolR int8
	evolL, evolR int8
	efb          int8
	flg          uint8
	kon, kof     uint8
	endx         uint8
	pmon, non    uint8
	eon          uint8
	dir, esa     uint8
	edl          uint8
	fir          [8]int8

	// counter is the shared 16-bit step counter gating envelope and
	// noise rates; it decrements every sample.
	counter uint16

	noise int32

	echoPos  uint16
	echoHistL [8]int32
	echoHistR [8]int32
	echoOutL int32
	echoOutR int32
}

// NewDSP creates a DSP in its post-reset state.
func NewDSP() *DSP {
	d := &DSP{noise: 0x4000}
	d.flg = flagSoftReset | flagMute
	for i := range d.Voices {
		d.Voices[i].phase = PhaseRelease
	}
	return d
}

// ReadRegister reads a DSP register.
func (d *DSP) ReadRegister(addr uint8) uint8 {
	addr &= 0x7F
	voice := addr >> 4
	switch addr & 0x0F {
	case regVolL:
		return uint8(d.Voices[voice].VolL)
	case regVolR:
		return uint8(d.Voices[voice].VolR)
	case regPitchL:
		return uint8(d.Voices[voice].Pitch)
	case regPitchH:
		return uint8(d.Voices[voice].Pitch >> 8)
	case regSrcN:
		return d.Voices[voice].SrcN
	case regADSR1:
		return d.Voices[voice].adsr1
	case regADSR2:
		return d.Voices[voice].adsr2
	case regGain:
		return d.Voices[voice].gain
	case regEnvX:
		return uint8(d.Voices[voice].env >> 4)
	case regOutX:
		return uint8(d.Voices[voice].outSample >> 7)
	}
	switch addr {
	case regMVolL:
		return uint8(d.mvolL)
	case regMVolR:
		return uint8(d.mvolR)
	case regEVolL:
		return uint8(d.evolL)
	case regEVolR:
		return uint8(d.evolR)
	case regKeyOn:
		return d.kon
	case regKeyOff:
		return d.kof
	case regFlags:
		return d.flg
	case regEndX:
		return d.endx
	case regEFB:
		return uint8(d.efb)
	case regPMOn:
		return d.pmon
	case regNOn:
		return d.non
	case regEOn:
		return d.eon
	case regDir:
		return d.dir
	case regESA:
		return d.esa
	case regEDL:
		return d.edl
	}
	if addr&0x0F == 0x0F {
		return uint8(d.fir[addr>>4])
	}
	return 0
}

// WriteRegister writes a DSP register.
func (d *DSP) WriteRegister(addr uint8, value uint8) {
	addr &= 0x7F
	voice := addr >> 4
	switch addr & 0x0F {
	case regVolL:
		d.Voices[voice].VolL = int8(value)
		return
	case regVolR:
		d.Voices[voice].VolR = int8(value)
		return
	case regPitchL:
		d.Voices[voice].Pitch = d.Voices[voice].Pitch&0x3F00 | uint16(value)
		return
	case regPitchH:
		d.Voices[voice].Pitch = d.Voices[voice].Pitch&0x00FF | uint16(value&0x3F)<<8
		return
	case regSrcN:
		d.Voices[voice].SrcN = value
		return
	case regADSR1:
		d.Voices[voice].adsr1 = value
		return
	case regADSR2:
		d.Voices[voice].adsr2 = value
		return
	case regGain:
		d.Voices[voice].gain = value
		return
	case regEnvX, regOutX:
		return // read-only
	}
	switch addr {
	case regMVolL:
		d.mvolL = int8(value)
	case regMVolR:
		d.mvolR = int8(value)
	case regEVolL:
		d.evolL = int8(value)
	case regEVolR:
		d.evolR = int8(value)
	case regKeyOn:
		d.kon = value
		for i := 0; i < 8; i++ {
			if value&(1<<i) != 0 {
				d.Voices[i].keyOnPending = true
				d.Voices[i].keyedOff = false
				d.endx &^= 1 << i
			}
		}
	case regKeyOff:
		d.kof = value
		for i := 0; i < 8; i++ {
			if value&(1<<i) != 0 {
				d.Voices[i].keyedOff = true
			}
		}
	case regFlags:
		d.flg = value
		if value&flagSoftReset != 0 {
			d.softReset()
		}
	case regEndX:
		// Any write clears the end flags.
		d.endx = 0
	case regEFB:
		d.efb = int8(value)
	case regPMOn:
		d.pmon = value & 0xFE
	case regNOn:
		d.non = value
	case regEOn:
		d.eon = value
	case regDir:
		d.dir = value
	case regESA:
		d.esa = value
	case regEDL:
		d.edl = value & 0x0F
	default:
		if addr&0x0F == 0x0F {
			d.fir[addr>>4] = int8(value)
		}
	}
}

// softReset keys off every voice, zeroes envelopes, mutes the amplifier and
// blocks echo-buffer writes. Processing continues so the state machine keeps
// in step with the sample clock.
func (d *DSP) softReset() {
	for i := range d.Voices {
		d.Voices[i].keyedOff = true
		d.Voices[i].mute()
	}
	d.flg |= flagMute | flagEchoWriteOff
	d.kon = 0
}

// Sample produces one stereo output sample, advancing every voice, the
// noise generator, the echo filter and the global rate counter.
func (d *DSP) Sample() (int16, int16) {
	d.stepNoise()

	var sumL, sumR int32
	var echoInL, echoInR int32
	var prevOut int32

	for i := 0; i < 8; i++ {
		v := &d.Voices[i]
		out := d.stepVoice(i, prevOut)
		prevOut = out

		l := (out * int32(v.VolL)) >> 7
		r := (out * int32(v.VolR)) >> 7
		sumL = clamp16(sumL + l)
		sumR = clamp16(sumR + r)
		if d.eon&(1<<i) != 0 {
			echoInL = clamp16(echoInL + l)
			echoInR = clamp16(echoInR + r)
		}
	}

	d.stepEcho(echoInL, echoInR)

	outL := clamp16((sumL * int32(d.mvolL)) >> 7)
	outR := clamp16((sumR * int32(d.mvolR)) >> 7)
	outL = clamp16(outL + ((d.echoOutL * int32(d.evolL)) >> 7))
	outR = clamp16(outR + ((d.echoOutR * int32(d.evolR)) >> 7))

	if d.flg&flagMute != 0 {
		outL, outR = 0, 0
	}

	d.counter--

	// The amplifier inverts the final output.
	return ^int16(outL), ^int16(outR)
}

// stepVoice runs the per-voice sample pipeline and returns the voice's
// post-envelope output.
func (d *DSP) stepVoice(i int, prevOut int32) int32 {
	v := &d.Voices[i]

	if v.keyOnPending {
		v.keyOnPending = false
		v.keyOn(d.ARAM[:], uint16(d.dir)<<8)
	}
	if v.keyedOff && v.phase != PhaseRelease {
		v.phase = PhaseRelease
	}

	if v.restartDelay > 0 {
		v.restartDelay--
		if v.restartDelay == 0 {
			// Prime the ring with two groups so the interpolator has
			// its full lookahead from the first audible sample.
			if !v.decodeGroup(d.ARAM[:]) || !v.decodeGroup(d.ARAM[:]) {
				v.mute()
				d.endx |= 1 << i
			}
		}
		v.outSample = 0
		return 0
	}

	var raw int32
	if d.non&(1<<i) != 0 {
		raw = d.noiseOutput()
	} else {
		raw = v.interpolate()
	}

	v.stepEnvelope(d.counter)

	out := (raw * v.env) >> 11

	if !v.advancePitch(d.ARAM[:], prevOut, d.pmon&(1<<i) != 0 && i > 0) {
		v.mute()
		d.endx |= 1 << i
	}
	if v.endSeen {
		d.endx |= 1 << i
	}

	v.outSample = out
	return out
}

func (d *DSP) stepNoise() {
	if rateGate(d.counter, d.flg&flagNoiseClockMask) {
		bit := (d.noise ^ (d.noise >> 1)) & 1
		d.noise = (d.noise >> 1) | (bit << 14)
	}
}

func (d *DSP) noiseOutput() int32 {
	return wrap15(d.noise)
}

// echoBufferBytes returns the ring size in bytes; a delay of zero still
// occupies one stereo frame.
func (d *DSP) echoBufferBytes() uint16 {
	if d.edl == 0 {
		return 4
	}
	return uint16(d.edl) * 2048
}

// stepEcho reads the ring at the current echo position, runs the 8-tap FIR
// over the history, and writes the feedback-mixed input back to the ring.
func (d *DSP) stepEcho(inL, inR int32) {
	base := uint32(d.esa) << 8
	addr := (base + uint32(d.echoPos)) & (aramSize - 1)

	ringL := int32(int16(uint16(d.ARAM[addr]) | uint16(d.ARAM[(addr+1)&(aramSize-1)])<<8))
	ringR := int32(int16(uint16(d.ARAM[(addr+2)&(aramSize-1)]) | uint16(d.ARAM[(addr+3)&(aramSize-1)])<<8))

	copy(d.echoHistL[:], d.echoHistL[1:])
	copy(d.echoHistR[:], d.echoHistR[1:])
	d.echoHistL[7] = ringL >> 1
	d.echoHistR[7] = ringR >> 1

	var firL, firR int32
	for t := 0; t < 7; t++ {
		firL += (d.echoHistL[t] * int32(d.fir[t])) >> 6
		firR += (d.echoHistR[t] * int32(d.fir[t])) >> 6
	}
	// The partial sum of the first seven taps wraps through 16 bits
	// before the newest tap is added.
	firL = int32(int16(firL)) + ((d.echoHistL[7] * int32(d.fir[7])) >> 6)
	firR = int32(int16(firR)) + ((d.echoHistR[7] * int32(d.fir[7])) >> 6)
	// Clamp and force the low bit clear.
	d.echoOutL = clamp16(firL) &^ 1
	d.echoOutR = clamp16(firR) &^ 1

	if d.flg&flagEchoWriteOff == 0 {
		wL := clamp16(inL+((d.echoOutL*int32(d.efb))>>7)) &^ 1
		wR := clamp16(inR+((d.echoOutR*int32(d.efb))>>7)) &^ 1
		d.ARAM[addr] = uint8(wL)
		d.ARAM[(addr+1)&(aramSize-1)] = uint8(uint16(wL) >> 8)
		d.ARAM[(addr+2)&(aramSize-1)] = uint8(wR)
		d.ARAM[(addr+3)&(aramSize-1)] = uint8(uint16(wR) >> 8)
	}

	d.echoPos += 4
	if d.echoPos >= d.echoBufferBytes() {
		d.echoPos = 0
	}
}
