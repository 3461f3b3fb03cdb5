package apu

// Voice is one of the eight DSP voices. Register fields are written through
// the DSP register file; the rest is decoder and envelope state.
type Voice struct {
	VolL  int8
	VolR  int8
	Pitch uint16
	SrcN  uint8

	adsr1 uint8
	adsr2 uint8
	gain  uint8

	// BRR decoder state.
	blockAddr   uint16
	blockNibble int
	loopAddr    uint16
	ring        [ringSize]int32
	fillIdx     int
	sampleIdx   int
	old         int32
	older       int32

	pitchCounter uint16
	env          int32
	phase        EnvelopePhase

	keyOnPending  bool
	keyedOff      bool
	restartDelay  uint8
	endSeen       bool

	// outSample is the voice's post-envelope output, feeding pitch
	// modulation of the next voice and the OUTX readback.
	outSample int32
}

// keyOn begins a restart: the voice goes silent for the restart delay while
// the decoder is re-seeded from the instrument directory.
func (v *Voice) keyOn(aram []uint8, dirBase uint16) {
	entry := dirBase + uint16(v.SrcN)*4
	v.blockAddr = uint16(aram[entry]) | uint16(aram[entry+1])<<8
	v.loopAddr = uint16(aram[entry+2]) | uint16(aram[entry+3])<<8
	v.blockNibble = 0
	v.old = 0
	v.older = 0
	v.fillIdx = 0
	v.sampleIdx = 0
	v.pitchCounter = 0
	v.env = 0
	v.phase = PhaseAttack
	v.endSeen = false
	v.restartDelay = 5
	for i := range v.ring {
		v.ring[i] = 0
	}
}

// mute drops the voice to silence immediately (end-without-loop blocks and
// soft reset).
func (v *Voice) mute() {
	v.phase = PhaseRelease
	v.env = 0
}

// interpolate runs the 4-point filter over the ring buffer. The interval
// being interpolated lies between the two middle taps; the newest decoded
// sample is lookahead, which is why the restart priming decodes two groups
// before the voice starts sounding.
func (v *Voice) interpolate() int32 {
	pos := (v.sampleIdx + int(v.pitchCounter>>12)) % ringSize
	p0 := v.ring[(pos+ringSize-3)%ringSize]
	p1 := v.ring[(pos+ringSize-2)%ringSize]
	p2 := v.ring[(pos+ringSize-1)%ringSize]
	p3 := v.ring[pos]

	t := int32(v.pitchCounter>>4) & 0xFF

	// 4-point Hermite, 8.8 fixed point.
	a := (3*(p1-p2) - p0 + p3) / 2
	b := 2*p2 + p0 - (5*p1+p3)/2
	c := (p2 - p0) / 2

	out := ((a*t)>>8 + b)
	out = ((out*t)>>8 + c)
	out = ((out * t) >> 8) + p1
	return clamp16(out)
}

// advancePitch adds the pitch step, applies pitch modulation from the
// previous voice, and consumes BRR groups as the counter crosses group
// boundaries. Returns false when the decoder hit an end-without-loop block.
func (v *Voice) advancePitch(aram []uint8, modulator int32, modulate bool) bool {
	step := int32(v.Pitch & 0x3FFF)
	counter := int32(v.pitchCounter) + step
	if modulate {
		// Modulation adjusts the accumulated counter, which saturates
		// as a whole rather than per-step.
		counter += ((modulator >> 5) * step) >> 10
		if counter < 0 {
			counter = 0
		}
		if counter > 0x7FFF {
			counter = 0x7FFF
		}
	}
	v.pitchCounter = uint16(counter)
	if v.pitchCounter >= 0x4000 {
		v.pitchCounter -= 0x4000
		ok := v.decodeGroup(aram)
		v.sampleIdx = (v.sampleIdx + brrGroupSamples) % ringSize
		return ok
	}
	return true
}
