package apu

import (
	"tetra-core/internal/debug"
	"tetra-core/internal/state"
)

// Unit register window offsets within the I/O region.
const (
	regDSPAddr  = 0x60
	regDSPData  = 0x62
	regARAMAddr = 0x64
	regARAMData = 0x66
	regSoundCnt = 0x70
)

// Sound control bits.
const (
	soundEnable     = 1 << 0
	soundFIFOATimer = 1 << 2
	soundFIFOBTimer = 1 << 3
	soundFIFOAReset = 1 << 4
	soundFIFOBReset = 1 << 5
)

const fifoDepth = 32

// fifo is one direct-sound queue of signed 8-bit samples.
type fifo struct {
	data    [fifoDepth]int8
	head    int
	count   int
	current int8
}

func (f *fifo) push(b int8) {
	if f.count == fifoDepth {
		// Overrun drops the oldest sample.
		f.head = (f.head + 1) % fifoDepth
		f.count--
	}
	f.data[(f.head+f.count)%fifoDepth] = b
	f.count++
}

func (f *fifo) pop() {
	if f.count == 0 {
		return
	}
	f.current = f.data[f.head]
	f.head = (f.head + 1) % fifoDepth
	f.count--
}

func (f *fifo) reset() {
	f.head = 0
	f.count = 0
	f.current = 0
}

// Unit is the bus-facing audio block: the DSP proper, the address/data port
// pair exposing its register file and audio RAM, and the two direct-sound
// FIFOs refilled by DMA.
type Unit struct {
	DSP *DSP

	dspAddr  uint8
	aramAddr uint16
	control  uint16
	fifos    [2]fifo

	log *debug.Logger
}

// NewUnit creates the audio unit.
func NewUnit(logger *debug.Logger) *Unit {
	return &Unit{DSP: NewDSP(), log: logger}
}

// ReadRegister implements the bus audio port.
func (u *Unit) ReadRegister(offset uint32) uint16 {
	switch offset {
	case regDSPAddr:
		return uint16(u.dspAddr)
	case regDSPData:
		return uint16(u.DSP.ReadRegister(u.dspAddr))
	case regARAMAddr:
		return u.aramAddr
	case regARAMData:
		return uint16(u.DSP.ARAM[u.aramAddr])
	case regSoundCnt:
		return u.control &^ (soundFIFOAReset | soundFIFOBReset)
	}
	return 0
}

// WriteRegister implements the bus audio port.
func (u *Unit) WriteRegister(offset uint32, value uint16) {
	switch offset {
	case regDSPAddr:
		u.dspAddr = uint8(value) & 0x7F
	case regDSPData:
		u.DSP.WriteRegister(u.dspAddr, uint8(value))
	case regARAMAddr:
		u.aramAddr = value
	case regARAMData:
		// Auto-incrementing upload port into audio RAM.
		u.DSP.ARAM[u.aramAddr] = uint8(value)
		u.aramAddr++
	case regSoundCnt:
		u.control = value
		if value&soundFIFOAReset != 0 {
			u.fifos[0].reset()
		}
		if value&soundFIFOBReset != 0 {
			u.fifos[1].reset()
		}
	}
}

// WriteFIFO pushes sample bytes into a direct-sound FIFO; size is 2 for
// halfword writes and 4 for word writes.
func (u *Unit) WriteFIFO(idx int, value uint32, size int) {
	f := &u.fifos[idx&1]
	for i := 0; i < size; i++ {
		f.push(int8(value >> (8 * i)))
	}
}

// TimerOverflow consumes one FIFO sample per overflow of the driving timer
// and reports which FIFOs have drained to half depth and need a DMA refill.
func (u *Unit) TimerOverflow(timer int) (refillA, refillB bool) {
	if u.control&soundEnable == 0 {
		return false, false
	}
	aTimer := 0
	if u.control&soundFIFOATimer != 0 {
		aTimer = 1
	}
	bTimer := 0
	if u.control&soundFIFOBTimer != 0 {
		bTimer = 1
	}
	if timer == aTimer {
		u.fifos[0].pop()
		refillA = u.fifos[0].count <= fifoDepth/2
	}
	if timer == bTimer {
		u.fifos[1].pop()
		refillB = u.fifos[1].count <= fifoDepth/2
	}
	if (refillA || refillB) && u.log != nil {
		u.log.Log(debug.ComponentAudio, debug.LogLevelTrace, "FIFO refill requested")
	}
	return refillA, refillB
}

// Sample produces one stereo frame: the DSP mix plus the direct-sound
// channels.
func (u *Unit) Sample() (int16, int16) {
	l, r := u.DSP.Sample()
	if u.control&soundEnable != 0 {
		ds := int32(u.fifos[0].current)<<6 + int32(u.fifos[1].current)<<6
		l = int16(clamp16(int32(l) + ds))
		r = int16(clamp16(int32(r) + ds))
	}
	return l, r
}

// SaveState serializes the unit. Audio RAM is transient bulk (the echo ring
// and uploaded samples are rebuilt by the emulated program) and is excluded;
// LoadState re-zeroes it.
func (u *Unit) SaveState(w *state.Writer) {
	w.U8(u.dspAddr)
	w.U16(u.aramAddr)
	w.U16(u.control)
	for i := range u.fifos {
		f := &u.fifos[i]
		for _, b := range f.data {
			w.I8(b)
		}
		w.Int(f.head)
		w.Int(f.count)
		w.I8(f.current)
	}
	u.DSP.saveState(w)
}

// LoadState restores the unit from a snapshot.
func (u *Unit) LoadState(r *state.Reader) {
	u.dspAddr = r.U8()
	u.aramAddr = r.U16()
	u.control = r.U16()
	for i := range u.fifos {
		f := &u.fifos[i]
		for j := range f.data {
			f.data[j] = r.I8()
		}
		f.head = r.Int()
		f.count = r.Int()
		f.current = r.I8()
	}
	u.DSP.loadState(r)
}

func (d *DSP) saveState(w *state.Writer) {
	for i := range d.Voices {
		v := &d.Voices[i]
		w.I8(v.VolL)
		w.I8(v.VolR)
		w.U16(v.Pitch)
		w.U8(v.SrcN)
		w.U8(v.adsr1)
		w.U8(v.adsr2)
		w.U8(v.gain)
		w.U16(v.blockAddr)
		w.Int(v.blockNibble)
		w.U16(v.loopAddr)
		for _, s := range v.ring {
			w.I32(s)
		}
		w.Int(v.fillIdx)
		w.Int(v.sampleIdx)
		w.I32(v.old)
		w.I32(v.older)
		w.U16(v.pitchCounter)
		w.I32(v.env)
		w.U8(uint8(v.phase))
		w.Bool(v.keyOnPending)
		w.Bool(v.keyedOff)
		w.U8(v.restartDelay)
		w.Bool(v.endSeen)
		w.I32(v.outSample)
	}
	w.I8(d.mvolL)
	w.I8(d.mvolR)
	w.I8(d.evolL)
	w.I8(d.evolR)
	w.I8(d.efb)
	w.U8(d.flg)
	w.U8(d.kon)
	w.U8(d.kof)
	w.U8(d.endx)
	w.U8(d.pmon)
	w.U8(d.non)
	w.U8(d.eon)
	w.U8(d.dir)
	w.U8(d.esa)
	w.U8(d.edl)
	for _, c := range d.fir {
		w.I8(c)
	}
	w.U16(d.counter)
	w.I32(d.noise)
	w.U16(d.echoPos)
	for i := 0; i < 8; i++ {
		w.I32(d.echoHistL[i])
		w.I32(d.echoHistR[i])
	}
	w.I32(d.echoOutL)
	w.I32(d.echoOutR)
}

func (d *DSP) loadState(r *state.Reader) {
	for i := range d.Voices {
		v := &d.Voices[i]
		v.VolL = r.I8()
		v.VolR = r.I8()
		v.Pitch = r.U16()
		v.SrcN = r.U8()
		v.adsr1 = r.U8()
		v.adsr2 = r.U8()
		v.gain = r.U8()
		v.blockAddr = r.U16()
		v.blockNibble = r.Int()
		v.loopAddr = r.U16()
		for j := range v.ring {
			v.ring[j] = r.I32()
		}
		v.fillIdx = r.Int()
		v.sampleIdx = r.Int()
		v.old = r.I32()
		v.older = r.I32()
		v.pitchCounter = r.U16()
		v.env = r.I32()
		v.phase = EnvelopePhase(r.U8())
		v.keyOnPending = r.Bool()
		v.keyedOff = r.Bool()
		v.restartDelay = r.U8()
		v.endSeen = r.Bool()
		v.outSample = r.I32()
	}
	d.mvolL = r.I8()
	d.mvolR = r.I8()
	d.evolL = r.I8()
	d.evolR = r.I8()
	d.efb = r.I8()
	d.flg = r.U8()
	d.kon = r.U8()
	d.kof = r.U8()
	d.endx = r.U8()
	d.pmon = r.U8()
	d.non = r.U8()
	d.eon = r.U8()
	d.dir = r.U8()
	d.esa = r.U8()
	d.edl = r.U8()
	for j := range d.fir {
		d.fir[j] = r.I8()
	}
	d.counter = r.U16()
	d.noise = r.I32()
	d.echoPos = r.U16()
	for i := 0; i < 8; i++ {
		d.echoHistL[i] = r.I32()
		d.echoHistR[i] = r.I32()
	}
	d.echoOutL = r.I32()
	d.echoOutR = r.I32()

	// Audio RAM is excluded from snapshots; re-zero it so playback state
	// is rebuilt deterministically.
	for i := range d.ARAM {
		d.ARAM[i] = 0
	}
}
