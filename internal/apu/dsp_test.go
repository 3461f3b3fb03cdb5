package apu

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// writeBRRBlock assembles a 9-byte BRR block from 16 nibbles.
func writeBRRBlock(aram []uint8, addr uint16, shift, filter uint8, loop, end bool, nibbles [16]uint8) {
	h := shift<<4 | filter<<2
	if loop {
		h |= 2
	}
	if end {
		h |= 1
	}
	aram[addr] = h
	for i := 0; i < 8; i++ {
		aram[addr+1+uint16(i)] = nibbles[2*i]<<4 | nibbles[2*i+1]&0x0F
	}
}

func TestBRRFilter0KnownVector(t *testing.T) {
	h := brrHeader{shift: 4, filter: 0}

	// shift 4: nibble n decodes to (n<<4)>>1 = n*8.
	require.Equal(t, int32(8), decodeBRRSample(1, h, 0, 0))
	require.Equal(t, int32(56), decodeBRRSample(7, h, 0, 0))
	// Nibble 0xF is -1.
	require.Equal(t, int32(-8), decodeBRRSample(0xF, h, 0, 0))
}

func TestBRRFilterHistory(t *testing.T) {
	// filter 1: sample + old - old>>4.
	h := brrHeader{shift: 0, filter: 1}
	require.Equal(t, int32(1000-62), decodeBRRSample(0, h, 1000, 0))

	// filter 2: sample + 2*old - 3*old>>5 - older + older>>4.
	h = brrHeader{shift: 0, filter: 2}
	want := int32(2*1000 - (3*1000)>>5 - 500 + 500>>4)
	require.Equal(t, want, decodeBRRSample(0, h, 1000, 500))

	// filter 3: sample + 2*old - 13*old>>6 - older + 3*older>>4.
	h = brrHeader{shift: 0, filter: 3}
	want = int32(2*1000 - (13*1000)>>6 - 500 + (3*500)>>4)
	require.Equal(t, want, decodeBRRSample(0, h, 1000, 500))
}

func TestBRRSpecialShiftClamps(t *testing.T) {
	h := brrHeader{shift: 13, filter: 0}
	require.Equal(t, int32(0), decodeBRRSample(7, h, 0, 0))
	require.Equal(t, int32(-2048), decodeBRRSample(0xF, h, 0, 0))
}

func TestBRRGroupDecodeFixedOutput(t *testing.T) {
	d := NewDSP()
	var nibbles [16]uint8
	for i := range nibbles {
		nibbles[i] = uint8(i % 8)
	}
	writeBRRBlock(d.ARAM[:], 0x100, 4, 0, false, false, nibbles)

	v := &d.Voices[0]
	v.blockAddr = 0x100

	require.True(t, v.decodeGroup(d.ARAM[:]))
	require.Equal(t, [4]int32{0, 8, 16, 24}, [4]int32{v.ring[0], v.ring[1], v.ring[2], v.ring[3]})

	// Decoding the full block yields all 16 samples and advances to the
	// next block.
	require.True(t, v.decodeGroup(d.ARAM[:]))
	require.True(t, v.decodeGroup(d.ARAM[:]))
	require.True(t, v.decodeGroup(d.ARAM[:]))
	require.Equal(t, uint16(0x109), v.blockAddr)
}

// setupVoice prepares a DSP with a sample directory entry 0 pointing at
// addr, and keys voice 0 on with full direct gain and 1:1 pitch.
func setupVoice(d *DSP, addr uint16) {
	dirBase := uint16(0x200)
	d.WriteRegister(regDir, uint8(dirBase>>8))
	d.ARAM[dirBase] = uint8(addr)
	d.ARAM[dirBase+1] = uint8(addr >> 8)
	d.ARAM[dirBase+2] = uint8(addr)
	d.ARAM[dirBase+3] = uint8(addr >> 8)

	d.WriteRegister(0x02, 0x00) // pitch low
	d.WriteRegister(0x03, 0x10) // pitch 0x1000: one source sample per output
	d.WriteRegister(0x04, 0)    // instrument 0
	d.WriteRegister(0x07, 0x7F) // direct gain, full level
	d.WriteRegister(0x00, 0x7F) // vol L
	d.WriteRegister(0x01, 0x7F) // vol R
	d.WriteRegister(regMVolL, 0x7F)
	d.WriteRegister(regMVolR, 0x7F)
	d.WriteRegister(regFlags, 0) // clear reset/mute
	d.WriteRegister(regKeyOn, 0x01)
}

func TestEndWithLoopDoesNotRelease(t *testing.T) {
	d := NewDSP()
	var rising [16]uint8
	for i := range rising {
		rising[i] = uint8(i % 8)
	}
	// Block 0 plain, block 1 end+loop pointing back to block 0.
	writeBRRBlock(d.ARAM[:], 0x100, 4, 0, false, false, rising)
	writeBRRBlock(d.ARAM[:], 0x109, 4, 0, true, true, rising)
	setupVoice(d, 0x100)

	// Run well past both blocks plus the restart delay.
	for i := 0; i < 200; i++ {
		d.Sample()
	}

	v := &d.Voices[0]
	require.NotEqual(t, PhaseRelease, v.phase, "loop must not auto-release")
	require.NotZero(t, d.endx&1, "end flag latched")
	// The decoder is cycling through the two-block loop.
	require.Contains(t, []uint16{0x100, 0x109}, v.blockAddr)
}

func TestEndWithoutLoopMutesVoice(t *testing.T) {
	d := NewDSP()
	var nib [16]uint8
	writeBRRBlock(d.ARAM[:], 0x100, 4, 0, false, true, nib)
	setupVoice(d, 0x100)

	for i := 0; i < 100; i++ {
		d.Sample()
	}
	v := &d.Voices[0]
	require.Equal(t, PhaseRelease, v.phase)
	require.Equal(t, int32(0), v.env)
	require.NotZero(t, d.endx&1)
}

func TestRestartDelaySilence(t *testing.T) {
	d := NewDSP()
	var nib [16]uint8
	for i := range nib {
		nib[i] = 7
	}
	writeBRRBlock(d.ARAM[:], 0x100, 8, 0, true, true, nib)
	setupVoice(d, 0x100)

	// The first five samples after key-on are silent.
	for i := 0; i < 5; i++ {
		d.Sample()
		require.Equal(t, int32(0), d.Voices[0].outSample, "sample %d", i)
	}
}

func TestADSRPhaseTransitions(t *testing.T) {
	d := NewDSP()
	v := &d.Voices[0]

	// Fastest attack (rate 31 steps 1024 every sample).
	v.adsr1 = 0x8F
	v.adsr2 = 0xE0 // sustain level 7
	v.phase = PhaseAttack
	v.env = 0

	v.stepEnvelope(d.counter)
	d.counter--
	require.Equal(t, PhaseAttack, v.phase)
	v.stepEnvelope(d.counter)
	require.Equal(t, PhaseDecay, v.phase)
	require.GreaterOrEqual(t, v.env, int32(attackFullLevel))

	// With sustain level 7 the decay boundary is 0x800, so the next
	// gated decay step lands in sustain.
	v.adsr1 = 0x87 | 0x70
	for i := 0; i < 4096 && v.phase == PhaseDecay; i++ {
		v.stepEnvelope(d.counter)
		d.counter--
	}
	require.Equal(t, PhaseSustain, v.phase)
}

func TestReleaseRampsDownByEight(t *testing.T) {
	d := NewDSP()
	v := &d.Voices[0]
	v.phase = PhaseRelease
	v.env = 100

	for i := 0; i < 12; i++ {
		v.stepEnvelope(d.counter)
	}
	require.Equal(t, int32(4), v.env)
	v.stepEnvelope(d.counter)
	require.Equal(t, int32(0), v.env, "saturates at zero")
}

func TestDirectGainPinsEnvelope(t *testing.T) {
	d := NewDSP()
	v := &d.Voices[0]
	v.gain = 0x40 // direct, level 0x40
	v.phase = PhaseSustain

	v.stepEnvelope(d.counter)
	require.Equal(t, int32(16*0x40), v.env)
}

func TestOutputDeterminism(t *testing.T) {
	run := func() []int16 {
		d := NewDSP()
		var nib [16]uint8
		for i := range nib {
			nib[i] = uint8((i * 3) % 16)
		}
		writeBRRBlock(d.ARAM[:], 0x100, 6, 1, true, true, nib)
		setupVoice(d, 0x100)
		d.WriteRegister(regNOn, 0x02) // voice 1 noise (keyed off, inert)
		out := make([]int16, 0, 256)
		for i := 0; i < 128; i++ {
			l, r := d.Sample()
			out = append(out, l, r)
		}
		return out
	}

	require.Equal(t, run(), run(), "sample output must be bit-exact across runs")
}

func TestMuteSilencesButKeepsProcessing(t *testing.T) {
	d := NewDSP()
	var nib [16]uint8
	for i := range nib {
		nib[i] = 7
	}
	writeBRRBlock(d.ARAM[:], 0x100, 8, 0, true, true, nib)
	setupVoice(d, 0x100)
	d.WriteRegister(regFlags, flagMute)

	var sawVoiceOutput bool
	for i := 0; i < 64; i++ {
		l, r := d.Sample()
		require.Equal(t, ^int16(0), l)
		require.Equal(t, ^int16(0), r)
		if d.Voices[0].outSample != 0 {
			sawVoiceOutput = true
		}
	}
	require.True(t, sawVoiceOutput, "voices keep running under mute")
}

func TestSoftResetKeysOffAndZeroesEnvelopes(t *testing.T) {
	d := NewDSP()
	var nib [16]uint8
	for i := range nib {
		nib[i] = 7
	}
	writeBRRBlock(d.ARAM[:], 0x100, 8, 0, true, true, nib)
	setupVoice(d, 0x100)
	for i := 0; i < 32; i++ {
		d.Sample()
	}

	d.WriteRegister(regFlags, flagSoftReset)
	for i := range d.Voices {
		require.Equal(t, PhaseRelease, d.Voices[i].phase)
		require.Equal(t, int32(0), d.Voices[i].env)
	}
	require.NotZero(t, d.flg&flagMute)
	require.NotZero(t, d.flg&flagEchoWriteOff)
}

func TestEchoFIRImpulse(t *testing.T) {
	d := NewDSP()
	d.WriteRegister(regFlags, 0)
	d.WriteRegister(regESA, 0x40) // echo ring at 0x4000
	d.WriteRegister(regEDL, 1)    // 2 KiB ring
	d.WriteRegister(0x0F, 0x40)   // C0 = 64

	// Place an impulse at the start of the ring.
	d.ARAM[0x4000] = 0x00
	d.ARAM[0x4001] = 0x40 // L = 0x4000

	d.Sample()
	// hist[7] = (0x4000>>1), tap 7 is zero; the impulse reaches tap 0
	// seven samples later.
	for i := 0; i < 7; i++ {
		require.Equal(t, int32(0), d.echoOutL)
		d.Sample()
	}
	// (0x2000 * 64) >> 6 = 0x2000, clamped with low bit clear.
	require.Equal(t, int32(0x2000), d.echoOutL)
	require.Equal(t, int32(0), d.echoOutR)
}
