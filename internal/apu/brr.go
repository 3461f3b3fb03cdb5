package apu

// BRR blocks are 9 bytes: one header and 8 sample bytes holding 16 nibbles.
// The header packs shift (high 4 bits), filter (2), loop (1) and end (1).
const (
	brrBlockBytes   = 9
	brrGroupSamples = 4
	// ringSize is the decoded-sample ring per voice: two full groups of
	// lookahead plus one group in flight.
	ringSize = 12
)

type brrHeader struct {
	shift  uint8
	filter uint8
	loop   bool
	end    bool
}

func parseBRRHeader(b uint8) brrHeader {
	return brrHeader{
		shift:  b >> 4,
		filter: (b >> 2) & 3,
		loop:   b&2 != 0,
		end:    b&1 != 0,
	}
}

// decodeBRRSample produces one output sample from a 4-bit nibble, the block
// header and the two previous outputs.
func decodeBRRSample(nibble uint8, h brrHeader, old, older int32) int32 {
	// Sign-extend the nibble.
	s := int32(int8(nibble<<4)) >> 4

	var sample int32
	if h.shift <= 12 {
		sample = (s << h.shift) >> 1
	} else {
		// Shifts 13-15 collapse the sample to 0 or -2048 by sign.
		if s < 0 {
			sample = -2048
		} else {
			sample = 0
		}
	}

	switch h.filter {
	case 1:
		sample += old - (old >> 4)
	case 2:
		sample += 2*old - ((3 * old) >> 5) - older + (older >> 4)
	case 3:
		sample += 2*old - ((13 * old) >> 6) - older + ((3 * older) >> 4)
	}

	return wrap15(clamp16(sample))
}

// decodeGroup decodes the next four samples of the voice's current BRR block
// into its ring buffer, advancing the block position and handling the
// end/loop header bits. It returns false when the block ended with end set
// and loop clear, which mutes the voice.
func (v *Voice) decodeGroup(aram []uint8) bool {
	h := parseBRRHeader(aram[v.blockAddr])

	for i := 0; i < brrGroupSamples; i++ {
		byteIdx := v.blockAddr + 1 + uint16(v.blockNibble+i)/2
		raw := aram[byteIdx]
		var nibble uint8
		if (v.blockNibble+i)%2 == 0 {
			nibble = raw >> 4
		} else {
			nibble = raw & 0x0F
		}
		sample := decodeBRRSample(nibble, h, v.old, v.older)
		v.older = v.old
		v.old = sample
		v.ring[v.fillIdx] = sample
		v.fillIdx = (v.fillIdx + 1) % ringSize
	}

	v.blockNibble += brrGroupSamples
	if v.blockNibble >= 16 {
		v.blockNibble = 0
		if h.end {
			v.endSeen = true
			if h.loop {
				v.blockAddr = v.loopAddr
				return true
			}
			return false
		}
		v.blockAddr += brrBlockBytes
	}
	return true
}
