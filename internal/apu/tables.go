package apu

// Envelope and noise steps are gated by a shared 16-bit counter: a step at
// rate r applies only on samples where (counter + ratePeriodOffset[r]) is an
// exact multiple of ratePeriod[r]. Rate 0 never fires.
var ratePeriod = [32]uint16{
	0, 2048, 1536, 1280, 1024, 768, 640, 512,
	384, 320, 256, 192, 160, 128, 96, 80,
	64, 48, 40, 32, 24, 20, 16, 12,
	10, 8, 6, 5, 4, 3, 2, 1,
}

var ratePeriodOffset = [32]uint16{
	0, 0, 1040, 536, 0, 1040, 536, 0,
	1040, 536, 0, 1040, 536, 0, 1040, 536,
	0, 1040, 536, 0, 1040, 536, 0, 1040,
	536, 0, 1040, 536, 0, 1040, 0, 0,
}

// rateGate reports whether a step at the given rate fires this sample.
func rateGate(counter uint16, rate uint8) bool {
	if rate == 0 {
		return false
	}
	return (counter+ratePeriodOffset[rate])%ratePeriod[rate] == 0
}

// clamp16 saturates to the signed 16-bit range.
func clamp16(v int32) int32 {
	if v > 0x7FFF {
		return 0x7FFF
	}
	if v < -0x8000 {
		return -0x8000
	}
	return v
}

// wrap15 sign-extends from 15 bits, reproducing the decoder's wrapping
// behavior after the 16-bit clamp.
func wrap15(v int32) int32 {
	return int32(int16(v<<1)) >> 1
}
