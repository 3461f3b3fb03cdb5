package memory

import "tetra-core/internal/debug"

// DMA channel control bits.
const (
	dmaDestAdjShift = 5
	dmaSrcAdjShift  = 7
	dmaRepeat       = 1 << 9
	dmaUnitWord     = 1 << 10
	dmaTimingShift  = 12
	dmaIRQ          = 1 << 14
	dmaEnable       = 1 << 15
)

// Address adjustment modes.
const (
	adjIncrement = 0
	adjDecrement = 1
	adjFixed     = 2
	adjReload    = 3
)

// Trigger timings.
const (
	timingImmediate = 0
	timingVBlank    = 1
	timingHBlank    = 2
	timingSpecial   = 3
)

// DMAChannel is one transfer channel. Source, destination and length are
// latched into internal counters when the channel is armed; the programmed
// registers are not modified by the transfer.
type DMAChannel struct {
	Source  uint32
	Dest    uint32
	Length  uint16
	Control uint16

	// Latched working state.
	src       uint32
	dst       uint32
	remaining uint32
	triggered bool
	starting  bool
	fifoMode  bool

	// lastRead is the sticky latch used when the source address is
	// unmapped; the phantom read returns a unit-aligned slice of it.
	lastRead uint32
}

func (c *DMAChannel) enabled() bool { return c.Control&dmaEnable != 0 }
func (c *DMAChannel) timing() int  { return int(c.Control>>dmaTimingShift) & 3 }
func (c *DMAChannel) wordUnit() bool {
	return c.fifoMode || c.Control&dmaUnitWord != 0
}

// ready reports whether the channel wants the bus right now.
func (c *DMAChannel) ready() bool {
	return c.enabled() && c.triggered && c.remaining > 0
}

// DMAController owns the four transfer channels and arbitrates them against
// the CPU. Channel 0 has the highest priority.
type DMAController struct {
	bus      *Bus
	Channels [4]DMAChannel

	// active is the channel index currently holding the bus, or -1. A
	// change of holder terminates any cartridge burst and costs one idle
	// cycle.
	active int
}

// NewDMAController creates the controller bound to its bus.
func NewDMAController(b *Bus) *DMAController {
	return &DMAController{bus: b, active: -1}
}

// ReadRegister reads a 16-bit DMA register. Address and length registers are
// write-only and read back as zero; control registers read back.
func (d *DMAController) ReadRegister(off uint32) uint16 {
	ch, reg := d.decode(off)
	if ch < 0 {
		return 0
	}
	if reg == 10 {
		return d.Channels[ch].Control
	}
	return 0
}

// WriteRegister writes a 16-bit DMA register.
func (d *DMAController) WriteRegister(off uint32, value uint16) {
	ch, reg := d.decode(off)
	if ch < 0 {
		return
	}
	c := &d.Channels[ch]
	switch reg {
	case 0:
		c.Source = c.Source&0xFFFF0000 | uint32(value)
	case 2:
		c.Source = c.Source&0x0000FFFF | uint32(value)<<16
	case 4:
		c.Dest = c.Dest&0xFFFF0000 | uint32(value)
	case 6:
		c.Dest = c.Dest&0x0000FFFF | uint32(value)<<16
	case 8:
		c.Length = value
	case 10:
		wasEnabled := c.enabled()
		c.Control = value
		if c.enabled() && !wasEnabled {
			d.arm(ch)
		}
		if !c.enabled() {
			c.triggered = false
		}
	}
}

func (d *DMAController) decode(off uint32) (int, uint32) {
	if off < 0x0B0 || off >= 0x0E0 {
		return -1, 0
	}
	rel := off - 0x0B0
	return int(rel / 12), rel % 12
}

// arm latches the working counters for a freshly enabled channel.
func (d *DMAController) arm(ch int) {
	c := &d.Channels[ch]
	c.src = c.Source
	c.dst = c.Dest
	c.remaining = d.latchLength(ch)
	c.starting = true
	c.fifoMode = c.timing() == timingSpecial && (ch == 1 || ch == 2)
	c.triggered = c.timing() == timingImmediate
	if d.bus.log != nil {
		d.bus.log.Logf(debug.ComponentDMA, debug.LogLevelDebug,
			"channel %d armed: src=0x%08X dst=0x%08X len=%d", ch, c.src, c.dst, c.remaining)
	}
}

func (d *DMAController) latchLength(ch int) uint32 {
	c := &d.Channels[ch]
	if c.fifoMode {
		return 4
	}
	if c.Length == 0 {
		if ch == 3 {
			return 0x10000
		}
		return 0x4000
	}
	return uint32(c.Length)
}

// NotifyVBlank triggers channels waiting on vertical blank.
func (d *DMAController) NotifyVBlank() { d.notifyTiming(timingVBlank) }

// NotifyHBlank triggers channels waiting on horizontal blank.
func (d *DMAController) NotifyHBlank() { d.notifyTiming(timingHBlank) }

// NotifyGamePak triggers channel 3's cartridge-request mode.
func (d *DMAController) NotifyGamePak() {
	c := &d.Channels[3]
	if c.enabled() && c.timing() == timingSpecial {
		c.triggered = true
	}
}

func (d *DMAController) notifyTiming(timing int) {
	for i := range d.Channels {
		c := &d.Channels[i]
		if c.enabled() && c.timing() == timing && !c.triggered {
			c.triggered = true
			if c.remaining == 0 {
				c.remaining = d.latchLength(i)
			}
		}
	}
}

// RequestFIFORefill triggers the sound-FIFO channel for the given FIFO
// (0 = A on channel 1, 1 = B on channel 2): four word units per request.
func (d *DMAController) RequestFIFORefill(fifo int) {
	ch := fifo + 1
	c := &d.Channels[ch]
	if c.enabled() && c.fifoMode {
		c.triggered = true
		c.remaining = 4
	}
}

// Active reports whether any channel wants the bus.
func (d *DMAController) Active() bool {
	for i := range d.Channels {
		if d.Channels[i].ready() {
			return true
		}
	}
	return false
}

// run progresses DMA until no channel is ready. The CPU stalls behind it;
// each transfer unit costs one bus cycle plus arbitration idle cycles.
func (d *DMAController) run() {
	if d.bus.locked {
		return
	}
	for {
		ch := d.highestReady()
		if ch < 0 {
			if d.active >= 0 {
				// DMA released the bus.
				d.bus.tick(1)
				d.active = -1
			}
			return
		}
		d.transferUnit(ch, true)
	}
}

// stepOne progresses at most one transfer unit, used to interleave DMA with
// CPU internal cycles. The unit rides the idle cycle already charged by the
// caller, so no additional time passes.
func (d *DMAController) stepOne() {
	ch := d.highestReady()
	if ch < 0 {
		return
	}
	d.transferUnit(ch, false)
}

func (d *DMAController) highestReady() int {
	for i := range d.Channels {
		if d.Channels[i].ready() {
			return i
		}
	}
	return -1
}

// transferUnit moves one halfword or word: a read then a write through the
// same bus routing the CPU uses, in DMA context so region latencies are not
// double-charged. With charged set the unit costs one bus cycle (the CPU is
// stalled behind the transfer); interleaved units ride the caller's idle
// cycle instead.
func (d *DMAController) transferUnit(ch int, charged bool) {
	c := &d.Channels[ch]
	if d.active != ch {
		// Channel change (or grant): end any cartridge burst and pay one
		// idle arbitration cycle.
		d.bus.EndBurst()
		if charged {
			d.bus.tick(1)
		}
		d.active = ch
		c.starting = false
	}

	d.bus.inDMA = true
	if c.wordUnit() {
		var value uint32
		if sourceMapped(c.src) {
			value = d.bus.ReadWord(c.src&^3, NonSequential)
			c.lastRead = value
		} else {
			// Phantom read from the sticky latch costs a cycle.
			value = c.lastRead
			if charged {
				d.bus.tick(1)
			}
		}
		d.bus.WriteWord(c.dst&^3, value, NonSequential)
	} else {
		var value uint16
		if sourceMapped(c.src) {
			value = uint16(d.bus.ReadHalf(c.src&^1, NonSequential))
			c.lastRead = c.lastRead<<16 | uint32(value)
		} else {
			value = uint16(c.lastRead >> (8 * (c.src & 2)))
			if charged {
				d.bus.tick(1)
			}
		}
		d.bus.WriteHalf(c.dst&^1, value, NonSequential)
	}
	d.bus.inDMA = false
	if charged {
		d.bus.tick(1)
	}

	step := uint32(2)
	if c.wordUnit() {
		step = 4
	}
	c.src = adjust(c.src, int(c.Control>>dmaSrcAdjShift)&3, step)
	if !c.fifoMode {
		c.dst = adjust(c.dst, int(c.Control>>dmaDestAdjShift)&3, step)
	}
	c.remaining--
	if c.remaining == 0 {
		d.finish(ch)
	}
}

func (d *DMAController) finish(ch int) {
	c := &d.Channels[ch]
	c.triggered = false
	if c.Control&dmaIRQ != 0 {
		d.bus.IRQ.Raise(IRQDMA0 << uint(ch))
	}
	if c.Control&dmaRepeat != 0 && c.timing() != timingImmediate {
		// Repeat: reload length (and destination in reload mode) and wait
		// for the next trigger.
		c.remaining = d.latchLength(ch)
		if int(c.Control>>dmaDestAdjShift)&3 == adjReload && !c.fifoMode {
			c.dst = c.Dest
		}
	} else {
		c.Control &^= dmaEnable
	}
	if d.bus.log != nil {
		d.bus.log.Logf(debug.ComponentDMA, debug.LogLevelDebug, "channel %d transfer complete", ch)
	}
}

func adjust(addr uint32, mode int, step uint32) uint32 {
	switch mode {
	case adjIncrement, adjReload:
		return addr + step
	case adjDecrement:
		return addr - step
	default:
		return addr
	}
}

// sourceMapped reports whether a DMA source address reaches real memory.
// The boot ROM is not readable by DMA, so anything below external RAM is
// treated as invalid alongside the unmapped gaps.
func sourceMapped(addr uint32) bool {
	region := addr >> 24
	return region >= regionEWRAM && region <= regionSRAMB &&
		region != 0x01
}
