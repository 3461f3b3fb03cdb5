package memory

import (
	"tetra-core/internal/clock"
	"tetra-core/internal/debug"
)

// CycleKind distinguishes sequential from non-sequential bus cycles. The
// distinction only changes the charged latency for cartridge ROM, where
// sequential (burst) accesses are cheaper.
type CycleKind uint8

const (
	NonSequential CycleKind = iota
	Sequential
)

// VideoRegion names a video-owned memory resource the CPU may contend for.
type VideoRegion uint8

const (
	RegionPalette VideoRegion = iota
	RegionVRAM
	RegionOAM
)

// VideoPort is the bus-facing surface of the video unit. The bus owns the
// cycle clock; the video unit catches up to it on demand.
type VideoPort interface {
	// SyncTo advances the video unit's internal raster state to the given
	// absolute cycle.
	SyncTo(cycle uint64)
	// HandleEvent consumes a scheduler event owned by the video unit.
	HandleEvent(ev clock.Event, now uint64)
	// Busy reports whether the video unit is actively using the region at
	// its current (synced) position. A busy region stalls CPU access.
	Busy(r VideoRegion) bool
	// ReadRegister / WriteRegister access the 16-bit register window.
	ReadRegister(offset uint32) uint16
	WriteRegister(offset uint32, value uint16)
	ReadPalette(addr uint32) uint16
	WritePalette(addr uint32, value uint16)
	ReadVRAM(addr uint32) uint16
	WriteVRAM(addr uint32, value uint16)
	ReadOAM(addr uint32) uint16
	WriteOAM(addr uint32, value uint16)
}

// AudioPort is the bus-facing surface of the audio unit.
type AudioPort interface {
	ReadRegister(offset uint32) uint16
	WriteRegister(offset uint32, value uint16)
	// WriteFIFO pushes sample bytes into sound FIFO A or B; size is 2 for
	// halfword writes and 4 for word writes, which carry four samples.
	WriteFIFO(fifo int, value uint32, size int)
	// TimerOverflow consumes one FIFO sample per overflow of the driving
	// timer and reports whether the FIFO has drained to half depth and
	// needs a DMA refill.
	TimerOverflow(timer int) (refillA, refillB bool)
}

// Bus routes every CPU and DMA access to the correct memory region, charging
// the region's cycle cost and keeping all coprocessors current as of the
// charged cycle. It is the single owner of the cycle clock, the scheduler,
// the open-bus latch, the DMA controller, the timers and the interrupt
// controller; the video and audio units hang off it as ports.
type Bus struct {
	// Cycles is the global monotonic cycle counter. Every access advances
	// it by the access latency.
	Cycles uint64

	Sched *clock.Scheduler
	Video VideoPort
	Audio AudioPort
	IRQ   *InterruptController
	DMA   *DMAController

	Cart *Cartridge

	// BIOS is the boot ROM image, if one is attached.
	BIOS []byte
	// biosContext is set by the CPU adapter while the program counter is
	// inside the boot ROM; some control registers only accept writes then.
	biosContext bool

	IWRAM [32 << 10]uint8
	EWRAM [256 << 10]uint8

	// openBus is the 32-bit latch of the last value driven on the data
	// lines. Reads from unmapped regions return slices of it.
	openBus uint32

	// keys is the active-low pad register exposed at KEYINPUT.
	keys uint16

	waitcnt uint16
	keycnt  uint16
	postflg uint8
	halted  bool
	locked  bool
	inDMA   bool

	// Cartridge burst state. Any non-sequential event terminates the
	// burst; the next ROM access then pays non-sequential latency.
	burstActive bool
	// prefetchHead counts halfword fetch-ahead credit accrued while the
	// CPU runs off-cartridge with the prefetcher enabled.
	prefetchHead uint32

	timers [4]Timer

	log   *debug.Logger
	trace *Trace
}

// NewBus creates a bus with an attached cartridge and wires up its owned
// subsystems. Video and audio ports are connected by the console assembly.
func NewBus(cart *Cartridge, sched *clock.Scheduler, logger *debug.Logger) *Bus {
	b := &Bus{
		Sched: sched,
		Cart:  cart,
		IRQ:   NewInterruptController(),
		keys:  0x03FF,
		log:   logger,
	}
	b.DMA = NewDMAController(b)
	return b
}

// SetTrace attaches an access trace ring. Nil disables tracing.
func (b *Bus) SetTrace(t *Trace) { b.trace = t }

// SetBIOSContext tells the bus whether the CPU is currently executing from
// the boot ROM. Writes to locked control registers are dropped outside it.
func (b *Bus) SetBIOSContext(in bool) { b.biosContext = in }

// SetKeys updates the pad state. The mask uses active-high logical buttons;
// KEYINPUT reads are active-low per convention.
func (b *Bus) SetKeys(mask uint16) { b.keys = ^mask & 0x03FF }

// Lock marks the start of a CPU atomic read-modify-write sequence. DMA must
// not progress while the bus is locked.
func (b *Bus) Lock() { b.locked = true }

// Unlock ends an atomic sequence.
func (b *Bus) Unlock() { b.locked = false }

// Locked reports whether a CPU atomic sequence is in progress.
func (b *Bus) Locked() bool { return b.locked }

// OpenBus returns the current open-bus latch, for tests and state snapshots.
func (b *Bus) OpenBus() uint32 { return b.openBus }

// SetOpenBus restores the latch from a state snapshot.
func (b *Bus) SetOpenBus(v uint32) { b.openBus = v }

// tick advances the cycle clock by n cycles.
func (b *Bus) tick(n uint64) {
	b.Cycles += n
}

// prepareAccess enforces the ordering contract for non-DMA accesses: drain
// scheduler events due at or before the current cycle, progress any active
// DMA to completion (the CPU stalls behind it), and notify the interrupt
// controller that a CPU bus cycle occurred.
func (b *Bus) prepareAccess() {
	if b.inDMA {
		return
	}
	b.drainEvents()
	b.DMA.run()
	b.IRQ.busCycle()
}

// drainEvents pops and dispatches every event due at or before the current
// cycle. Dispatch may schedule new events; the loop keeps going until the
// head of the queue is in the future.
func (b *Bus) drainEvents() {
	for {
		ev, ok := b.Sched.Pop(b.Cycles)
		if !ok {
			return
		}
		switch ev.Kind {
		case clock.EventVBlankIRQ, clock.EventHBlankIRQ, clock.EventVCounterIRQ, clock.EventVideoSync:
			if b.Video != nil {
				b.Video.HandleEvent(ev, b.Cycles)
			}
			switch ev.Kind {
			case clock.EventVBlankIRQ:
				b.IRQ.Raise(IRQVBlank)
				b.DMA.NotifyVBlank()
			case clock.EventHBlankIRQ:
				b.IRQ.Raise(IRQHBlank)
				b.DMA.NotifyHBlank()
			case clock.EventVCounterIRQ:
				b.IRQ.Raise(IRQVCounter)
			}
		case clock.EventTimerOverflow:
			b.serviceTimers()
		case clock.EventNone:
			// Dummy placeholder, nothing to do.
		}
	}
}

// InternalCycles charges n idle CPU cycles. DMA may progress one transfer
// unit per idle cycle; when the prefetcher is disabled, idle cycles also
// terminate a cartridge burst.
func (b *Bus) InternalCycles(n int) {
	if !b.prefetchEnabled() {
		b.burstActive = false
	} else {
		b.prefetchHead += uint32(n)
	}
	for i := 0; i < n; i++ {
		b.tick(1)
		b.drainEvents()
		if !b.locked {
			b.DMA.stepOne()
		}
	}
}

// syncVideo stalls the CPU, one cycle at a time, until the video unit
// releases the region. The value eventually transferred reflects any video
// writes committed during the stall.
func (b *Bus) syncVideo(r VideoRegion) {
	if b.Video == nil {
		return
	}
	b.Video.SyncTo(b.Cycles)
	for b.Video.Busy(r) {
		b.tick(1)
		b.drainEvents()
		b.Video.SyncTo(b.Cycles)
	}
}
