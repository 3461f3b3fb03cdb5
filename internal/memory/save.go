package memory

import "tetra-core/internal/state"

// SaveState serializes the bus and the subsystems it owns: RAM, the
// open-bus latch, the memory-control register, DMA channels, timers and the
// interrupt controller. The ROM is not part of the snapshot; it is
// re-attached from the loaded cartridge.
func (b *Bus) SaveState(w *state.Writer) {
	w.U64(b.Cycles)
	w.Raw(b.IWRAM[:])
	w.Raw(b.EWRAM[:])
	w.Raw(b.Cart.SRAM[:])
	w.U32(b.openBus)
	w.U16(b.keys)
	w.U16(b.waitcnt)
	w.U16(b.keycnt)
	w.U8(b.postflg)
	w.Bool(b.halted)
	w.Bool(b.locked)
	w.Bool(b.biosContext)
	w.Bool(b.burstActive)
	w.U32(b.prefetchHead)

	for i := range b.timers {
		s := b.TimerState(i)
		w.U16(s.Reload)
		w.U16(s.Control)
		w.U64(s.StartCycle)
		w.U16(s.StartValue)
		w.U64(s.OverflowAt)
		w.U16(s.CascadeCounter)
	}

	w.U16(b.IRQ.Enabled())
	w.U16(b.IRQ.Pending())
	w.U16(b.IRQ.Master())
	w.U64(b.IRQ.BusCycles())

	for i := range b.DMA.Channels {
		c := &b.DMA.Channels[i]
		w.U32(c.Source)
		w.U32(c.Dest)
		w.U16(c.Length)
		w.U16(c.Control)
		w.U32(c.src)
		w.U32(c.dst)
		w.U32(c.remaining)
		w.Bool(c.triggered)
		w.Bool(c.starting)
		w.Bool(c.fifoMode)
		w.U32(c.lastRead)
	}
	w.Int(b.DMA.active)
}

// LoadState restores the bus from a snapshot.
func (b *Bus) LoadState(r *state.Reader) {
	b.Cycles = r.U64()
	r.Raw(b.IWRAM[:])
	r.Raw(b.EWRAM[:])
	r.Raw(b.Cart.SRAM[:])
	b.openBus = r.U32()
	b.keys = r.U16()
	b.waitcnt = r.U16()
	b.keycnt = r.U16()
	b.postflg = r.U8()
	b.halted = r.Bool()
	b.locked = r.Bool()
	b.biosContext = r.Bool()
	b.burstActive = r.Bool()
	b.prefetchHead = r.U32()

	for i := range b.timers {
		var s TimerSnapshot
		s.Reload = r.U16()
		s.Control = r.U16()
		s.StartCycle = r.U64()
		s.StartValue = r.U16()
		s.OverflowAt = r.U64()
		s.CascadeCounter = r.U16()
		b.RestoreTimer(i, s)
	}

	b.IRQ.SetEnabled(r.U16())
	b.IRQ.SetPending(r.U16())
	b.IRQ.SetMaster(r.U16())
	b.IRQ.SetBusCycles(r.U64())

	for i := range b.DMA.Channels {
		c := &b.DMA.Channels[i]
		c.Source = r.U32()
		c.Dest = r.U32()
		c.Length = r.U16()
		c.Control = r.U16()
		c.src = r.U32()
		c.dst = r.U32()
		c.remaining = r.U32()
		c.triggered = r.Bool()
		c.starting = r.Bool()
		c.fifoMode = r.Bool()
		c.lastRead = r.U32()
	}
	b.DMA.active = r.Int()
}

// Reset reinitializes the bus-owned state. A hard reset also clears the
// work RAMs; battery-backed save RAM survives both flavors.
func (b *Bus) Reset(hard bool) {
	if hard {
		b.IWRAM = [32 << 10]uint8{}
		b.EWRAM = [256 << 10]uint8{}
	}
	b.openBus = 0
	b.keys = 0x03FF
	b.waitcnt = 0
	b.keycnt = 0
	b.postflg = 0
	b.halted = false
	b.locked = false
	b.burstActive = false
	b.prefetchHead = 0
	b.timers = [4]Timer{}
	b.IRQ = NewInterruptController()
	b.DMA = NewDMAController(b)
}
