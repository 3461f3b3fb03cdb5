package vdp

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tetra-core/internal/state"
)

func TestControlPortRegisterWrite(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.WriteControl(0x8144) // register 1 = 0x44
	require.Equal(t, uint8(0x44), v.regs[1])
	require.False(t, v.pending)
}

func TestControlPortAddressSetup(t *testing.T) {
	v := NewVDP(ModeGenesis)
	// VRAM write to 0x1234: first word 0x5234 (code 01), second 0x0000.
	v.WriteControl(0x4000 | 0x1234)
	require.True(t, v.pending)
	v.WriteControl(0x0000)
	require.False(t, v.pending)
	require.Equal(t, uint16(0x1234), v.addr)
	require.Equal(t, uint8(1), v.code)

	v.WriteData(0xABCD)
	require.Equal(t, uint8(0xAB), v.VRAM[0x1234])
	require.Equal(t, uint8(0xCD), v.VRAM[0x1235])
}

func TestCRAMWriteAndColorExpansion(t *testing.T) {
	v := NewVDP(ModeGenesis)
	// CRAM write: code 0011 -> first word 0xC000.
	v.WriteControl(0xC000)
	v.WriteControl(0x0000)
	require.Equal(t, uint8(3), v.code)

	v.WriteData(0x0E00) // full blue
	require.Equal(t, uint16(0x0E00), v.CRAM[0])
	color := v.genesisColor(0)
	require.Equal(t, uint16(0x7000), color&0x7C00, "blue expands to the high channel")
	require.Zero(t, color&0x03FF)
}

func TestAutoIncrement(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.WriteControl(0x8F02) // increment 2
	v.WriteControl(0x4000)
	v.WriteControl(0x0000)
	v.WriteData(0x1111)
	v.WriteData(0x2222)
	require.Equal(t, uint8(0x22), v.VRAM[2])
}

func TestLegacyControlByteSequence(t *testing.T) {
	v := NewVDP(ModeMasterSystem)
	// Register write: low byte then 0x80|reg.
	v.WriteControlByte(0x66)
	v.WriteControlByte(0x87)
	require.Equal(t, uint8(0x66), v.regs[7])

	// VRAM write address 0x3800.
	v.WriteControlByte(0x00)
	v.WriteControlByte(0x40 | 0x38)
	v.WriteDataByte(0x5A)
	require.Equal(t, uint8(0x5A), v.VRAM[0x3800])
}

func TestFrameAndLineInterrupts(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.WriteControl(0x8000 | 0x00<<8 | 0x10) // reg 0: hint enable
	v.WriteControl(0x8100 | 0x60)           // reg 1: display + vint enable
	v.WriteControl(0x8A00 | 2)              // reg 10: line counter 2

	var vints, hints int
	for i := 0; i < 262; i++ {
		vint, hint := v.RunLine()
		if vint {
			vints++
		}
		if hint {
			hints++
		}
	}
	require.Equal(t, 1, vints, "one frame interrupt per frame")
	// The counter starts empty, reloads to 2 and underflows every third
	// active line thereafter.
	require.Equal(t, 75, hints)
	require.True(t, v.FrameDone())
}

func TestStatusReadClearsVIntPending(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.WriteControl(0x8100 | 0x60)
	for i := 0; i < 225; i++ {
		v.RunLine()
	}
	require.NotZero(t, v.ReadStatus()&StatusVIntPending)
	require.Zero(t, v.ReadStatus()&StatusVIntPending)
}

// pokeSprite writes one Genesis sprite-table entry.
func pokeSprite(v *VDP, base uint32, idx int, x, y int, size uint8, link uint8, attr uint16) {
	sat := base + uint32(idx)*8
	uy := uint16(y + 128)
	ux := uint16(x + 128)
	v.VRAM[sat] = uint8(uy >> 8 & 3)
	v.VRAM[sat+1] = uint8(uy)
	v.VRAM[sat+2] = size
	v.VRAM[sat+3] = link
	v.VRAM[sat+4] = uint8(attr >> 8)
	v.VRAM[sat+5] = uint8(attr)
	v.VRAM[sat+6] = uint8(ux >> 8 & 3)
	v.VRAM[sat+7] = uint8(ux)
}

func solidTile4bpp(v *VDP, tile uint32, color uint8) {
	for i := uint32(0); i < 32; i++ {
		v.VRAM[tile*32+i] = color<<4 | color
	}
}

func TestGenesisSpriteLinkOrder(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.regs[5] = 0x02 // sprite table at 0x0400
	base := uint32(0x0400)

	solidTile4bpp(v, 1, 1)
	solidTile4bpp(v, 2, 2)
	v.CRAM[1] = 0x00E // red-ish
	v.CRAM[2] = 0x0E0 // green-ish

	// Sprite 0 links to sprite 2; sprite 1 is orphaned and must not
	// render. Both 0 and 2 overlap; the earlier link position wins.
	pokeSprite(v, base, 0, 10, 0, 0, 2, 1)      // tile 1
	pokeSprite(v, base, 1, 40, 0, 0, 0, 2)      // orphan
	pokeSprite(v, base, 2, 10, 0, 0, 0, 2)      // tile 2, overlaps sprite 0

	var buf [MaxWidth]genCell
	v.renderGenesisSprites(0, &buf)

	require.True(t, buf[10].set)
	require.Equal(t, v.genesisColor(1), buf[10].color, "first linked sprite wins the overlap")
	require.False(t, buf[40].set, "sprite not in the link chain is skipped")
	require.NotZero(t, v.status&StatusCollision, "overlap sets the collision flag")
}

func TestGenesisSpriteLineLimit(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.regs[5] = 0x02
	base := uint32(0x0400)
	solidTile4bpp(v, 1, 1)
	v.CRAM[1] = 0x00E

	// A chain of 22 sprites on line 0, eight pixels apart.
	for i := 0; i < 22; i++ {
		link := uint8(i + 1)
		if i == 21 {
			link = 0
		}
		pokeSprite(v, base, i, i*8, 0, 0, link, 1)
	}

	var buf [MaxWidth]genCell
	v.renderGenesisSprites(0, &buf)
	require.True(t, buf[19*8].set, "sprite 19 inside the budget")
	require.False(t, buf[20*8].set, "sprite 20 beyond the line limit")
	require.NotZero(t, v.status&StatusOverflow)

	v.RemoveSpriteLimit = true
	v.status = 0
	buf = [MaxWidth]genCell{}
	v.renderGenesisSprites(0, &buf)
	require.True(t, buf[21*8].set, "limit removed")
	require.Zero(t, v.status&StatusOverflow)
}

func TestLegacyNametableRendering(t *testing.T) {
	v := NewVDP(ModeMasterSystem)
	v.regs[1] = 0x40      // display enable
	v.regs[2] = 0x0E      // nametable at 0x3800
	v.regs[7] = 0x00

	// Tile 1: all pixels color 5 (planes 0 and 2).
	for row := 0; row < 8; row++ {
		v.VRAM[32+row*4] = 0xFF
		v.VRAM[32+row*4+2] = 0xFF
	}
	// Nametable entry (0,0) = tile 1.
	v.VRAM[0x3800] = 1
	v.CRAM[5] = 0x30 // blue, 6-bit palette

	v.RunLine()
	require.Equal(t, v.legacyColor(5), v.Framebuffer[0])
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := NewVDP(ModeGenesis)
	v.WriteControl(0x8144)
	v.WriteControl(0x4000 | 0x0123)
	v.WriteControl(0x0000)
	v.WriteData(0xBEEF)
	for i := 0; i < 100; i++ {
		v.RunLine()
	}

	w := state.NewWriter()
	v.SaveState(w)
	first, err := w.Bytes()
	require.NoError(t, err)

	u := NewVDP(ModeGenesis)
	r, err := state.NewReader(first)
	require.NoError(t, err)
	u.LoadState(r)
	require.NoError(t, r.Err())

	w2 := state.NewWriter()
	u.SaveState(w2)
	second, err := w2.Bytes()
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, v.line, u.line)
	require.Equal(t, uint8(0xBE), u.VRAM[0x0122&^1])
}
