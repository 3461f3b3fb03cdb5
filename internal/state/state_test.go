package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(0xAB)
	w.Bool(true)
	w.I8(-5)
	w.U16(0x1234)
	w.I16(-1000)
	w.U32(0xDEADBEEF)
	w.I32(-123456)
	w.U64(0x0123456789ABCDEF)
	w.Int(-42)
	w.Raw([]byte{1, 2, 3})

	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := NewReader(data)
	require.NoError(t, err)
	require.Equal(t, uint8(0xAB), r.U8())
	require.True(t, r.Bool())
	require.Equal(t, int8(-5), r.I8())
	require.Equal(t, uint16(0x1234), r.U16())
	require.Equal(t, int16(-1000), r.I16())
	require.Equal(t, uint32(0xDEADBEEF), r.U32())
	require.Equal(t, int32(-123456), r.I32())
	require.Equal(t, uint64(0x0123456789ABCDEF), r.U64())
	require.Equal(t, -42, r.Int())
	raw := make([]byte, 3)
	r.Raw(raw)
	require.Equal(t, []byte{1, 2, 3}, raw)
	require.NoError(t, r.Err())
	require.Zero(t, r.Remaining())
}

func TestLittleEndianLayout(t *testing.T) {
	w := NewWriter()
	w.U32(0x11223344)
	data, err := w.Bytes()
	require.NoError(t, err)
	// 4-byte length prefix, then the value little-endian.
	require.Equal(t, []byte{4, 0, 0, 0, 0x44, 0x33, 0x22, 0x11}, data)
}

func TestTruncatedSnapshotErrorIsSticky(t *testing.T) {
	w := NewWriter()
	w.U16(0x5555)
	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := NewReader(data)
	require.NoError(t, err)
	r.U16()
	require.Zero(t, r.U32(), "short read returns zero")
	require.Error(t, r.Err())
	require.Zero(t, r.U8(), "errors are sticky")
}

func TestRejectsLengthMismatch(t *testing.T) {
	_, err := NewReader([]byte{5, 0, 0, 0, 1})
	require.Error(t, err)
	_, err = NewReader([]byte{1, 0})
	require.Error(t, err)
}
