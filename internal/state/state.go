// Package state implements the fixed-layout binary serializer used by save
// states. All integers are little-endian with fixed widths, so a snapshot is
// byte-stable across architectures and across save/load/save round trips.
package state

import (
	"encoding/binary"
	"fmt"
)

// MaxSnapshotSize caps a serialized snapshot at 100 MiB.
const MaxSnapshotSize = 100 << 20

// Writer accumulates a snapshot.
type Writer struct {
	buf []byte
}

// NewWriter creates a writer with room reserved for a typical snapshot.
func NewWriter() *Writer {
	return &Writer{buf: make([]byte, 0, 1<<20)}
}

// Bytes returns the accumulated snapshot, length-prefixed.
func (w *Writer) Bytes() ([]byte, error) {
	if len(w.buf) > MaxSnapshotSize {
		return nil, fmt.Errorf("snapshot exceeds size cap: %d bytes", len(w.buf))
	}
	out := make([]byte, 4+len(w.buf))
	binary.LittleEndian.PutUint32(out, uint32(len(w.buf)))
	copy(out[4:], w.buf)
	return out, nil
}

func (w *Writer) U8(v uint8)   { w.buf = append(w.buf, v) }
func (w *Writer) Bool(v bool)  { if v { w.U8(1) } else { w.U8(0) } }
func (w *Writer) I8(v int8)    { w.U8(uint8(v)) }
func (w *Writer) U16(v uint16) { w.buf = binary.LittleEndian.AppendUint16(w.buf, v) }
func (w *Writer) I16(v int16)  { w.U16(uint16(v)) }
func (w *Writer) U32(v uint32) { w.buf = binary.LittleEndian.AppendUint32(w.buf, v) }
func (w *Writer) I32(v int32)  { w.U32(uint32(v)) }
func (w *Writer) U64(v uint64) { w.buf = binary.LittleEndian.AppendUint64(w.buf, v) }

// Int writes an int as a fixed 64-bit value.
func (w *Writer) Int(v int) { w.U64(uint64(int64(v))) }

// Raw writes a byte slice verbatim; the length is part of the fixed
// layout and is not encoded.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// Reader decodes a snapshot produced by Writer. Errors are sticky: after the
// first short read every subsequent call returns zero values and Err reports
// the failure.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader validates the length prefix and returns a reader over the body.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("snapshot truncated: %d bytes", len(data))
	}
	n := binary.LittleEndian.Uint32(data)
	if n > MaxSnapshotSize {
		return nil, fmt.Errorf("snapshot length %d exceeds size cap", n)
	}
	if int(n) != len(data)-4 {
		return nil, fmt.Errorf("snapshot length mismatch: header %d, body %d", n, len(data)-4)
	}
	return &Reader{buf: data[4:]}, nil
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error { return r.err }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.off }

func (r *Reader) fail(n int) bool {
	if r.err != nil {
		return true
	}
	if r.off+n > len(r.buf) {
		r.err = fmt.Errorf("snapshot truncated at offset %d", r.off)
		return true
	}
	return false
}

func (r *Reader) U8() uint8 {
	if r.fail(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *Reader) Bool() bool { return r.U8() != 0 }
func (r *Reader) I8() int8   { return int8(r.U8()) }

func (r *Reader) U16() uint16 {
	if r.fail(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *Reader) I16() int16 { return int16(r.U16()) }

func (r *Reader) U32() uint32 {
	if r.fail(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *Reader) I32() int32 { return int32(r.U32()) }

func (r *Reader) U64() uint64 {
	if r.fail(8) {
		return 0
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *Reader) Int() int { return int(int64(r.U64())) }

// Raw fills dst from the snapshot.
func (r *Reader) Raw(dst []byte) {
	if r.fail(len(dst)) {
		for i := range dst {
			dst[i] = 0
		}
		return
	}
	copy(dst, r.buf[r.off:])
	r.off += len(dst)
}
