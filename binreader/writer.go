package binreader

import "encoding/binary"

// Writer accumulates bytes for building binary fixtures and small encoded
// sections (e.g. bundle blocks-info). Production decoding never writes;
// Writer exists for tests and for the few places the bundle layer must
// re-emit a byte-identical sub-slice (none at present).
type Writer struct {
	buf   []byte
	order binary.ByteOrder
}

func NewWriter(bigEndian bool) *Writer {
	w := &Writer{}
	if bigEndian {
		w.order = binary.BigEndian
	} else {
		w.order = binary.LittleEndian
	}
	return w
}

func (w *Writer) Bytes() []byte { return w.buf }
func (w *Writer) Len() int      { return len(w.buf) }

func (w *Writer) PutBytes(b []byte)   { w.buf = append(w.buf, b...) }
func (w *Writer) PutU8(v uint8)       { w.buf = append(w.buf, v) }
func (w *Writer) PutU16(v uint16)     { w.buf = appendUint16(w.buf, w.order, v) }
func (w *Writer) PutU32(v uint32)     { w.buf = appendUint32(w.buf, w.order, v) }
func (w *Writer) PutU64(v uint64)     { w.buf = appendUint64(w.buf, w.order, v) }
func (w *Writer) PutI32(v int32)      { w.PutU32(uint32(v)) }
func (w *Writer) PutI64(v int64)      { w.PutU64(uint64(v)) }
func (w *Writer) PutCString(s string) { w.buf = append(append(w.buf, s...), 0) }

// PutAlignedString writes the Unity aligned-string encoding: u32 length, the
// bytes, then zero padding to a 4-byte boundary.
func (w *Writer) PutAlignedString(s string) {
	w.PutU32(uint32(len(s)))
	w.PutBytes([]byte(s))
	for len(w.buf)%4 != 0 {
		w.buf = append(w.buf, 0)
	}
}

// Align pads with zero bytes until the buffer length is a multiple of n.
func (w *Writer) Align(n int) {
	for len(w.buf)%n != 0 {
		w.buf = append(w.buf, 0)
	}
}

func appendUint16(b []byte, order binary.ByteOrder, v uint16) []byte {
	tmp := make([]byte, 2)
	order.PutUint16(tmp, v)
	return append(b, tmp...)
}

func appendUint32(b []byte, order binary.ByteOrder, v uint32) []byte {
	tmp := make([]byte, 4)
	order.PutUint32(tmp, v)
	return append(b, tmp...)
}

func appendUint64(b []byte, order binary.ByteOrder, v uint64) []byte {
	tmp := make([]byte, 8)
	order.PutUint64(tmp, v)
	return append(b, tmp...)
}
